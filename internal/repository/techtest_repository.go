package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studiklab/portal-api/internal/models"
)

// TechTestRepository persists technical tests, their questions and attempts.
type TechTestRepository struct {
	db *sqlx.DB
}

// NewTechTestRepository constructs a tech test repository.
func NewTechTestRepository(db *sqlx.DB) *TechTestRepository {
	return &TechTestRepository{db: db}
}

// ListPublished returns published tests, optionally narrowed to a track.
func (r *TechTestRepository) ListPublished(ctx context.Context, track string) ([]models.TechTest, error) {
	query := `SELECT id, title, track, duration_minutes, published, created_at
FROM tech_tests WHERE published = TRUE`
	args := []interface{}{}
	if track != "" {
		query += " AND track = $1"
		args = append(args, track)
	}
	query += " ORDER BY created_at DESC"
	var tests []models.TechTest
	if err := r.db.SelectContext(ctx, &tests, query, args...); err != nil {
		return nil, fmt.Errorf("list tech tests: %w", err)
	}
	return tests, nil
}

// FindTest fetches one test.
func (r *TechTestRepository) FindTest(ctx context.Context, id string) (*models.TechTest, error) {
	var test models.TechTest
	query := `SELECT id, title, track, duration_minutes, published, created_at FROM tech_tests WHERE id = $1`
	if err := r.db.GetContext(ctx, &test, query, id); err != nil {
		return nil, err
	}
	return &test, nil
}

// ListQuestions returns a test's questions in position order, correct answers
// included.
func (r *TechTestRepository) ListQuestions(ctx context.Context, testID string) ([]models.TechTestQuestion, error) {
	var questions []models.TechTestQuestion
	query := `SELECT id, test_id, position, prompt, choices, correct_choice
FROM tech_test_questions WHERE test_id = $1 ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &questions, query, testID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// CreateAttempt opens a new attempt.
func (r *TechTestRepository) CreateAttempt(ctx context.Context, attempt *models.TestAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	query := `INSERT INTO test_attempts (id, test_id, user_id, status, started_at)
VALUES (:id, :test_id, :user_id, :status, :started_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// FindAttempt fetches one attempt.
func (r *TechTestRepository) FindAttempt(ctx context.Context, id string) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	query := `SELECT id, test_id, user_id, status, score, started_at, submitted_at FROM test_attempts WHERE id = $1`
	if err := r.db.GetContext(ctx, &attempt, query, id); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindOpenAttempt returns the user's in-progress attempt for a test, if any.
func (r *TechTestRepository) FindOpenAttempt(ctx context.Context, testID, userID string) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	query := `SELECT id, test_id, user_id, status, score, started_at, submitted_at
FROM test_attempts WHERE test_id = $1 AND user_id = $2 AND status = 'IN_PROGRESS'`
	if err := r.db.GetContext(ctx, &attempt, query, testID, userID); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FinalizeAttempt stores answers, the score and the terminal status in one
// transaction.
func (r *TechTestRepository) FinalizeAttempt(ctx context.Context, attemptID string, answers []models.AttemptAnswer, score float64, status models.AttemptStatus, submittedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finalize attempt: begin: %w", err)
	}
	defer tx.Rollback()

	for _, answer := range answers {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO attempt_answers (attempt_id, question_id, choice) VALUES ($1, $2, $3)",
			answer.AttemptID, answer.QuestionID, answer.Choice); err != nil {
			return fmt.Errorf("finalize attempt: save answer: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE test_attempts SET status = $1, score = $2, submitted_at = $3 WHERE id = $4",
		string(status), score, submittedAt, attemptID); err != nil {
		return fmt.Errorf("finalize attempt: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finalize attempt: commit: %w", err)
	}
	return nil
}

// ListAttemptsByUser returns a user's attempts, newest first.
func (r *TechTestRepository) ListAttemptsByUser(ctx context.Context, userID string) ([]models.TestAttempt, error) {
	var attempts []models.TestAttempt
	query := `SELECT id, test_id, user_id, status, score, started_at, submitted_at
FROM test_attempts WHERE user_id = $1 ORDER BY started_at DESC`
	if err := r.db.SelectContext(ctx, &attempts, query, userID); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}
