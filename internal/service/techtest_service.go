package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/pkg/config"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

type techTestRepository interface {
	ListPublished(ctx context.Context, track string) ([]models.TechTest, error)
	FindTest(ctx context.Context, id string) (*models.TechTest, error)
	ListQuestions(ctx context.Context, testID string) ([]models.TechTestQuestion, error)
	CreateAttempt(ctx context.Context, attempt *models.TestAttempt) error
	FindAttempt(ctx context.Context, id string) (*models.TestAttempt, error)
	FindOpenAttempt(ctx context.Context, testID, userID string) (*models.TestAttempt, error)
	FinalizeAttempt(ctx context.Context, attemptID string, answers []models.AttemptAnswer, score float64, status models.AttemptStatus, submittedAt time.Time) error
	ListAttemptsByUser(ctx context.Context, userID string) ([]models.TestAttempt, error)
}

// TechTestService runs timed multiple-choice assessments.
type TechTestService struct {
	repo   techTestRepository
	cfg    config.TechTestsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewTechTestService constructs a TechTestService.
func NewTechTestService(repo techTestRepository, cfg config.TechTestsConfig, logger *zap.Logger) *TechTestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechTestService{repo: repo, cfg: cfg, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ListTests returns published tests for a track.
func (s *TechTestService) ListTests(ctx context.Context, track string) ([]dto.TestSummary, error) {
	tests, err := s.repo.ListPublished(ctx, track)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TestSummary, 0, len(tests))
	for _, test := range tests {
		out = append(out, dto.TestSummary{
			ID:              test.ID,
			Title:           test.Title,
			Track:           test.Track,
			DurationMinutes: test.DurationMinutes,
		})
	}
	return out, nil
}

// StartAttempt opens an attempt, or resumes the caller's attempt already in
// progress. The answer key never leaves the service.
func (s *TechTestService) StartAttempt(ctx context.Context, userID, testID string) (*dto.AttemptView, error) {
	test, err := s.repo.FindTest(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
		}
		return nil, err
	}
	if !test.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
	}

	attempt, err := s.repo.FindOpenAttempt(ctx, testID, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		attempt = &models.TestAttempt{
			TestID:    testID,
			UserID:    userID,
			Status:    models.AttemptInProgress,
			StartedAt: s.now(),
		}
		if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
			return nil, err
		}
	}

	questions, err := s.repo.ListQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}
	views := make([]dto.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, dto.QuestionView{
			ID:       q.ID,
			Position: q.Position,
			Prompt:   q.Prompt,
			Choices:  q.Choices,
		})
	}

	return &dto.AttemptView{
		AttemptID: attempt.ID,
		TestID:    testID,
		StartedAt: attempt.StartedAt,
		Deadline:  s.deadline(test, attempt),
		Questions: views,
	}, nil
}

// SubmitAttempt scores the answers and finalizes the attempt. Submissions
// after the deadline are stored as expired with a zero score.
func (s *TechTestService) SubmitAttempt(ctx context.Context, userID, attemptID string, req dto.SubmitAttemptRequest) (*dto.AttemptSummary, error) {
	attempt, err := s.repo.FindAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attempt belongs to another user")
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, appErrors.ErrAttemptFinalized
	}

	test, err := s.repo.FindTest(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.ListQuestions(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := models.AttemptSubmitted
	score := 0.0
	answers := make([]models.AttemptAnswer, 0, len(req.Answers))

	if now.After(s.deadline(test, attempt)) {
		status = models.AttemptExpired
	} else {
		key := make(map[string]int, len(questions))
		for _, q := range questions {
			key[q.ID] = q.CorrectChoice
		}
		correct := 0
		for _, answer := range req.Answers {
			expected, ok := key[answer.QuestionID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "answer references an unknown question")
			}
			answers = append(answers, models.AttemptAnswer{
				AttemptID:  attemptID,
				QuestionID: answer.QuestionID,
				Choice:     answer.Choice,
			})
			if answer.Choice == expected {
				correct++
			}
		}
		if len(questions) > 0 {
			score = float64(correct) / float64(len(questions)) * 100
		}
	}

	if err := s.repo.FinalizeAttempt(ctx, attemptID, answers, score, status, now); err != nil {
		return nil, err
	}

	attempt.Status = status
	attempt.Score = &score
	attempt.SubmittedAt = &now
	summary := dto.NewAttemptSummary(*attempt)
	return &summary, nil
}

// ListAttempts returns the caller's attempt history.
func (s *TechTestService) ListAttempts(ctx context.Context, userID string) ([]dto.AttemptSummary, error) {
	attempts, err := s.repo.ListAttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AttemptSummary, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, dto.NewAttemptSummary(attempt))
	}
	return out, nil
}

// deadline is the attempt start plus the test duration, bounded by the
// configured hard timeout.
func (s *TechTestService) deadline(test *models.TechTest, attempt *models.TestAttempt) time.Time {
	duration := time.Duration(test.DurationMinutes) * time.Minute
	if s.cfg.AttemptTimeout > 0 && duration > s.cfg.AttemptTimeout {
		duration = s.cfg.AttemptTimeout
	}
	return attempt.StartedAt.Add(duration)
}
