package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studiklab/portal-api/internal/models"
)

// ProgramRepository reads programs, enrollments and progress aggregates.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a program repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// ListEnrollments returns a user's enrollments, newest first.
func (r *ProgramRepository) ListEnrollments(ctx context.Context, userID string) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	query := `SELECT id, program_id, user_id, status, enrolled_at, completed_at
FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC`
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ProgressByUser aggregates module and lab completion per enrolled program.
func (r *ProgramRepository) ProgressByUser(ctx context.Context, userID string) ([]models.ProgressSummary, error) {
	var summaries []models.ProgressSummary
	query := `SELECT p.id AS program_id, p.name AS program_name, p.track,
COUNT(DISTINCT pm.id) AS modules_total,
COUNT(DISTINCT mc.module_id) AS modules_completed,
COUNT(DISTINCT pl.id) AS labs_total,
COUNT(DISTINCT ls.lab_id) AS labs_passed,
MAX(GREATEST(mc.completed_at, ls.passed_at)) AS last_activity_at
FROM enrollments e
JOIN programs p ON p.id = e.program_id
LEFT JOIN program_modules pm ON pm.program_id = p.id
LEFT JOIN module_completions mc ON mc.module_id = pm.id AND mc.user_id = e.user_id
LEFT JOIN program_labs pl ON pl.program_id = p.id
LEFT JOIN lab_submissions ls ON ls.lab_id = pl.id AND ls.user_id = e.user_id AND ls.passed = TRUE
WHERE e.user_id = $1
GROUP BY p.id, p.name, p.track
ORDER BY p.start_date DESC`
	if err := r.db.SelectContext(ctx, &summaries, query, userID); err != nil {
		return nil, fmt.Errorf("progress by user: %w", err)
	}
	return summaries, nil
}

// FindProgram fetches a single program.
func (r *ProgramRepository) FindProgram(ctx context.Context, id string) (*models.Program, error) {
	var program models.Program
	query := `SELECT id, name, track, start_date, end_date, created_at FROM programs WHERE id = $1`
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// CohortProgress aggregates per-student progress for one program, for mentor
// and admin dashboards.
func (r *ProgramRepository) CohortProgress(ctx context.Context, programID string) ([]models.ProgressSummary, error) {
	var summaries []models.ProgressSummary
	query := `SELECT p.id AS program_id, p.name AS program_name, p.track,
COUNT(DISTINCT pm.id) AS modules_total,
COUNT(DISTINCT mc.module_id) AS modules_completed,
COUNT(DISTINCT pl.id) AS labs_total,
COUNT(DISTINCT ls.lab_id) AS labs_passed,
MAX(GREATEST(mc.completed_at, ls.passed_at)) AS last_activity_at
FROM enrollments e
JOIN programs p ON p.id = e.program_id
LEFT JOIN program_modules pm ON pm.program_id = p.id
LEFT JOIN module_completions mc ON mc.module_id = pm.id AND mc.user_id = e.user_id
LEFT JOIN program_labs pl ON pl.program_id = p.id
LEFT JOIN lab_submissions ls ON ls.lab_id = pl.id AND ls.user_id = e.user_id AND ls.passed = TRUE
WHERE e.program_id = $1 AND e.status = 'ACTIVE'
GROUP BY e.user_id, p.id, p.name, p.track
ORDER BY p.name ASC`
	if err := r.db.SelectContext(ctx, &summaries, query, programID); err != nil {
		return nil, fmt.Errorf("cohort progress: %w", err)
	}
	return summaries, nil
}
