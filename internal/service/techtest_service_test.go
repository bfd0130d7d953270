package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/pkg/config"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

type stubTechTestRepo struct {
	tests     map[string]models.TechTest
	questions []models.TechTestQuestion
	attempts  map[string]models.TestAttempt
	open      *models.TestAttempt

	created   []models.TestAttempt
	finalized []finalizeCall
}

type finalizeCall struct {
	attemptID string
	answers   []models.AttemptAnswer
	score     float64
	status    models.AttemptStatus
}

func (s *stubTechTestRepo) ListPublished(_ context.Context, _ string) ([]models.TechTest, error) {
	out := make([]models.TechTest, 0, len(s.tests))
	for _, t := range s.tests {
		if t.Published {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTechTestRepo) FindTest(_ context.Context, id string) (*models.TechTest, error) {
	t, ok := s.tests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (s *stubTechTestRepo) ListQuestions(_ context.Context, _ string) ([]models.TechTestQuestion, error) {
	return s.questions, nil
}

func (s *stubTechTestRepo) CreateAttempt(_ context.Context, attempt *models.TestAttempt) error {
	attempt.ID = "att-new"
	s.created = append(s.created, *attempt)
	return nil
}

func (s *stubTechTestRepo) FindAttempt(_ context.Context, id string) (*models.TestAttempt, error) {
	a, ok := s.attempts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (s *stubTechTestRepo) FindOpenAttempt(_ context.Context, _, _ string) (*models.TestAttempt, error) {
	if s.open == nil {
		return nil, sql.ErrNoRows
	}
	return s.open, nil
}

func (s *stubTechTestRepo) FinalizeAttempt(_ context.Context, attemptID string, answers []models.AttemptAnswer, score float64, status models.AttemptStatus, _ time.Time) error {
	s.finalized = append(s.finalized, finalizeCall{attemptID: attemptID, answers: answers, score: score, status: status})
	return nil
}

func (s *stubTechTestRepo) ListAttemptsByUser(_ context.Context, _ string) ([]models.TestAttempt, error) {
	return nil, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestTechTestService(repo *stubTechTestRepo, now time.Time) *TechTestService {
	svc := NewTechTestService(repo, config.TechTestsConfig{Enabled: true, AttemptTimeout: 2 * time.Hour}, zap.NewNop())
	svc.now = fixedClock(now)
	return svc
}

func sampleTest() models.TechTest {
	return models.TechTest{ID: "test-1", Title: "Go basics", Track: "backend", DurationMinutes: 30, Published: true}
}

func sampleQuestions() []models.TechTestQuestion {
	return []models.TechTestQuestion{
		{ID: "q1", TestID: "test-1", Position: 1, Prompt: "A?", Choices: []string{"x", "y"}, CorrectChoice: 0},
		{ID: "q2", TestID: "test-1", Position: 2, Prompt: "B?", Choices: []string{"x", "y"}, CorrectChoice: 1},
		{ID: "q3", TestID: "test-1", Position: 3, Prompt: "C?", Choices: []string{"x", "y"}, CorrectChoice: 1},
		{ID: "q4", TestID: "test-1", Position: 4, Prompt: "D?", Choices: []string{"x", "y"}, CorrectChoice: 0},
	}
}

func TestStartAttemptCreatesAndHidesAnswerKey(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubTechTestRepo{
		tests:     map[string]models.TechTest{"test-1": sampleTest()},
		questions: sampleQuestions(),
	}
	svc := newTestTechTestService(repo, now)

	view, err := svc.StartAttempt(context.Background(), "usr-1", "test-1")
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.AttemptInProgress, repo.created[0].Status)
	assert.Len(t, view.Questions, 4)
	// 30 minute test within the 2h hard timeout.
	assert.Equal(t, now.Add(30*time.Minute), view.Deadline)
}

func TestStartAttemptResumesOpenAttempt(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	open := &models.TestAttempt{ID: "att-open", TestID: "test-1", UserID: "usr-1", Status: models.AttemptInProgress, StartedAt: now.Add(-5 * time.Minute)}
	repo := &stubTechTestRepo{
		tests:     map[string]models.TechTest{"test-1": sampleTest()},
		questions: sampleQuestions(),
		open:      open,
	}
	svc := newTestTechTestService(repo, now)

	view, err := svc.StartAttempt(context.Background(), "usr-1", "test-1")
	require.NoError(t, err)
	assert.Empty(t, repo.created)
	assert.Equal(t, "att-open", view.AttemptID)
}

func TestStartAttemptUnpublishedHidden(t *testing.T) {
	test := sampleTest()
	test.Published = false
	repo := &stubTechTestRepo{tests: map[string]models.TechTest{"test-1": test}}
	svc := newTestTechTestService(repo, time.Now().UTC())

	_, err := svc.StartAttempt(context.Background(), "usr-1", "test-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSubmitAttemptScoresAnswers(t *testing.T) {
	started := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubTechTestRepo{
		tests:     map[string]models.TechTest{"test-1": sampleTest()},
		questions: sampleQuestions(),
		attempts: map[string]models.TestAttempt{
			"att-1": {ID: "att-1", TestID: "test-1", UserID: "usr-1", Status: models.AttemptInProgress, StartedAt: started},
		},
	}
	svc := newTestTechTestService(repo, started.Add(10*time.Minute))

	summary, err := svc.SubmitAttempt(context.Background(), "usr-1", "att-1", dto.SubmitAttemptRequest{
		Answers: []dto.AnswerPayload{
			{QuestionID: "q1", Choice: 0},
			{QuestionID: "q2", Choice: 1},
			{QuestionID: "q3", Choice: 0},
			{QuestionID: "q4", Choice: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.AttemptSubmitted), summary.Status)
	require.NotNil(t, summary.Score)
	assert.InDelta(t, 50.0, *summary.Score, 0.01)

	require.Len(t, repo.finalized, 1)
	assert.Equal(t, models.AttemptSubmitted, repo.finalized[0].status)
	assert.Len(t, repo.finalized[0].answers, 4)
}

func TestSubmitAttemptAfterDeadlineExpires(t *testing.T) {
	started := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubTechTestRepo{
		tests:     map[string]models.TechTest{"test-1": sampleTest()},
		questions: sampleQuestions(),
		attempts: map[string]models.TestAttempt{
			"att-1": {ID: "att-1", TestID: "test-1", UserID: "usr-1", Status: models.AttemptInProgress, StartedAt: started},
		},
	}
	svc := newTestTechTestService(repo, started.Add(31*time.Minute))

	summary, err := svc.SubmitAttempt(context.Background(), "usr-1", "att-1", dto.SubmitAttemptRequest{
		Answers: []dto.AnswerPayload{{QuestionID: "q1", Choice: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.AttemptExpired), summary.Status)
	require.NotNil(t, summary.Score)
	assert.Zero(t, *summary.Score)
}

func TestSubmitAttemptFinalizedRejected(t *testing.T) {
	repo := &stubTechTestRepo{
		tests: map[string]models.TechTest{"test-1": sampleTest()},
		attempts: map[string]models.TestAttempt{
			"att-1": {ID: "att-1", TestID: "test-1", UserID: "usr-1", Status: models.AttemptSubmitted, StartedAt: time.Now()},
		},
	}
	svc := newTestTechTestService(repo, time.Now().UTC())

	_, err := svc.SubmitAttempt(context.Background(), "usr-1", "att-1", dto.SubmitAttemptRequest{})
	require.ErrorIs(t, err, appErrors.ErrAttemptFinalized)
	assert.Empty(t, repo.finalized)
}

func TestSubmitAttemptOwnership(t *testing.T) {
	repo := &stubTechTestRepo{
		tests: map[string]models.TechTest{"test-1": sampleTest()},
		attempts: map[string]models.TestAttempt{
			"att-1": {ID: "att-1", TestID: "test-1", UserID: "usr-2", Status: models.AttemptInProgress, StartedAt: time.Now()},
		},
	}
	svc := newTestTechTestService(repo, time.Now().UTC())

	_, err := svc.SubmitAttempt(context.Background(), "usr-1", "att-1", dto.SubmitAttemptRequest{})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
