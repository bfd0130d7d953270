package service

import (
	"context"
	"encoding/json"
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

type stubProgressRepo struct {
	summaries   []models.ProgressSummary
	enrollments []models.Enrollment
	calls       int
}

func (s *stubProgressRepo) ProgressByUser(_ context.Context, _ string) ([]models.ProgressSummary, error) {
	s.calls++
	return s.summaries, nil
}

func (s *stubProgressRepo) ListEnrollments(_ context.Context, _ string) ([]models.Enrollment, error) {
	return s.enrollments, nil
}

type stubAttemptReader struct {
	attempts []models.TestAttempt
}

func (s *stubAttemptReader) ListAttemptsByUser(_ context.Context, _ string) ([]models.TestAttempt, error) {
	return s.attempts, nil
}

type stubInvitationLister struct {
	items []dto.InvitationItem
}

func (s *stubInvitationLister) List(_ context.Context, _ string, _ dto.ListInvitationsQuery) ([]dto.InvitationItem, models.Pagination, error) {
	return s.items, models.Pagination{}, nil
}

type memoryCache struct {
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.entries, key)
	return nil
}

func newTestDashboardService(progress *stubProgressRepo, lister *stubInvitationLister, cache *memoryCache) *DashboardService {
	cfg := config.DashboardConfig{Enabled: true, CacheTTL: 5 * time.Minute}
	return NewDashboardService(progress, &stubAttemptReader{}, lister, cache, cfg, zap.NewNop())
}

func TestDashboardBuildCountsPendingInvitations(t *testing.T) {
	progress := &stubProgressRepo{
		summaries: []models.ProgressSummary{
			{ProgramID: "prog-1", ProgramName: "Backend", Track: "go", ModulesTotal: 10, ModulesCompleted: 5, LabsTotal: 10, LabsPassed: 5},
		},
		enrollments: []models.Enrollment{
			{ProgramID: "prog-1", UserID: "usr-1", Status: models.EnrollmentActive},
		},
	}
	lister := &stubInvitationLister{items: []dto.InvitationItem{
		{EventID: "evt-1", Status: string(models.ResponseNeedsAction)},
		{EventID: "evt-2", Status: string(models.ResponseAccepted)},
		{EventID: "evt-3", Status: string(models.ResponseNeedsAction)},
	}}
	svc := newTestDashboardService(progress, lister, newMemoryCache())

	dashboard, err := svc.Get(context.Background(), "usr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, dashboard.PendingInvitations)
	assert.Len(t, dashboard.UpcomingEvents, 3)
	require.Len(t, dashboard.Programs, 1)
	assert.Equal(t, string(models.EnrollmentActive), dashboard.Programs[0].EnrollmentStatus)
	assert.InDelta(t, 50.0, dashboard.Programs[0].CompletionPercent, 0.01)
}

func TestDashboardServedFromCache(t *testing.T) {
	progress := &stubProgressRepo{}
	cache := newMemoryCache()
	svc := newTestDashboardService(progress, &stubInvitationLister{}, cache)

	_, err := svc.Get(context.Background(), "usr-1")
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), "usr-1")
	require.NoError(t, err)

	// The second read must not rebuild.
	assert.Equal(t, 1, progress.calls)
}

func TestDashboardInvalidateDropsCacheEntry(t *testing.T) {
	progress := &stubProgressRepo{}
	cache := newMemoryCache()
	svc := newTestDashboardService(progress, &stubInvitationLister{}, cache)

	_, err := svc.Get(context.Background(), "usr-1")
	require.NoError(t, err)
	svc.Invalidate(context.Background(), "usr-1")
	assert.Contains(t, cache.deleted, "dashboard:usr-1")

	_, err = svc.Get(context.Background(), "usr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.calls)
}
