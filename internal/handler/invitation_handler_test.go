package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/middleware"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/internal/repository"
	"github.com/studiklab/portal-api/internal/service"
	"github.com/studiklab/portal-api/pkg/config"
)

type fakeEventRepo struct {
	events []models.Event
}

func (f *fakeEventRepo) FindByID(_ context.Context, id string) (*models.Event, error) {
	for i := range f.events {
		if f.events[i].ID == id {
			return &f.events[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEventRepo) ListInvitedInRange(_ context.Context, _ string, _, _ time.Time) ([]models.Event, error) {
	return f.events, nil
}

func (f *fakeEventRepo) AttendeeCounts(_ context.Context, _ []string) (map[string]int, error) {
	return map[string]int{}, nil
}

type fakeInvitationRepo struct {
	applied []repository.ResponseParams
}

func (f *fakeInvitationRepo) FindBase(_ context.Context, eventID, userID string) (*models.Invitation, error) {
	return &models.Invitation{EventID: eventID, UserID: userID, Status: models.ResponseNeedsAction}, nil
}

func (f *fakeInvitationRepo) ListForUser(_ context.Context, _ string, _ []string) ([]models.Invitation, error) {
	return nil, nil
}

func (f *fakeInvitationRepo) ApplyResponse(_ context.Context, p repository.ResponseParams) (*models.Invitation, error) {
	f.applied = append(f.applied, p)
	now := time.Now()
	return &models.Invitation{
		ID:             "inv-1",
		EventID:        p.EventID,
		UserID:         p.UserID,
		Status:         p.Status,
		ResponseOption: p.Scope,
		RespondedAt:    &now,
	}, nil
}

type fakeLocker struct{}

func (fakeLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (fakeLocker) ReleaseLock(context.Context, string) error                        { return nil }

type fakeDashboards struct {
	invalidated []string
}

func (f *fakeDashboards) Invalidate(_ context.Context, userID string) {
	f.invalidated = append(f.invalidated, userID)
}

func newInvitationTestHandler(events []models.Event, invRepo *fakeInvitationRepo) *InvitationHandler {
	cfg := config.CalendarConfig{DefaultPageSize: 20, MaxExpandedOccurrences: 500, SubmissionLockTTL: time.Second}
	svc := service.NewInvitationService(&fakeEventRepo{events: events}, invRepo, fakeLocker{}, nil, cfg, zap.NewNop())
	return NewInvitationHandler(svc, nil, nil)
}

func newInvitationTestHandlerWithDashboards(events []models.Event, invRepo *fakeInvitationRepo, dashboards *fakeDashboards) *InvitationHandler {
	cfg := config.CalendarConfig{DefaultPageSize: 20, MaxExpandedOccurrences: 500, SubmissionLockTTL: time.Second}
	svc := service.NewInvitationService(&fakeEventRepo{events: events}, invRepo, fakeLocker{}, nil, cfg, zap.NewNop())
	return NewInvitationHandler(svc, dashboards, nil)
}

func withClaims(c *gin.Context, userID string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: models.RoleStudent, FullName: "Test User"})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func TestInvitationHandlerListUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newInvitationTestHandler(nil, &fakeInvitationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/calendar/invitations", nil)

	handler.List(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvitationHandlerListPaginates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	start := time.Now().UTC().Add(24 * time.Hour)
	events := []models.Event{
		{ID: "evt-1", Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour), OrganizerID: "mentor-1"},
		{ID: "evt-2", Title: "Own event", StartTime: start.Add(2 * time.Hour), EndTime: start.Add(3 * time.Hour), OrganizerID: "usr-1"},
	}
	handler := newInvitationTestHandler(events, &fakeInvitationRepo{})

	from := start.AddDate(0, 0, -1).Format("2006-01-02")
	to := start.AddDate(0, 0, 7).Format("2006-01-02")
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/calendar/invitations?from="+from+"&to="+to, nil)
	withClaims(c, "usr-1")

	handler.List(c)
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
	assert.Equal(t, 1, env.Pagination.TotalPages)
}

func TestInvitationHandlerRespondStandalone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	start := time.Now().UTC().Add(24 * time.Hour)
	events := []models.Event{
		{ID: "evt-1", Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour), OrganizerID: "mentor-1"},
	}
	invRepo := &fakeInvitationRepo{}
	handler := newInvitationTestHandler(events, invRepo)

	body := `{"responseStatus":"accepted","responseOption":"","proposedTime":null}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/calendar/events/evt-1/response", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}
	withClaims(c, "usr-1")

	handler.Respond(c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, invRepo.applied, 1)
	assert.Nil(t, invRepo.applied[0].Scope)
}

func TestInvitationHandlerRespondRecurringNeedsScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	start := time.Now().UTC().Add(24 * time.Hour)
	rule := "FREQ=WEEKLY"
	events := []models.Event{
		{ID: "evt-2", Title: "Series", StartTime: start, EndTime: start.Add(time.Hour), OrganizerID: "mentor-1", RRule: &rule},
	}
	invRepo := &fakeInvitationRepo{}
	handler := newInvitationTestHandler(events, invRepo)

	body := `{"responseStatus":"declined"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/calendar/events/evt-2/response", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "evt-2"}}
	withClaims(c, "usr-1")

	handler.Respond(c)
	require.Equal(t, http.StatusConflict, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "SERIES_SCOPE_REQUIRED", env.Error.Code)
	assert.Empty(t, invRepo.applied)
}

func TestInvitationHandlerBulkSkipsDashboardInvalidationWhenNothingApplied(t *testing.T) {
	gin.SetMode(gin.TestMode)
	start := time.Now().UTC().Add(24 * time.Hour)
	rule := "FREQ=WEEKLY"
	events := []models.Event{
		{ID: "evt-2", Title: "Series", StartTime: start, EndTime: start.Add(time.Hour), OrganizerID: "mentor-1", RRule: &rule},
	}
	dashboards := &fakeDashboards{}
	handler := newInvitationTestHandlerWithDashboards(events, &fakeInvitationRepo{}, dashboards)

	// Every item fails (recurring without a scope), so the cached dashboard
	// still reflects reality and must survive.
	body := `{"items":[{"eventId":"evt-2","responseStatus":"accepted"}]}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/calendar/invitations/bulk-response", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c, "usr-1")

	handler.BulkRespond(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, dashboards.invalidated)
}

func TestInvitationHandlerBulkInvalidatesDashboardAfterSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	start := time.Now().UTC().Add(24 * time.Hour)
	events := []models.Event{
		{ID: "evt-1", Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour), OrganizerID: "mentor-1"},
	}
	dashboards := &fakeDashboards{}
	handler := newInvitationTestHandlerWithDashboards(events, &fakeInvitationRepo{}, dashboards)

	body := `{"items":[{"eventId":"evt-1","responseStatus":"accepted"}]}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/calendar/invitations/bulk-response", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c, "usr-1")

	handler.BulkRespond(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"usr-1"}, dashboards.invalidated)
}

func TestInvitationHandlerFeed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	start := time.Now().UTC().Add(24 * time.Hour)
	events := []models.Event{
		{ID: "evt-1", Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour), OrganizerID: "mentor-1"},
	}
	handler := newInvitationTestHandler(events, &fakeInvitationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/calendar/invitations/feed.ics", nil)
	withClaims(c, "usr-1")

	handler.Feed(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
}
