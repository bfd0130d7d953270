package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/internal/repository"
	"github.com/studiklab/portal-api/pkg/config"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

type stubEventRepo struct {
	events []models.Event
	counts map[string]int
}

func (s *stubEventRepo) FindByID(_ context.Context, id string) (*models.Event, error) {
	for i := range s.events {
		if s.events[i].ID == id {
			return &s.events[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubEventRepo) ListInvitedInRange(_ context.Context, _ string, _, _ time.Time) ([]models.Event, error) {
	return s.events, nil
}

func (s *stubEventRepo) AttendeeCounts(_ context.Context, _ []string) (map[string]int, error) {
	if s.counts == nil {
		return map[string]int{}, nil
	}
	return s.counts, nil
}

type stubInvitationRepo struct {
	rows     []models.Invitation
	bases    map[string]bool
	applied  []repository.ResponseParams
	applyErr error
}

func (s *stubInvitationRepo) FindBase(_ context.Context, eventID, userID string) (*models.Invitation, error) {
	if s.bases != nil && !s.bases[eventID+"/"+userID] {
		return nil, sql.ErrNoRows
	}
	return &models.Invitation{EventID: eventID, UserID: userID, Status: models.ResponseNeedsAction}, nil
}

func (s *stubInvitationRepo) ListForUser(_ context.Context, _ string, _ []string) ([]models.Invitation, error) {
	return s.rows, nil
}

func (s *stubInvitationRepo) ApplyResponse(_ context.Context, p repository.ResponseParams) (*models.Invitation, error) {
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	s.applied = append(s.applied, p)
	now := time.Now()
	return &models.Invitation{
		ID:              "inv-written",
		EventID:         p.EventID,
		UserID:          p.UserID,
		OccurrenceStart: p.OccurrenceStart,
		Status:          p.Status,
		ResponseOption:  p.Scope,
		RespondedAt:     &now,
	}, nil
}

type stubLocker struct {
	held     map[string]bool
	released []string
}

func (s *stubLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.held[key] {
		return false, nil
	}
	return true, nil
}

func (s *stubLocker) ReleaseLock(_ context.Context, key string) error {
	s.released = append(s.released, key)
	return nil
}

type stubAuditor struct {
	entries []*models.AuditLog
}

func (s *stubAuditor) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func newTestInvitationService(events *stubEventRepo, invitations *stubInvitationRepo, locker *stubLocker) (*InvitationService, *stubAuditor) {
	auditor := &stubAuditor{}
	cfg := config.CalendarConfig{
		DefaultPageSize:        20,
		MaxExpandedOccurrences: 500,
		SubmissionLockTTL:      10 * time.Second,
	}
	return NewInvitationService(events, invitations, locker, auditor, cfg, zap.NewNop()), auditor
}

func makeStandaloneEvents(n int, organizerID string, base time.Time) []models.Event {
	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		events = append(events, models.Event{
			ID:          fmt.Sprintf("evt-%02d", i),
			Title:       fmt.Sprintf("Session %d", i),
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
			OrganizerID: organizerID,
		})
	}
	return events
}

func TestInvitationListFiltersOrganizerOwnedBeforePaginating(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := makeStandaloneEvents(20, "mentor-1", base)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(100+i) * time.Hour)
		events = append(events, models.Event{
			ID:          fmt.Sprintf("own-%d", i),
			Title:       "My own session",
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
			OrganizerID: "usr-1",
		})
	}

	svc, _ := newTestInvitationService(&stubEventRepo{events: events}, &stubInvitationRepo{}, &stubLocker{})
	items, pagination, err := svc.List(context.Background(), "usr-1", dto.ListInvitationsQuery{
		From: base,
		To:   base.AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	// 23 events minus the 3 the user organizes leave exactly one full page.
	assert.Len(t, items, 20)
	assert.Equal(t, 20, pagination.TotalCount)
	assert.Equal(t, 1, pagination.TotalPages)
	for _, item := range items {
		assert.NotEqual(t, "usr-1", item.OrganizerID)
	}
}

func TestInvitationListClampsPage(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := makeStandaloneEvents(25, "mentor-1", base)
	svc, _ := newTestInvitationService(&stubEventRepo{events: events}, &stubInvitationRepo{}, &stubLocker{})

	query := dto.ListInvitationsQuery{From: base, To: base.AddDate(0, 1, 0), Page: 99}
	items, pagination, err := svc.List(context.Background(), "usr-1", query)
	require.NoError(t, err)
	assert.Equal(t, 2, pagination.TotalPages)
	assert.Equal(t, 2, pagination.Page)
	assert.Len(t, items, 5)

	query.Page = -3
	_, pagination, err = svc.List(context.Background(), "usr-1", query)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
}

func TestInvitationListEmptyStillOnePage(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestInvitationService(&stubEventRepo{}, &stubInvitationRepo{}, &stubLocker{})

	items, pagination, err := svc.List(context.Background(), "usr-1", dto.ListInvitationsQuery{From: base, To: base.AddDate(0, 1, 0)})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, pagination.TotalPages)
	assert.Equal(t, 1, pagination.Page)
}

func TestRespondStandalone(t *testing.T) {
	events := &stubEventRepo{events: []models.Event{standaloneEvent()}}
	invitations := &stubInvitationRepo{}
	locker := &stubLocker{}
	svc, auditor := newTestInvitationService(events, invitations, locker)

	out, err := svc.Respond(context.Background(), "usr-1", "evt-solo", dto.RespondRequest{
		ResponseStatus: "accepted",
	})
	require.NoError(t, err)
	assert.Equal(t, "accepted", out.ResponseStatus)

	require.Len(t, invitations.applied, 1)
	assert.Nil(t, invitations.applied[0].Scope)
	assert.Equal(t, "usr-1", invitations.applied[0].UserID)
	assert.Len(t, auditor.entries, 1)
	assert.Len(t, locker.released, 1)
}

func TestRespondAcceptDiscardsAttachedProposal(t *testing.T) {
	events := &stubEventRepo{events: []models.Event{standaloneEvent()}}
	invitations := &stubInvitationRepo{}
	svc, _ := newTestInvitationService(events, invitations, &stubLocker{})

	start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	out, err := svc.Respond(context.Background(), "usr-1", "evt-solo", dto.RespondRequest{
		ResponseStatus: "accepted",
		ProposedTime:   &dto.ProposedTimePayload{Start: start, End: start.Add(time.Hour), Reason: "stale dialog state"},
	})
	require.NoError(t, err)
	assert.Equal(t, "accepted", out.ResponseStatus)

	require.Len(t, invitations.applied, 1)
	assert.Nil(t, invitations.applied[0].Proposal)
}

func TestRespondRecurringWithoutScopeRejected(t *testing.T) {
	events := &stubEventRepo{events: []models.Event{recurringEvent()}}
	invitations := &stubInvitationRepo{}
	svc, _ := newTestInvitationService(events, invitations, &stubLocker{})

	_, err := svc.Respond(context.Background(), "usr-1", "evt-series", dto.RespondRequest{
		ResponseStatus: "declined",
	})
	require.ErrorIs(t, err, appErrors.ErrSeriesScopeRequired)
	assert.Empty(t, invitations.applied)
}

func TestRespondRecurringThisAndFollowing(t *testing.T) {
	events := &stubEventRepo{events: []models.Event{recurringEvent()}}
	invitations := &stubInvitationRepo{}
	svc, _ := newTestInvitationService(events, invitations, &stubLocker{})

	occ := time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)
	out, err := svc.Respond(context.Background(), "usr-1", "evt-series", dto.RespondRequest{
		ResponseStatus:  "accepted",
		ResponseOption:  "thisAndFollowing",
		OccurrenceStart: &occ,
	})
	require.NoError(t, err)
	assert.Equal(t, "thisAndFollowing", out.ResponseOption)

	require.Len(t, invitations.applied, 1)
	require.NotNil(t, invitations.applied[0].OccurrenceStart)
	assert.True(t, invitations.applied[0].OccurrenceStart.Equal(occ))
}

func TestRespondOrganizerForbidden(t *testing.T) {
	ev := standaloneEvent()
	ev.OrganizerID = "usr-1"
	svc, _ := newTestInvitationService(&stubEventRepo{events: []models.Event{ev}}, &stubInvitationRepo{}, &stubLocker{})

	_, err := svc.Respond(context.Background(), "usr-1", ev.ID, dto.RespondRequest{ResponseStatus: "accepted"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestRespondLockedSubmission(t *testing.T) {
	ev := standaloneEvent()
	locker := &stubLocker{held: map[string]bool{"invitation:submit:evt-solo:usr-1": true}}
	svc, _ := newTestInvitationService(&stubEventRepo{events: []models.Event{ev}}, &stubInvitationRepo{}, locker)

	_, err := svc.Respond(context.Background(), "usr-1", "evt-solo", dto.RespondRequest{ResponseStatus: "accepted"})
	require.ErrorIs(t, err, appErrors.ErrSubmissionInFlight)
}

func TestBulkRespondMixedOutcomes(t *testing.T) {
	events := &stubEventRepo{events: []models.Event{standaloneEvent(), recurringEvent()}}
	invitations := &stubInvitationRepo{}
	svc, _ := newTestInvitationService(events, invitations, &stubLocker{})

	outcomes := svc.BulkRespond(context.Background(), "usr-1", dto.BulkResponseRequest{
		Items: []dto.BulkResponseItem{
			{EventID: "evt-solo", ResponseStatus: "accepted"},
			{EventID: "evt-series", ResponseStatus: "accepted"},
			{EventID: "evt-series", ResponseStatus: "accepted", ResponseOption: "allEvents"},
			{EventID: "evt-solo", ResponseStatus: "proposedNewTime"},
		},
	})
	require.Len(t, outcomes, 4)
	assert.True(t, outcomes[0].OK)
	assert.False(t, outcomes[1].OK)
	assert.Equal(t, appErrors.ErrSeriesScopeRequired.Code, outcomes[1].ErrorCode)
	assert.True(t, outcomes[2].OK)
	assert.False(t, outcomes[3].OK)
}

func TestEffectiveResponseResolution(t *testing.T) {
	occ1 := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	occ2 := occ1.AddDate(0, 0, 7)
	occ3 := occ1.AddDate(0, 0, 14)

	rows := []models.Invitation{
		{ID: "base", Status: models.ResponseAccepted},
		{ID: "single", OccurrenceStart: &occ2, Status: models.ResponseDeclined},
		{ID: "forward", OccurrenceStart: &occ3, AppliesForward: true, Status: models.ResponseProposedNewTime},
	}

	// Before any override the base row applies.
	got := effectiveResponse(rows, occ1)
	require.NotNil(t, got)
	assert.Equal(t, "base", got.ID)

	// An exact occurrence override beats everything.
	got = effectiveResponse(rows, occ2)
	require.NotNil(t, got)
	assert.Equal(t, "single", got.ID)

	// From occ3 onward the forward override governs.
	got = effectiveResponse(rows, occ3)
	require.NotNil(t, got)
	assert.Equal(t, "forward", got.ID)
	got = effectiveResponse(rows, occ3.AddDate(0, 0, 21))
	require.NotNil(t, got)
	assert.Equal(t, "forward", got.ID)
}
