package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiklab/portal-api/internal/models"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

func standaloneEvent() models.Event {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return models.Event{
		ID:        "evt-solo",
		Title:     "1:1 mentoring",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func recurringEvent() models.Event {
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	rule := "FREQ=WEEKLY;BYDAY=TU"
	return models.Event{
		ID:        "evt-series",
		Title:     "Weekly standup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		RRule:     &rule,
	}
}

func TestResolverStandaloneSubmitsWithoutScope(t *testing.T) {
	r := NewResponseResolver(standaloneEvent())
	require.NoError(t, r.Choose(models.ResponseAccepted))
	require.Equal(t, StateActionChosen, r.State())

	params, err := r.Begin()
	require.NoError(t, err)
	assert.Nil(t, params.Scope)
	assert.Nil(t, params.OccurrenceStart)
	assert.Equal(t, models.ResponseAccepted, params.Status)
	assert.Equal(t, StateSubmitting, r.State())

	r.Complete()
	assert.Equal(t, StateResolved, r.State())
}

func TestResolverRecurringRequiresScope(t *testing.T) {
	r := NewResponseResolver(recurringEvent())
	require.NoError(t, r.Choose(models.ResponseDeclined))
	require.Equal(t, StateAwaitingScope, r.State())

	_, err := r.Begin()
	require.ErrorIs(t, err, appErrors.ErrSeriesScopeRequired)
}

func TestResolverRecurringNeverDefaultsScope(t *testing.T) {
	for _, status := range []models.ResponseStatus{
		models.ResponseAccepted,
		models.ResponseDeclined,
	} {
		r := NewResponseResolver(recurringEvent())
		require.NoError(t, r.Choose(status))
		_, err := r.Begin()
		require.ErrorIs(t, err, appErrors.ErrSeriesScopeRequired, "status %s", status)
	}
}

func TestResolverRecurringWithScope(t *testing.T) {
	occ := time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)
	r := NewResponseResolver(recurringEvent())
	require.NoError(t, r.Choose(models.ResponseAccepted))
	require.NoError(t, r.SelectScope(models.ScopeThisAndFollowing, occ))

	params, err := r.Begin()
	require.NoError(t, err)
	require.NotNil(t, params.Scope)
	assert.Equal(t, models.ScopeThisAndFollowing, *params.Scope)
	require.NotNil(t, params.OccurrenceStart)
	assert.True(t, params.OccurrenceStart.Equal(occ))
}

func TestResolverAllEventsDropsOccurrenceStart(t *testing.T) {
	occ := time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)
	r := NewResponseResolver(recurringEvent())
	require.NoError(t, r.Choose(models.ResponseDeclined))
	require.NoError(t, r.SelectScope(models.ScopeAllEvents, occ))

	params, err := r.Begin()
	require.NoError(t, err)
	assert.Nil(t, params.OccurrenceStart)
}

func TestResolverStandaloneRejectsSeriesScopes(t *testing.T) {
	r := NewResponseResolver(standaloneEvent())
	require.NoError(t, r.Choose(models.ResponseAccepted))

	err := r.SelectScope(models.ScopeThisAndFollowing, time.Now())
	require.ErrorIs(t, err, appErrors.ErrScopeNotApplicable)
	err = r.SelectScope(models.ScopeAllEvents, time.Now())
	require.ErrorIs(t, err, appErrors.ErrScopeNotApplicable)

	// thisEvent is tolerated on a standalone occurrence and treated as no
	// scope at all.
	require.NoError(t, r.SelectScope(models.ScopeThisEvent, time.Now()))
	params, err := r.Begin()
	require.NoError(t, err)
	assert.Nil(t, params.Scope)
}

func TestResolverProposalRequired(t *testing.T) {
	r := NewResponseResolver(standaloneEvent())
	require.NoError(t, r.Choose(models.ResponseProposedNewTime))

	_, err := r.Begin()
	require.ErrorIs(t, err, appErrors.ErrProposalRequired)
}

func TestResolverProposalEmptyReasonAllowed(t *testing.T) {
	r := NewResponseResolver(standaloneEvent())
	require.NoError(t, r.Choose(models.ResponseProposedNewTime))

	start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	require.NoError(t, r.AttachProposal(models.ProposedTime{Start: start, End: start.Add(time.Hour)}))

	params, err := r.Begin()
	require.NoError(t, err)
	require.NotNil(t, params.Proposal)
	assert.Empty(t, params.Proposal.Reason)
}

func TestResolverProposalRejectsInvertedRange(t *testing.T) {
	r := NewResponseResolver(standaloneEvent())
	require.NoError(t, r.Choose(models.ResponseProposedNewTime))

	start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	err := r.AttachProposal(models.ProposedTime{Start: start, End: start})
	require.Error(t, err)
}

func TestResolverFailurePreservesScopeAndProposal(t *testing.T) {
	occ := time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)
	r := NewResponseResolver(recurringEvent())
	require.NoError(t, r.Choose(models.ResponseProposedNewTime))
	require.NoError(t, r.SelectScope(models.ScopeThisEvent, occ))
	start := time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.AttachProposal(models.ProposedTime{Start: start, End: start.Add(time.Hour), Reason: "conflict"}))

	_, err := r.Begin()
	require.NoError(t, err)
	r.Fail(errors.New("network down"))
	require.Equal(t, StateFailed, r.State())
	require.Error(t, r.LastError())

	// The retry submits without re-entering scope or proposal.
	params, err := r.Begin()
	require.NoError(t, err)
	require.NotNil(t, params.Scope)
	assert.Equal(t, models.ScopeThisEvent, *params.Scope)
	require.NotNil(t, params.Proposal)
	assert.Equal(t, "conflict", params.Proposal.Reason)
}

func TestResolverSwitchingActionClearsProposal(t *testing.T) {
	r := NewResponseResolver(standaloneEvent())
	require.NoError(t, r.Choose(models.ResponseProposedNewTime))
	start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	require.NoError(t, r.AttachProposal(models.ProposedTime{Start: start, End: start.Add(time.Hour)}))

	require.NoError(t, r.Choose(models.ResponseAccepted))
	params, err := r.Begin()
	require.NoError(t, err)
	assert.Nil(t, params.Proposal)
}

func TestResolverBeginDropsProposalOnAcceptAndDecline(t *testing.T) {
	start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	for _, status := range []models.ResponseStatus{
		models.ResponseAccepted,
		models.ResponseDeclined,
	} {
		r := NewResponseResolver(standaloneEvent())
		require.NoError(t, r.Choose(status))
		require.NoError(t, r.AttachProposal(models.ProposedTime{Start: start, End: start.Add(time.Hour), Reason: "stale dialog state"}))

		params, err := r.Begin()
		require.NoError(t, err)
		assert.Nil(t, params.Proposal, "status %s", status)
	}
}

func TestResolverCancelResets(t *testing.T) {
	r := NewResponseResolver(recurringEvent())
	require.NoError(t, r.Choose(models.ResponseAccepted))
	require.NoError(t, r.SelectScope(models.ScopeAllEvents, time.Time{}))

	r.Cancel()
	require.Equal(t, StateIdle, r.State())
	_, err := r.Begin()
	require.Error(t, err)
}
