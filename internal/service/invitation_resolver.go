package service

import (
	"net/http"
	"time"

	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/internal/repository"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

// ResolverState names a step in the invitation response workflow.
type ResolverState string

const (
	StateIdle          ResolverState = "IDLE"
	StateActionChosen  ResolverState = "ACTION_CHOSEN"
	StateAwaitingScope ResolverState = "AWAITING_SCOPE"
	StateSubmitting    ResolverState = "SUBMITTING"
	StateResolved      ResolverState = "RESOLVED"
	StateFailed        ResolverState = "FAILED"
)

// ResponseResolver drives one invitee's answer to one event from action
// choice through scope disambiguation to submission.
//
// Recurring events never submit without an explicit scope; there is no
// default. A failed submission keeps the chosen scope and proposal so the
// invitee can retry without re-entering them.
type ResponseResolver struct {
	event models.Event

	state           ResolverState
	status          models.ResponseStatus
	scope           *models.UpdateScope
	occurrenceStart *time.Time
	proposal        *models.ProposedTime
	lastErr         error
}

// NewResponseResolver starts an idle resolver for one event.
func NewResponseResolver(event models.Event) *ResponseResolver {
	return &ResponseResolver{event: event, state: StateIdle}
}

// State returns the current workflow step.
func (r *ResponseResolver) State() ResolverState { return r.state }

// LastError returns the error recorded by the most recent Fail.
func (r *ResponseResolver) LastError() error { return r.lastErr }

// Choose records the invitee's action. Allowed from Idle, from a prior
// choice, and from Failed. Choosing again resets a stale proposal when the
// new action is not proposedNewTime.
func (r *ResponseResolver) Choose(status models.ResponseStatus) error {
	switch r.state {
	case StateIdle, StateActionChosen, StateAwaitingScope, StateFailed:
	default:
		return appErrors.New("INVALID_STATE", http.StatusConflict, "cannot choose an action while "+string(r.state))
	}
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown response status")
	}
	r.status = status
	if status != models.ResponseProposedNewTime {
		r.proposal = nil
	}
	if r.event.IsRecurring() && r.scope == nil {
		r.state = StateAwaitingScope
	} else {
		r.state = StateActionChosen
	}
	return nil
}

// SelectScope records the series scope for a recurring event. Non-recurring
// events accept only thisEvent, which is recorded as no scope at all.
func (r *ResponseResolver) SelectScope(scope models.UpdateScope, occurrenceStart time.Time) error {
	switch r.state {
	case StateActionChosen, StateAwaitingScope, StateFailed:
	default:
		return appErrors.New("INVALID_STATE", http.StatusConflict, "cannot select a scope while "+string(r.state))
	}
	if !scope.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown update scope")
	}
	if !r.event.IsRecurring() {
		if scope != models.ScopeThisEvent {
			return appErrors.ErrScopeNotApplicable
		}
		r.scope = nil
		r.occurrenceStart = nil
		r.state = StateActionChosen
		return nil
	}
	r.scope = &scope
	if scope == models.ScopeAllEvents {
		r.occurrenceStart = nil
	} else {
		start := occurrenceStart
		r.occurrenceStart = &start
	}
	r.state = StateActionChosen
	return nil
}

// AttachProposal records the proposed replacement time. The reason may be
// empty; the range must be forward.
func (r *ResponseResolver) AttachProposal(proposal models.ProposedTime) error {
	switch r.state {
	case StateActionChosen, StateAwaitingScope, StateFailed:
	default:
		return appErrors.New("INVALID_STATE", http.StatusConflict, "cannot attach a proposal while "+string(r.state))
	}
	if !proposal.End.After(proposal.Start) {
		return appErrors.Clone(appErrors.ErrValidation, "proposed end must be after proposed start")
	}
	r.proposal = &proposal
	return nil
}

// Begin validates the accumulated answer and transitions to Submitting,
// returning the write the repository should perform.
func (r *ResponseResolver) Begin() (repository.ResponseParams, error) {
	var zero repository.ResponseParams
	switch r.state {
	case StateActionChosen, StateAwaitingScope, StateFailed:
	default:
		return zero, appErrors.New("INVALID_STATE", http.StatusConflict, "cannot submit while "+string(r.state))
	}
	if r.status == "" {
		return zero, appErrors.Clone(appErrors.ErrValidation, "no response action chosen")
	}
	if r.event.IsRecurring() && r.scope == nil {
		return zero, appErrors.ErrSeriesScopeRequired
	}
	if r.scope != nil && *r.scope != models.ScopeAllEvents && r.occurrenceStart == nil {
		return zero, appErrors.Clone(appErrors.ErrValidation, "occurrence start required for this scope")
	}
	if r.status == models.ResponseProposedNewTime && r.proposal == nil {
		return zero, appErrors.ErrProposalRequired
	}
	// A proposal only rides with proposedNewTime. One attached alongside an
	// accept or decline is stale dialog state and must not reach storage.
	if r.status != models.ResponseProposedNewTime {
		r.proposal = nil
	}

	r.state = StateSubmitting
	r.lastErr = nil
	return repository.ResponseParams{
		EventID:         r.event.ID,
		Status:          r.status,
		Scope:           r.scope,
		OccurrenceStart: r.occurrenceStart,
		Proposal:        r.proposal,
	}, nil
}

// Complete marks the submission as persisted.
func (r *ResponseResolver) Complete() {
	if r.state == StateSubmitting {
		r.state = StateResolved
	}
}

// Fail records a submission failure. The chosen action, scope and proposal
// survive for a retry.
func (r *ResponseResolver) Fail(err error) {
	if r.state == StateSubmitting {
		r.state = StateFailed
		r.lastErr = err
	}
}

// Cancel abandons the workflow and clears everything entered so far.
func (r *ResponseResolver) Cancel() {
	*r = ResponseResolver{event: r.event, state: StateIdle}
}
