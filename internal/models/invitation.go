package models

import "time"

// ResponseStatus is the invitee's answer to a calendar invitation.
type ResponseStatus string

const (
	ResponseNeedsAction     ResponseStatus = "needsAction"
	ResponseAccepted        ResponseStatus = "accepted"
	ResponseDeclined        ResponseStatus = "declined"
	ResponseProposedNewTime ResponseStatus = "proposedNewTime"
)

// Valid reports whether the status is one an invitee may submit.
func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponseAccepted, ResponseDeclined, ResponseProposedNewTime:
		return true
	}
	return false
}

// UpdateScope is the breadth of a response update across a recurring series.
// It has no meaning for standalone occurrences.
type UpdateScope string

const (
	ScopeThisEvent        UpdateScope = "thisEvent"
	ScopeThisAndFollowing UpdateScope = "thisAndFollowing"
	ScopeAllEvents        UpdateScope = "allEvents"
)

// Valid reports whether the scope is a known value.
func (s UpdateScope) Valid() bool {
	switch s {
	case ScopeThisEvent, ScopeThisAndFollowing, ScopeAllEvents:
		return true
	}
	return false
}

// ProposedTime is a candidate replacement time range plus a free-text reason.
// It only exists attached to a proposedNewTime response.
type ProposedTime struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason"`
}

// Invitation links an invitee to an event with their current response.
//
// For recurring series the same (event, user) pair can hold several rows: the
// base row (OccurrenceStart nil) carries the series-wide response, a row with
// OccurrenceStart set and AppliesForward false overrides a single occurrence,
// and a row with AppliesForward true overrides that occurrence and everything
// after it. The most specific row wins when occurrences are listed.
type Invitation struct {
	ID              string         `db:"id" json:"id"`
	EventID         string         `db:"event_id" json:"event_id"`
	UserID          string         `db:"user_id" json:"user_id"`
	OccurrenceStart *time.Time     `db:"occurrence_start" json:"occurrence_start,omitempty"`
	AppliesForward  bool           `db:"applies_forward" json:"applies_forward"`
	Status          ResponseStatus `db:"status" json:"status"`
	ResponseOption  *UpdateScope   `db:"response_option" json:"response_option,omitempty"`
	ProposedStart   *time.Time     `db:"proposed_start" json:"proposed_start,omitempty"`
	ProposedEnd     *time.Time     `db:"proposed_end" json:"proposed_end,omitempty"`
	ProposedReason  *string        `db:"proposed_reason" json:"proposed_reason,omitempty"`
	RespondedAt     *time.Time     `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Proposal returns the attached proposed time, or nil when none is stored.
func (i *Invitation) Proposal() *ProposedTime {
	if i == nil || i.ProposedStart == nil || i.ProposedEnd == nil {
		return nil
	}
	reason := ""
	if i.ProposedReason != nil {
		reason = *i.ProposedReason
	}
	return &ProposedTime{Start: *i.ProposedStart, End: *i.ProposedEnd, Reason: reason}
}
