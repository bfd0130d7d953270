package dto

import (
	"time"

	"github.com/studiklab/portal-api/internal/models"
)

// ListInvitationsQuery bounds an invitation listing.
type ListInvitationsQuery struct {
	From     time.Time `form:"from" time_format:"2006-01-02"`
	To       time.Time `form:"to" time_format:"2006-01-02"`
	Page     int       `form:"page"`
	PageSize int       `form:"pageSize"`
}

// ProposedTimePayload mirrors the wire shape of a proposed replacement time.
type ProposedTimePayload struct {
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
	Reason string    `json:"reason"`
}

// RespondRequest is one invitee's answer to one event.
//
// responseOption is required for recurring events and must be thisEvent,
// thisAndFollowing or allEvents. Standalone events may omit it or send
// thisEvent. occurrenceStart pins thisEvent and thisAndFollowing updates to a
// concrete occurrence. proposedTime is null unless responseStatus is
// proposedNewTime.
type RespondRequest struct {
	ResponseStatus  string               `json:"responseStatus" binding:"required"`
	ResponseOption  string               `json:"responseOption"`
	OccurrenceStart *time.Time           `json:"occurrenceStart"`
	ProposedTime    *ProposedTimePayload `json:"proposedTime"`
}

// InvitationItem is one occurrence of an invited event, carrying the response
// that currently applies to it.
type InvitationItem struct {
	EventID       string               `json:"eventId"`
	Title         string               `json:"title"`
	Description   string               `json:"description,omitempty"`
	Start         time.Time            `json:"start"`
	End           time.Time            `json:"end"`
	OrganizerID   string               `json:"organizerId"`
	OrganizerName string               `json:"organizerName,omitempty"`
	LocationType  string               `json:"locationType"`
	LocationLink  string               `json:"locationLink,omitempty"`
	Recurring     bool                 `json:"recurring"`
	Status        string               `json:"responseStatus"`
	ProposedTime  *ProposedTimePayload `json:"proposedTime,omitempty"`
	AcceptedCount int                  `json:"acceptedCount"`
}

// InvitationResponse echoes a persisted response back to the caller.
type InvitationResponse struct {
	EventID         string               `json:"eventId"`
	ResponseStatus  string               `json:"responseStatus"`
	ResponseOption  string               `json:"responseOption,omitempty"`
	OccurrenceStart *time.Time           `json:"occurrenceStart,omitempty"`
	ProposedTime    *ProposedTimePayload `json:"proposedTime,omitempty"`
	RespondedAt     *time.Time           `json:"respondedAt,omitempty"`
}

// NewInvitationResponse maps a stored invitation row to its wire shape.
func NewInvitationResponse(inv *models.Invitation) InvitationResponse {
	out := InvitationResponse{
		EventID:         inv.EventID,
		ResponseStatus:  string(inv.Status),
		OccurrenceStart: inv.OccurrenceStart,
		RespondedAt:     inv.RespondedAt,
	}
	if inv.ResponseOption != nil {
		out.ResponseOption = string(*inv.ResponseOption)
	}
	if p := inv.Proposal(); p != nil {
		out.ProposedTime = &ProposedTimePayload{Start: p.Start, End: p.End, Reason: p.Reason}
	}
	return out
}

// BulkResponseItem is one entry of a bulk accept or decline.
type BulkResponseItem struct {
	EventID         string     `json:"eventId" binding:"required"`
	ResponseStatus  string     `json:"responseStatus" binding:"required"`
	ResponseOption  string     `json:"responseOption"`
	OccurrenceStart *time.Time `json:"occurrenceStart"`
}

// BulkResponseRequest answers several invitations in one call.
type BulkResponseRequest struct {
	Items []BulkResponseItem `json:"items" binding:"required,min=1,dive"`
}

// BulkOutcome reports the per-item result of a bulk response. Recurring
// events that arrived without a scope fail with SERIES_SCOPE_REQUIRED and
// must be answered individually.
type BulkOutcome struct {
	EventID   string `json:"eventId"`
	OK        bool   `json:"ok"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}
