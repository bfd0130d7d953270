package dto

import "time"

// CreateEventRequest creates a calendar event, optionally recurring.
type CreateEventRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	Start        time.Time `json:"start" binding:"required"`
	End          time.Time `json:"end" binding:"required"`
	LocationType string    `json:"locationType"`
	LocationLink string    `json:"locationLink"`
	RRule        string    `json:"rrule"`
	InviteeIDs   []string  `json:"inviteeIds"`
}

// UpdateEventRequest edits an event the caller organizes.
type UpdateEventRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Start        *time.Time `json:"start"`
	End          *time.Time `json:"end"`
	LocationType *string    `json:"locationType"`
	LocationLink *string    `json:"locationLink"`
	RRule        *string    `json:"rrule"`
}

// EventAttendee is one invitee's standing as the organizer sees it.
type EventAttendee struct {
	UserID         string     `json:"userId"`
	ResponseStatus string     `json:"responseStatus"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
}
