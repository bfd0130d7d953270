package models

import "time"

// LocationType classifies where a calendar event takes place.
type LocationType string

const (
	LocationMeet    LocationType = "meet"
	LocationZoom    LocationType = "zoom"
	LocationCall    LocationType = "call"
	LocationCustom  LocationType = "custom"
	LocationUnknown LocationType = "unknown"
)

// Event is a calendar entry. A row with a non-empty RRule is the head of a
// recurring series; a row with a SeriesID is a materialised occurrence that
// was split off its series (for example by a thisAndFollowing update).
type Event struct {
	ID           string       `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	StartTime    time.Time    `db:"start_time" json:"start_time"`
	EndTime      time.Time    `db:"end_time" json:"end_time"`
	OrganizerID  string       `db:"organizer_id" json:"organizer_id"`
	LocationType LocationType `db:"location_type" json:"location_type"`
	LocationLink *string      `db:"location_link" json:"location_link,omitempty"`
	RRule        *string      `db:"rrule" json:"rrule,omitempty"`
	SeriesID     *string      `db:"series_id" json:"series_id,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// IsRecurring reports whether a response to this event is ambiguous between
// single-occurrence and series-wide scopes.
func (e *Event) IsRecurring() bool {
	if e == nil {
		return false
	}
	if e.SeriesID != nil && *e.SeriesID != "" {
		return true
	}
	return e.RRule != nil && *e.RRule != ""
}

// EventFilter narrows down events for range queries.
type EventFilter struct {
	From        time.Time
	To          time.Time
	OrganizerID string
}
