package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studiklab/portal-api/internal/models"
)

// EventRepository persists calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = "id, title, description, start_time, end_time, organizer_id, location_type, location_link, rrule, series_id, created_at, updated_at"

// FindByID fetches a single event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var ev models.Event
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	if err := r.db.GetContext(ctx, &ev, query, id); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListInvitedInRange returns events the user is invited to whose own window,
// or whose series, can produce occurrences overlapping [from, to]. Recurring
// rows are matched on start alone since their occurrences extend past the
// stored end.
func (r *EventRepository) ListInvitedInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Event, error) {
	query := `SELECT DISTINCT e.id, e.title, e.description, e.start_time, e.end_time, e.organizer_id,
e.location_type, e.location_link, e.rrule, e.series_id, e.created_at, e.updated_at
FROM events e
JOIN invitations i ON i.event_id = e.id
WHERE i.user_id = $1
  AND e.start_time <= $3
  AND (e.rrule IS NOT NULL AND e.rrule <> '' OR e.end_time >= $2)
ORDER BY e.start_time ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list invited events: %w", err)
	}
	return events, nil
}

// ListByOrganizer returns events the user organizes within a range.
func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID string, from, to time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events
WHERE organizer_id = $1
  AND start_time <= $3
  AND (rrule IS NOT NULL AND rrule <> '' OR end_time >= $2)
ORDER BY start_time ASC`, eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, organizerID, from, to); err != nil {
		return nil, fmt.Errorf("list organizer events: %w", err)
	}
	return events, nil
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, ev *models.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	query := `INSERT INTO events (id, title, description, start_time, end_time, organizer_id, location_type, location_link, rrule, series_id, created_at, updated_at)
VALUES (:id, :title, :description, :start_time, :end_time, :organizer_id, :location_type, :location_link, :rrule, :series_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update persists mutable event fields.
func (r *EventRepository) Update(ctx context.Context, ev *models.Event) error {
	ev.UpdatedAt = time.Now().UTC()
	query := `UPDATE events SET title = :title, description = :description, start_time = :start_time, end_time = :end_time,
location_type = :location_type, location_link = :location_link, rrule = :rrule, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event and cascades its invitations.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// AttendeeCounts returns, per event, how many invitees have accepted.
func (r *EventRepository) AttendeeCounts(ctx context.Context, eventIDs []string) (map[string]int, error) {
	if len(eventIDs) == 0 {
		return map[string]int{}, nil
	}
	query, args, err := sqlx.In(`SELECT event_id, COUNT(*) AS accepted FROM invitations
WHERE event_id IN (?) AND occurrence_start IS NULL AND status = 'accepted'
GROUP BY event_id`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("attendee counts: %w", err)
	}
	query = r.db.Rebind(query)

	rows := []struct {
		EventID  string `db:"event_id"`
		Accepted int    `db:"accepted"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendee counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.EventID] = row.Accepted
	}
	return counts, nil
}
