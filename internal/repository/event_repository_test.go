package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newEventRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEventRepositoryListInvitedInRange(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	rule := "FREQ=WEEKLY;BYDAY=TU"
	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "start_time", "end_time", "organizer_id",
		"location_type", "location_link", "rrule", "series_id", "created_at", "updated_at",
	}).
		AddRow("evt-1", "Standup", "", from.Add(9*time.Hour), from.Add(10*time.Hour), "org-1", "meet", nil, &rule, nil, from, from).
		AddRow("evt-2", "Review", "", from.Add(48*time.Hour), from.Add(49*time.Hour), "org-2", "zoom", nil, nil, nil, from, from)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN invitations i ON i.event_id = e.id")).
		WithArgs("usr-1", from, to).
		WillReturnRows(rows)

	events, err := repo.ListInvitedInRange(context.Background(), "usr-1", from, to)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.True(t, events[0].IsRecurring())
	require.False(t, events[1].IsRecurring())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryAttendeeCounts(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	rows := sqlmock.NewRows([]string{"event_id", "accepted"}).
		AddRow("evt-1", 5).
		AddRow("evt-2", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_id, COUNT(*) AS accepted FROM invitations")).
		WithArgs("evt-1", "evt-2").
		WillReturnRows(rows)

	counts, err := repo.AttendeeCounts(context.Background(), []string{"evt-1", "evt-2"})
	require.NoError(t, err)
	require.Equal(t, 5, counts["evt-1"])
	require.Equal(t, 2, counts["evt-2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryAttendeeCountsEmpty(t *testing.T) {
	db, _, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	counts, err := repo.AttendeeCounts(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, counts)
}
