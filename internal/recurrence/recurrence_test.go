package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiklab/portal-api/internal/models"
)

func weeklyEvent() models.Event {
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	rule := "FREQ=WEEKLY;BYDAY=TU"
	return models.Event{
		ID:        "evt-weekly",
		Title:     "Weekly standup",
		StartTime: start,
		EndTime:   start.Add(45 * time.Minute),
		RRule:     &rule,
	}
}

func TestExpandStandaloneInsideRange(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	ev := models.Event{ID: "evt-1", StartTime: start, EndTime: start.Add(time.Hour)}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	occurrences, err := Expand(ev, from, to, 0)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.True(t, occurrences[0].Start.Equal(start))
}

func TestExpandStandaloneOutsideRange(t *testing.T) {
	start := time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC)
	ev := models.Event{ID: "evt-1", StartTime: start, EndTime: start.Add(time.Hour)}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	occurrences, err := Expand(ev, from, to, 0)
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestExpandWeeklyRule(t *testing.T) {
	ev := weeklyEvent()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)

	occurrences, err := Expand(ev, from, to, 0)
	require.NoError(t, err)
	// Tuesdays in March 2026: the 3rd, 10th, 17th, 24th and 31st.
	require.Len(t, occurrences, 5)
	for i, occ := range occurrences {
		assert.Equal(t, time.Tuesday, occ.Start.Weekday())
		assert.Equal(t, 45*time.Minute, occ.End.Sub(occ.Start), "occurrence %d keeps the original duration", i)
	}
}

func TestExpandHonorsCap(t *testing.T) {
	ev := weeklyEvent()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)

	occurrences, err := Expand(ev, from, to, 3)
	require.NoError(t, err)
	assert.Len(t, occurrences, 3)
}

func TestExpandInvalidRule(t *testing.T) {
	ev := weeklyEvent()
	bad := "FREQ=SOMETIMES"
	ev.RRule = &bad

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	_, err := Expand(ev, from, to, 0)
	require.Error(t, err)
}

func TestExpandAllMergesSorted(t *testing.T) {
	weekly := weeklyEvent()
	soloStart := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	solo := models.Event{ID: "evt-solo", StartTime: soloStart, EndTime: soloStart.Add(time.Hour)}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	occurrences, err := ExpandAll([]models.Event{solo, weekly}, from, to, 0)
	require.NoError(t, err)
	require.NotEmpty(t, occurrences)
	for i := 1; i < len(occurrences); i++ {
		assert.False(t, occurrences[i].Start.Before(occurrences[i-1].Start))
	}
}

func TestValidRule(t *testing.T) {
	assert.NoError(t, ValidRule(""))
	assert.NoError(t, ValidRule("FREQ=DAILY;COUNT=10"))
	assert.Error(t, ValidRule("not a rule"))
}
