package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studiklab/portal-api/internal/dto"
)

func TestFeedSkipsDeclined(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	items := []dto.InvitationItem{
		{EventID: "evt-1", Title: "Standup", Start: start, End: start.Add(30 * time.Minute), Status: "accepted"},
		{EventID: "evt-2", Title: "Review", Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), Status: "declined"},
		{EventID: "evt-3", Title: "Retro", Start: start.Add(3 * time.Hour), End: start.Add(4 * time.Hour), Status: "needsAction"},
	}

	out := Feed("My calendar", items, start)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Standup")
	assert.Contains(t, out, "SUMMARY:Retro")
	assert.NotContains(t, out, "SUMMARY:Review")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestFeedStatusMapping(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	items := []dto.InvitationItem{
		{EventID: "evt-1", Title: "Standup", Start: start, End: start.Add(time.Hour), Status: "accepted"},
		{EventID: "evt-2", Title: "Pairing", Start: start, End: start.Add(time.Hour), Status: "proposedNewTime"},
	}

	out := Feed("My calendar", items, start)

	assert.Contains(t, out, "STATUS:CONFIRMED")
	assert.Contains(t, out, "STATUS:TENTATIVE")
}
