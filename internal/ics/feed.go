package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/studiklab/portal-api/internal/dto"
)

const productID = "-//studiklab//portal-api//EN"

// Feed renders a user's invitation occurrences as an iCalendar document.
// Declined occurrences are skipped; everything else is exported with a STATUS
// reflecting the stored response so subscribing calendars mark tentative
// entries correctly.
func Feed(name string, items []dto.InvitationItem, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(name)
	cal.SetDescription(name)

	for _, item := range items {
		if item.Status == "declined" {
			continue
		}
		uid := fmt.Sprintf("%s-%d@portal", item.EventID, item.Start.Unix())
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(now)
		ev.SetStartAt(item.Start)
		ev.SetEndAt(item.End)
		ev.SetSummary(item.Title)
		if item.Description != "" {
			ev.SetDescription(item.Description)
		}
		if item.LocationLink != "" {
			ev.SetLocation(item.LocationLink)
		}
		ev.SetStatus(statusFor(item.Status))
	}
	return cal.Serialize()
}

func statusFor(responseStatus string) ical.ObjectStatus {
	switch responseStatus {
	case "accepted":
		return ical.ObjectStatusConfirmed
	case "proposedNewTime", "needsAction":
		return ical.ObjectStatusTentative
	default:
		return ical.ObjectStatusTentative
	}
}
