package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/studiklab/portal-api/internal/models"
)

const defaultMaxOccurrences = 500

// Occurrence is one concrete instance of an event within a queried range.
type Occurrence struct {
	Event models.Event
	Start time.Time
	End   time.Time
}

// Expand returns the concrete occurrences of ev that overlap [from, to].
// Standalone events yield at most one occurrence; recurring events are
// expanded through their RRULE with the event's own start as DTSTART and the
// original duration preserved. maxOccurrences caps expansion per event; zero
// means the default cap.
func Expand(ev models.Event, from, to time.Time, maxOccurrences int) ([]Occurrence, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("recurrence: range end before start")
	}
	if maxOccurrences <= 0 {
		maxOccurrences = defaultMaxOccurrences
	}

	if ev.RRule == nil || *ev.RRule == "" {
		if ev.EndTime.Before(from) || ev.StartTime.After(to) {
			return nil, nil
		}
		return []Occurrence{{Event: ev, Start: ev.StartTime, End: ev.EndTime}}, nil
	}

	rule, err := rrule.StrToRRule(*ev.RRule)
	if err != nil {
		return nil, fmt.Errorf("recurrence: parse rrule for event %s: %w", ev.ID, err)
	}
	rule.DTStart(ev.StartTime)

	var set rrule.Set
	set.RRule(rule)

	// Between operates in the event's own location.
	rangeStart := from.In(ev.StartTime.Location())
	rangeEnd := to.In(ev.StartTime.Location())

	starts := set.Between(rangeStart, rangeEnd, true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	duration := ev.EndTime.Sub(ev.StartTime)
	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		occurrences = append(occurrences, Occurrence{
			Event: ev,
			Start: start,
			End:   start.Add(duration),
		})
	}
	return occurrences, nil
}

// ExpandAll expands every event into the range and returns the merged list
// ordered by start time.
func ExpandAll(events []models.Event, from, to time.Time, maxOccurrences int) ([]Occurrence, error) {
	all := make([]Occurrence, 0, len(events))
	for _, ev := range events {
		occurrences, err := Expand(ev, from, to, maxOccurrences)
		if err != nil {
			return nil, err
		}
		all = append(all, occurrences...)
	}
	sortOccurrences(all)
	return all, nil
}

// ValidRule reports whether raw parses as an RRULE.
func ValidRule(raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := rrule.StrToRRule(raw); err != nil {
		return fmt.Errorf("recurrence: invalid rrule: %w", err)
	}
	return nil
}

func sortOccurrences(occurrences []Occurrence) {
	sort.Slice(occurrences, func(i, j int) bool {
		if occurrences[i].Start.Equal(occurrences[j].Start) {
			return occurrences[i].Event.ID < occurrences[j].Event.ID
		}
		return occurrences[i].Start.Before(occurrences[j].Start)
	})
}
