// Package live groups a user's live events into calendar months for the
// attendance timeline.
package live

import (
	"fmt"
	"sort"
	"time"

	"github.com/livme/livme/internal/model"
)

// MonthGroup is one month of the timeline.
type MonthGroup struct {
	Key    string            `json:"month"`
	Year   int               `json:"year"`
	Month  time.Month        `json:"-"`
	Events []model.LiveEvent `json:"lives"`
}

// MonthKey is the label of the month containing d, e.g. "2024年3月".
func MonthKey(d model.Date) string {
	return fmt.Sprintf("%d年%d月", d.Year(), int(d.Month()))
}

// GroupByMonth buckets events by the year and month of their date. Buckets
// come newest month first and each bucket is sorted by date, newest first.
// Events on the same date keep their input order. The input slice is not
// modified.
func GroupByMonth(events []model.LiveEvent) []MonthGroup {
	sorted := make([]model.LiveEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	groups := []MonthGroup{}
	for _, e := range sorted {
		n := len(groups)
		if n > 0 && groups[n-1].Year == e.Date.Year() && groups[n-1].Month == e.Date.Month() {
			groups[n-1].Events = append(groups[n-1].Events, e)
			continue
		}
		groups = append(groups, MonthGroup{
			Key:    MonthKey(e.Date),
			Year:   e.Date.Year(),
			Month:  e.Date.Month(),
			Events: []model.LiveEvent{e},
		})
	}
	return groups
}

// Flatten concatenates the groups' events in order.
func Flatten(groups []MonthGroup) []model.LiveEvent {
	var out []model.LiveEvent
	for _, g := range groups {
		out = append(out, g.Events...)
	}
	return out
}

// Count is the number of events across all groups.
func Count(groups []MonthGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Events)
	}
	return n
}
