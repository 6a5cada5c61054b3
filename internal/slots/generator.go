// Package slots discretizes open windows into candidate reservation start
// times. Generation is a pure function of (windows, duration, granularity):
// identical inputs always yield identical sorted output, so callers can
// re-query idempotently after a conflict.
package slots

import (
	"sort"
	"time"

	"mesa/internal/models"
)

// DefaultGranularity is the slot step used when none is configured.
const DefaultGranularity = 30 * time.Minute

// Generate enumerates start times t = open, open+G, open+2G, ... for each
// window while t+duration still fits, concatenated across windows in
// chronological order. Returns nil when nothing fits.
func Generate(windows []models.Window, duration, granularity time.Duration) []time.Time {
	if duration <= 0 {
		return nil
	}
	if granularity <= 0 {
		granularity = DefaultGranularity
	}

	ordered := make([]models.Window, len(windows))
	copy(ordered, windows)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start.Before(ordered[j].Start) })

	var out []time.Time
	for _, w := range ordered {
		for cursor := w.Start; !cursor.Add(duration).After(w.End); cursor = cursor.Add(granularity) {
			out = append(out, cursor)
		}
	}
	return dedupe(out)
}

// FitsWindows reports whether [start, start+duration) lies entirely inside
// one of the windows.
func FitsWindows(windows []models.Window, start time.Time, duration time.Duration) bool {
	end := start.Add(duration)
	for _, w := range windows {
		if !start.Before(w.Start) && !end.After(w.End) {
			return true
		}
	}
	return false
}

// Format renders generated slots as "HH:MM" strings for the API surface.
func Format(starts []time.Time) []string {
	out := make([]string, len(starts))
	for i, s := range starts {
		out[i] = s.Format("15:04")
	}
	return out
}

func dedupe(starts []time.Time) []time.Time {
	if len(starts) < 2 {
		return starts
	}
	out := starts[:1]
	for _, s := range starts[1:] {
		if !s.Equal(out[len(out)-1]) {
			out = append(out, s)
		}
	}
	return out
}
