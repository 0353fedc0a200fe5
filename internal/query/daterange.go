// file: internal/query/daterange.go
// version: 1.0.0
// guid: 8b9c0d1e-2f3a-4b5c-6d7e-8f9a0b1c2d3e

package query

import (
	"time"

	"github.com/gofleetadvisor/fleetdocs/internal/models"
)

// Clock supplies "now" for symbolic range resolution. The default is the
// wall clock; tests inject a fixed one.
type Clock func() time.Time

// ResolveRange expands a symbolic or partial date range into a concrete
// inclusive [start, end] interval: start at 00:00:00 and end at 23:59:59 of
// the boundary days. Weeks run Monday through Sunday in the clock's
// location. Returns ok=false when the range carries no constraint.
func ResolveRange(r models.DateRange, now Clock) (start, end time.Time, ok bool) {
	if r.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	if now == nil {
		now = time.Now
	}
	n := now()

	switch r.Kind {
	case models.RangeThisWeek:
		start = startOfWeek(n)
		end = start.AddDate(0, 0, 6)
	case models.RangeLastWeek:
		start = startOfWeek(n).AddDate(0, 0, -7)
		end = start.AddDate(0, 0, 6)
	case models.RangeThisMonth:
		start = time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, n.Location())
		end = start.AddDate(0, 1, -1)
	case models.RangeLastMonth:
		first := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, n.Location())
		start = first.AddDate(0, -1, 0)
		end = first.AddDate(0, 0, -1)
	case models.RangeMonth:
		year := r.Year
		if year == 0 {
			year = n.Year()
		}
		start = time.Date(year, r.Month, 1, 0, 0, 0, 0, n.Location())
		end = start.AddDate(0, 1, -1)
	default:
		// Explicit bounds; an open side defaults to the distant past/future.
		start = r.Start
		end = r.End
		if start.IsZero() {
			start = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		if end.IsZero() {
			end = time.Date(2999, 12, 31, 0, 0, 0, 0, time.UTC)
		}
	}

	start = truncateToDay(start)
	end = endOfDay(end)
	return start, end, true
}

// startOfWeek returns midnight Monday of the week containing t.
func startOfWeek(t time.Time) time.Time {
	day := truncateToDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
