// Package daterange resolves the visible date window for a calendar view.
package daterange

import (
	"fmt"
	"strings"
	"time"
)

// View is the calendar zoom level.
type View string

const (
	Day   View = "day"
	Week  View = "week"
	Month View = "month"
)

// ParseView converts a wire value to a View.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case Day:
		return Day, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Direction is a navigation step.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// ParseDirection accepts "prev"/"previous" and "next".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prev", "previous":
		return Prev, nil
	case "next":
		return Next, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Range is an inclusive window from Start (00:00:00.000) to End (23:59:59.999).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the window, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days lists every calendar day in the window at midnight.
func (r Range) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// StartOfDay returns 00:00:00.000 of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Resolve computes the window for ref under view v. Unknown views resolve
// as a week, the calendar's initial view.
func Resolve(ref time.Time, v View) Range {
	switch v {
	case Day:
		return Range{Start: StartOfDay(ref), End: EndOfDay(ref)}
	case Month:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		last := first.AddDate(0, 1, -1)
		return Range{Start: first, End: EndOfDay(last)}
	default:
		// Weeks start on Monday; Sunday belongs to the week before.
		offset := int(ref.Weekday()) - 1
		if ref.Weekday() == time.Sunday {
			offset = 6
		}
		start := StartOfDay(ref.AddDate(0, 0, -offset))
		return Range{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
	}
}

// Step moves ref one view-sized step in dir. Month steps follow Go's
// calendar normalisation (Jan 31 + 1 month = Mar 3 or Mar 2).
func Step(ref time.Time, v View, dir Direction) time.Time {
	n := int(dir)
	switch v {
	case Day:
		return ref.AddDate(0, 0, n)
	case Month:
		return ref.AddDate(0, n, 0)
	default:
		return ref.AddDate(0, 0, 7*n)
	}
}
