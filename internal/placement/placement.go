// Package placement maps appointments onto (date, hour, resource) grid
// buckets and computes duration-preserving reschedules.
package placement

import (
	"sort"
	"time"

	"praxis/internal/model"
)

// BucketKey identifies one grid cell.
type BucketKey struct {
	Date       string `json:"date"` // YYYY-MM-DD
	Hour       int    `json:"hour"`
	ResourceID string `json:"resource_id"`
}

// KeyOf returns the bucket an appointment starts in, evaluated in loc.
func KeyOf(a model.Appointment, loc *time.Location) BucketKey {
	if loc == nil {
		loc = time.Local
	}
	start := a.Start.In(loc)
	return BucketKey{Date: start.Format(model.DateLayout), Hour: start.Hour(), ResourceID: a.ResourceID}
}

// InBucket reports whether a starts on date's calendar day within hour. An
// empty resourceID matches every resource. Minutes are ignored.
func InBucket(a model.Appointment, date time.Time, hour int, resourceID string) bool {
	if resourceID != "" && a.ResourceID != resourceID {
		return false
	}
	start := a.Start.In(date.Location())
	return model.SameDate(start, date) && start.Hour() == hour
}

// ForBucket returns the appointments placed in one cell, ordered by exact
// start time.
func ForBucket(appts []model.Appointment, date time.Time, hour int, resourceID string) []model.Appointment {
	var out []model.Appointment
	for _, a := range appts {
		if InBucket(a, date, hour, resourceID) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Grid indexes appointments by bucket. Appointments sharing a bucket keep
// their exact timestamps and are ordered by start.
func Grid(appts []model.Appointment, loc *time.Location) map[BucketKey][]model.Appointment {
	grid := make(map[BucketKey][]model.Appointment)
	for _, a := range appts {
		k := KeyOf(a, loc)
		grid[k] = append(grid[k], a)
	}
	for k := range grid {
		cell := grid[k]
		sort.SliceStable(cell, func(i, j int) bool { return cell[i].Start.Before(cell[j].Start) })
	}
	return grid
}

// Collisions returns the buckets that hold more than one appointment for
// the same resource.
func Collisions(grid map[BucketKey][]model.Appointment) []BucketKey {
	var keys []BucketKey
	for k, cell := range grid {
		if len(cell) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		if keys[i].Hour != keys[j].Hour {
			return keys[i].Hour < keys[j].Hour
		}
		return keys[i].ResourceID < keys[j].ResourceID
	})
	return keys
}
