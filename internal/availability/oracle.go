// Package availability answers whether a (date, time, resource) slot is bookable.
package availability

import (
	"hash/fnv"
	"time"

	"praxis/internal/model"
	"praxis/internal/slots"
)

// Oracle reports whether a slot can be booked.
type Oracle interface {
	IsAvailable(date time.Time, label string, r model.Resource) bool
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(date time.Time, label string, r model.Resource) bool

func (f OracleFunc) IsAvailable(date time.Time, label string, r model.Resource) bool {
	return f(date, label, r)
}

// IsWorkingDay reports whether date falls on one of the resource's working days.
func IsWorkingDay(date time.Time, r model.Resource) bool {
	return r.WorksOn(date.Weekday())
}

// IsWorkingHour reports whether the label's hour lies within the resource's
// inclusive working-hour range.
func IsWorkingHour(label string, r model.Resource) bool {
	hour, err := slots.LabelHour(label)
	if err != nil {
		return false
	}
	return hour >= r.StartHour() && hour <= r.EndHour()
}

// Occupied reports whether any booking for the resource starts in the same
// (date, hour) bucket as the label. Minutes are ignored.
func Occupied(date time.Time, label, resourceID string, bookings []model.Appointment) bool {
	hour, err := slots.LabelHour(label)
	if err != nil {
		return false
	}
	for _, b := range bookings {
		if b.ResourceID != resourceID {
			continue
		}
		start := b.Start.In(date.Location())
		if model.SameDate(start, date) && start.Hour() == hour {
			return true
		}
	}
	return false
}

// BookingOracle checks slots against appointments already fetched for the
// visible window.
type BookingOracle struct {
	byResource map[string][]model.Appointment
}

// NewBookingOracle indexes bookings by resource.
func NewBookingOracle(bookings []model.Appointment) *BookingOracle {
	idx := make(map[string][]model.Appointment)
	for _, b := range bookings {
		idx[b.ResourceID] = append(idx[b.ResourceID], b)
	}
	return &BookingOracle{byResource: idx}
}

// IsAvailable is working day AND working hour AND not occupied.
func (o *BookingOracle) IsAvailable(date time.Time, label string, r model.Resource) bool {
	if !IsWorkingDay(date, r) || !IsWorkingHour(label, r) {
		return false
	}
	return !Occupied(date, label, r.ID, o.byResource[r.ID])
}

// PlaceholderOracle stands in for a live availability feed in demo mode.
// Working-day and working-hour rules apply; past that a stable hash of
// date, label and resource id decides. Replace it with BookingOracle or a
// collaborator-backed Oracle in production.
type PlaceholderOracle struct {
	// BusyPercent is the share of working slots reported busy (0-100).
	BusyPercent uint32
}

// DefaultBusyPercent is used when BusyPercent is zero.
const DefaultBusyPercent = 30

func (o PlaceholderOracle) IsAvailable(date time.Time, label string, r model.Resource) bool {
	if !IsWorkingDay(date, r) || !IsWorkingHour(label, r) {
		return false
	}
	busy := o.BusyPercent
	if busy == 0 {
		busy = DefaultBusyPercent
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(date.Format(model.DateLayout) + "|" + label + "|" + r.ID))
	return h.Sum32()%100 >= busy
}
