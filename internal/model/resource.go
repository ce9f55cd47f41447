package model

import (
	"fmt"
	"time"
)

const (
	DefaultStartHour = 9
	DefaultEndHour   = 18
)

// DefaultWorkingDays is Monday through Friday.
var DefaultWorkingDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// WorkingHours is an inclusive hour range, e.g. 9..18.
type WorkingHours struct {
	StartHour int `json:"start_hour" yaml:"start_hour"`
	EndHour   int `json:"end_hour" yaml:"end_hour"`
}

// Resource is a schedulable provider supplied by the directory.
type Resource struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Color        string         `json:"color,omitempty"`
	WorkingDays  []time.Weekday `json:"working_days,omitempty"`
	WorkingHours *WorkingHours  `json:"working_hours,omitempty"`
}

// StartHour returns the configured start hour or the default.
func (r Resource) StartHour() int {
	if r.WorkingHours == nil {
		return DefaultStartHour
	}
	return r.WorkingHours.StartHour
}

// EndHour returns the configured end hour or the default.
func (r Resource) EndHour() int {
	if r.WorkingHours == nil {
		return DefaultEndHour
	}
	return r.WorkingHours.EndHour
}

// Days returns the configured working days or the default set.
func (r Resource) Days() []time.Weekday {
	if len(r.WorkingDays) == 0 {
		return DefaultWorkingDays
	}
	return r.WorkingDays
}

// WorksOn reports whether the weekday is a working day for the resource.
func (r Resource) WorksOn(day time.Weekday) bool {
	for _, d := range r.Days() {
		if d == day {
			return true
		}
	}
	return false
}

// Validate checks the optional working-hours and working-days configuration.
func (r Resource) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("resource id is required")
	}
	if wh := r.WorkingHours; wh != nil {
		if wh.StartHour < 0 || wh.StartHour > 23 || wh.EndHour < 0 || wh.EndHour > 23 {
			return fmt.Errorf("resource %s: working hours must be within 0-23", r.ID)
		}
		if wh.EndHour < wh.StartHour {
			return fmt.Errorf("resource %s: end hour must not be before start hour", r.ID)
		}
	}
	for _, d := range r.WorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("resource %s: invalid weekday %d", r.ID, d)
		}
	}
	return nil
}

// FindResource returns the resource with the given id.
func FindResource(resources []Resource, id string) (Resource, bool) {
	for _, r := range resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Role describes what the viewing actor may schedule.
type Role string

const (
	RoleProvider Role = "provider"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Actor is the identity viewing the calendar.
type Actor struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	ResourceID string `json:"resource_id,omitempty"`
}

// SingleResource reports whether the actor only ever sees their own column.
func (a Actor) SingleResource() bool {
	return a.Role == RoleProvider && a.ResourceID != ""
}
