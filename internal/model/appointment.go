package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInterval = errors.New("appointment end must be after start")
	ErrUnknownCategory = errors.New("unknown appointment category")
	ErrMissingResource = errors.New("appointment resource is required")
)

// Category tags what kind of entry an appointment is.
type Category string

const (
	CategoryAppointment Category = "appointment"
	CategoryBreak       Category = "break"
	CategoryInternal    Category = "internal"
	CategoryExternal    Category = "external"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryAppointment, CategoryBreak, CategoryInternal, CategoryExternal}

// ParseCategory converts a wire tag to a Category. An empty tag means an
// ordinary appointment.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case "", CategoryAppointment:
		return CategoryAppointment, nil
	case CategoryBreak:
		return CategoryBreak, nil
	case CategoryInternal:
		return CategoryInternal, nil
	case CategoryExternal:
		return CategoryExternal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// UnmarshalJSON rejects tags outside the closed category set.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// BadgeColor returns the badge color used when the appointment has no
// color override.
func (c Category) BadgeColor() string {
	switch c {
	case CategoryAppointment:
		return "#3b82f6"
	case CategoryBreak:
		return "#9ca3af"
	case CategoryInternal:
		return "#8b5cf6"
	case CategoryExternal:
		return "#f59e0b"
	}
	panic(fmt.Sprintf("model: unhandled category %q", string(c)))
}

// ShowsStrikethrough reports whether a past entry of this category is struck
// through on the grid. Breaks and internal blocks never are.
func (c Category) ShowsStrikethrough() bool {
	switch c {
	case CategoryAppointment, CategoryExternal:
		return true
	case CategoryBreak, CategoryInternal:
		return false
	}
	panic(fmt.Sprintf("model: unhandled category %q", string(c)))
}

// Draggable reports whether entries of this category may be rescheduled by
// drag and drop.
func (c Category) Draggable() bool {
	switch c {
	case CategoryAppointment, CategoryInternal, CategoryExternal:
		return true
	case CategoryBreak:
		return false
	}
	panic(fmt.Sprintf("model: unhandled category %q", string(c)))
}

// Appointment is an immutable snapshot of a booked entry as returned by the
// appointment service.
type Appointment struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Category   Category  `json:"category"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes,omitempty"`
	ClientName string    `json:"client_name"`
	Color      string    `json:"color,omitempty"`
	Flagged    bool      `json:"flagged,omitempty"`
	FlagNote   string    `json:"flag_note,omitempty"`
}

// Draft holds the fields needed to create an appointment.
type Draft struct {
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Category   Category  `json:"category"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes,omitempty"`
	ClientName string    `json:"client_name"`
	Color      string    `json:"color,omitempty"`
	Flagged    bool      `json:"flagged,omitempty"`
	FlagNote   string    `json:"flag_note,omitempty"`
}

// Validate checks the draft against the appointment invariants.
func (d Draft) Validate() error {
	if d.ResourceID == "" {
		return ErrMissingResource
	}
	if !d.End.After(d.Start) {
		return ErrInvalidInterval
	}
	if _, err := ParseCategory(string(d.Category)); err != nil {
		return err
	}
	return nil
}

// NewAppointment builds an appointment from a draft. It is the only way an
// appointment with end <= start could be produced, and it refuses to.
func NewAppointment(id string, d Draft) (Appointment, error) {
	if err := d.Validate(); err != nil {
		return Appointment{}, err
	}
	category, _ := ParseCategory(string(d.Category))
	return Appointment{
		ID:         id,
		ResourceID: d.ResourceID,
		Start:      d.Start,
		End:        d.End,
		Category:   category,
		Title:      d.Title,
		Notes:      d.Notes,
		ClientName: d.ClientName,
		Color:      d.Color,
		Flagged:    d.Flagged,
		FlagNote:   d.FlagNote,
	}, nil
}

// UnmarshalJSON decodes an appointment and enforces end > start.
func (a *Appointment) UnmarshalJSON(data []byte) error {
	type raw Appointment
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("appointment %s: %w", r.ID, ErrInvalidInterval)
	}
	if r.Category == "" {
		r.Category = CategoryAppointment
	}
	*a = Appointment(r)
	return nil
}

// Duration returns end - start.
func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// EffectiveColor returns the color override or the category badge color.
func (a Appointment) EffectiveColor() string {
	if a.Color != "" {
		return a.Color
	}
	return a.Category.BadgeColor()
}

// OverlapsWith uses half-open [start, end) semantics.
func (a Appointment) OverlapsWith(other Appointment) bool {
	return a.Start.Before(other.End) && other.Start.Before(a.End)
}

// ContainsTime reports whether t falls in [start, end).
func (a Appointment) ContainsTime(t time.Time) bool {
	return !t.Before(a.Start) && t.Before(a.End)
}

// IsPast reports whether the appointment has ended before now.
func (a Appointment) IsPast(now time.Time) bool {
	return !a.End.After(now)
}

// Update is a partial change submitted to the appointment service.
type Update struct {
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	ResourceID *string    `json:"resource_id,omitempty"`
	Title      *string    `json:"title,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// Apply returns a copy of a with the update applied. The result must still
// satisfy end > start.
func (u Update) Apply(a Appointment) (Appointment, error) {
	if u.Start != nil {
		a.Start = *u.Start
	}
	if u.End != nil {
		a.End = *u.End
	}
	if u.ResourceID != nil {
		if *u.ResourceID == "" {
			return Appointment{}, ErrMissingResource
		}
		a.ResourceID = *u.ResourceID
	}
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Notes != nil {
		a.Notes = *u.Notes
	}
	if !a.End.After(a.Start) {
		return Appointment{}, ErrInvalidInterval
	}
	return a, nil
}

// DefaultCategories sets an empty category to CategoryAppointment in place,
// the same default ParseCategory applies to decoded tags.
func DefaultCategories(appts []Appointment) []Appointment {
	for i := range appts {
		if appts[i].Category == "" {
			appts[i].Category = CategoryAppointment
		}
	}
	return appts
}
