package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"praxis/internal/model"
)

var (
	ErrInvalidTarget = errors.New("invalid reschedule target")
	ErrNotDraggable  = errors.New("appointment category cannot be moved")
)

// Target is a drop location on the grid. An empty ResourceID keeps the
// appointment's current resource.
type Target struct {
	Date       time.Time `json:"date"`
	Hour       int       `json:"hour"`
	ResourceID string    `json:"resource_id,omitempty"`
}

// Validate rejects malformed dates and hours.
func (t Target) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTarget)
	}
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidTarget, t.Hour)
	}
	return nil
}

// ComputeReschedule returns the update moving a to t with its duration
// unchanged. The new start is t.Date at t.Hour:00:00 in t.Date's location.
func ComputeReschedule(a model.Appointment, t Target) (model.Update, error) {
	if err := t.Validate(); err != nil {
		return model.Update{}, err
	}
	if !a.Category.Draggable() {
		return model.Update{}, fmt.Errorf("%w: %s", ErrNotDraggable, a.Category)
	}

	duration := a.Duration()
	newStart := time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), t.Hour, 0, 0, 0, t.Date.Location())
	newEnd := newStart.Add(duration)

	u := model.Update{Start: &newStart, End: &newEnd}
	if t.ResourceID != "" {
		id := t.ResourceID
		u.ResourceID = &id
	}
	return u, nil
}

// Updater submits partial updates to the appointment service.
type Updater interface {
	UpdateAppointment(ctx context.Context, id string, u model.Update) (model.Appointment, error)
}

// Rescheduler validates drops against the known resource directory and
// submits them. It never mutates local state; callers refresh on success.
type Rescheduler struct {
	updater Updater
}

func NewRescheduler(updater Updater) *Rescheduler {
	return &Rescheduler{updater: updater}
}

// Move rejects invalid targets before any call is made.
func (r *Rescheduler) Move(ctx context.Context, a model.Appointment, t Target, resources []model.Resource) (model.Appointment, error) {
	if t.ResourceID != "" {
		if _, ok := model.FindResource(resources, t.ResourceID); !ok {
			return model.Appointment{}, fmt.Errorf("%w: unknown resource %q", ErrInvalidTarget, t.ResourceID)
		}
	}
	u, err := ComputeReschedule(a, t)
	if err != nil {
		return model.Appointment{}, err
	}
	// Local sanity check: the result must still be a valid appointment.
	if _, err := u.Apply(a); err != nil {
		return model.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	updated, err := r.updater.UpdateAppointment(ctx, a.ID, u)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment %s: %w", a.ID, err)
	}
	return updated, nil
}
