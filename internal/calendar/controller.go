package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"praxis/internal/availability"
	"praxis/internal/daterange"
	"praxis/internal/events"
	"praxis/internal/metrics"
	"praxis/internal/model"
	"praxis/internal/placement"
	"praxis/internal/slots"

	"github.com/rs/zerolog"
)

var (
	ErrStaleResponse      = errors.New("response superseded by a newer fetch")
	ErrSlotUnavailable    = errors.New("slot is not available")
	ErrUnknownResource    = errors.New("unknown resource")
	ErrUnknownAppointment = errors.New("appointment not in the loaded window")
)

// Collaborator is the remote appointment and resource service.
type Collaborator interface {
	ListAppointments(ctx context.Context, start, end time.Time, resourceIDs []string) ([]model.Appointment, error)
	ListResources(ctx context.Context) ([]model.Resource, error)
	CreateAppointment(ctx context.Context, d model.Draft) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, u model.Update) (model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// ResourceOverlay fills scheduling attributes the directory omitted.
type ResourceOverlay func([]model.Resource) []model.Resource

// Options tune a Controller. Zero values select defaults.
type Options struct {
	// Granularity of the main grid in minutes (30 or 60).
	Granularity int
	// Oracle replaces the booking-based oracle, e.g. with the demo placeholder.
	Oracle availability.Oracle
	// Overlay is consulted on every refresh.
	Overlay func() ResourceOverlay
	Now     func() time.Time
}

// Controller owns one calendar session. Every fetch it issues is tagged
// with a generation; a response is applied only if no newer fetch was
// issued while it was in flight.
type Controller struct {
	mu    sync.Mutex
	state *ViewState

	collab      Collaborator
	rescheduler *placement.Rescheduler
	bus         *events.EventBus
	logger      *zerolog.Logger
	opts        Options

	gen atomic.Uint64

	// last applied fetch
	loadedGen    uint64
	window       daterange.Range
	fetchedIDs   []string // nil when every resource was fetched
	resources    []model.Resource
	appointments []model.Appointment
	degraded     []string
	query        string
}

// NewController starts a session for actor. bus and logger may be nil.
func NewController(actor model.Actor, collab Collaborator, bus *events.EventBus, logger *zerolog.Logger, opts Options) *Controller {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	if bus == nil {
		bus = events.NewEventBus()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Granularity = slots.NormalizeGranularity(opts.Granularity)

	l := logger.With().Str("actor", actor.ID).Logger()
	return &Controller{
		state:       NewViewState(actor, opts.Now()),
		collab:      collab,
		rescheduler: placement.NewRescheduler(collab),
		bus:         bus,
		logger:      &l,
		opts:        opts,
	}
}

// Refresh loads resources and appointments for the current window. Fetch
// failures degrade to empty collections and are not retried. It returns
// ErrStaleResponse when a newer Refresh overtook this one.
func (c *Controller) Refresh(ctx context.Context) error {
	gen := c.gen.Add(1)

	c.mu.Lock()
	window := c.state.Window()
	selected := c.state.Selected()
	c.mu.Unlock()

	started := time.Now()
	var degraded []string

	resources, err := c.collab.ListResources(ctx)
	if err != nil {
		c.fetchFailed(gen, "resources", window, err)
		resources, degraded = nil, append(degraded, "resources")
	} else {
		metrics.IncFetch("resources", "ok")
	}

	var filter []string
	if len(selected) > 0 {
		filter = selected
	}
	appts, err := c.collab.ListAppointments(ctx, window.Start, window.End, filter)
	if err != nil {
		c.fetchFailed(gen, "appointments", window, err)
		appts, degraded = nil, append(degraded, "appointments")
	} else {
		metrics.IncFetch("appointments", "ok")
	}
	appts = model.DefaultCategories(appts)

	if c.opts.Overlay != nil {
		if overlay := c.opts.Overlay(); overlay != nil {
			resources = overlay(resources)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if latest := c.gen.Load(); gen != latest {
		metrics.IncStaleDiscarded()
		c.logger.Debug().Uint64("generation", gen).Uint64("latest", latest).Str("window", window.String()).Msg("discarding stale response")
		c.publish(events.TypeStaleDiscarded, map[string]any{"generation": gen, "latest": latest})
		return ErrStaleResponse
	}

	c.loadedGen = gen
	c.window = window
	c.fetchedIDs = filter
	c.resources = resources
	c.appointments = appts
	c.degraded = degraded
	metrics.ObserveRefresh(time.Since(started))

	c.publish(events.TypeWindowRefreshed, map[string]any{
		"generation":   gen,
		"window":       window,
		"appointments": len(appts),
		"degraded":     degraded,
	})
	return nil
}

func (c *Controller) fetchFailed(gen uint64, kind string, window daterange.Range, err error) {
	metrics.IncFetch(kind, "error")
	c.logger.Error().Err(err).Str("kind", kind).Str("window", window.String()).Uint64("generation", gen).Msg("fetch failed, rendering empty")
	c.publish(events.TypeFetchFailed, map[string]any{"kind": kind, "error": err.Error(), "generation": gen})
}

func (c *Controller) publish(eventType string, payload any) {
	if err := c.bus.PublishJSON(eventType, payload); err != nil {
		c.logger.Warn().Err(err).Str("event", eventType).Msg("event handler failed")
	}
}

// refreshAfter runs a refresh triggered by a transition. Being overtaken by
// a newer refresh is not an error for the caller.
func (c *Controller) refreshAfter(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
		return err
	}
	return nil
}

// oracleLocked returns the availability oracle for the loaded data.
func (c *Controller) oracleLocked() availability.Oracle {
	if c.opts.Oracle != nil {
		return c.opts.Oracle
	}
	return availability.NewBookingOracle(c.appointments)
}

// OnDateNavigate steps the reference date and reloads.
func (c *Controller) OnDateNavigate(ctx context.Context, dir daterange.Direction) error {
	c.mu.Lock()
	c.state.Navigate(dir)
	c.mu.Unlock()
	return c.refreshAfter(ctx)
}

// OnViewChange switches the view and reloads.
func (c *Controller) OnViewChange(ctx context.Context, v daterange.View) error {
	c.mu.Lock()
	c.state.SetView(v)
	c.mu.Unlock()
	return c.refreshAfter(ctx)
}

// OnDateClick jumps to d; clicks from an overview open the day view.
func (c *Controller) OnDateClick(ctx context.Context, d time.Time, fromOverview bool) error {
	c.mu.Lock()
	c.state.JumpToDate(d, fromOverview)
	c.mu.Unlock()
	return c.refreshAfter(ctx)
}

// OnResourceToggle flips one resource in the selection and reloads. It is
// a no-op for single-resource actors.
func (c *Controller) OnResourceToggle(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.state.Locked() {
		c.mu.Unlock()
		return nil
	}
	c.state.ToggleResource(id)
	c.mu.Unlock()
	return c.refreshAfter(ctx)
}

// OnSelectAll selects every loaded resource.
func (c *Controller) OnSelectAll(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Locked() {
		c.mu.Unlock()
		return nil
	}
	ids := make([]string, 0, len(c.resources))
	for _, r := range c.resources {
		ids = append(ids, r.ID)
	}
	c.state.SelectAll(ids)
	c.mu.Unlock()
	return c.refreshAfter(ctx)
}

func (c *Controller) OnSelectNone(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Locked() {
		c.mu.Unlock()
		return nil
	}
	c.state.SelectNone()
	c.mu.Unlock()
	return c.refreshAfter(ctx)
}

// OnSearch sets the free-text filter. It does not reload.
func (c *Controller) OnSearch(query string) {
	c.mu.Lock()
	c.query = query
	c.mu.Unlock()
}

// SlotChoice is a free slot prepared for the creation flow.
type SlotChoice struct {
	Draft     model.Draft            `json:"draft"`
	Durations []slots.DurationOption `json:"durations"`
}

// OnSlotClick checks that the slot is free and returns a draft prefilled
// for the creation flow, with the lengths that fit before the next booking.
func (c *Controller) OnSlotClick(ctx context.Context, date time.Time, label, resourceID string) (SlotChoice, error) {
	c.mu.Lock()
	r, ok := model.FindResource(c.resources, resourceID)
	c.mu.Unlock()
	if !ok {
		return SlotChoice{}, fmt.Errorf("%w: %q", ErrUnknownResource, resourceID)
	}
	start, err := slots.ParseLabel(date, label)
	if err != nil {
		return SlotChoice{}, err
	}

	oracle, _, err := c.oracleFor(ctx, date, []string{resourceID})
	if err != nil {
		return SlotChoice{}, err
	}
	if !oracle.IsAvailable(date, label, r) {
		return SlotChoice{}, ErrSlotUnavailable
	}

	day := slots.NewGenerator(oracle).GenerateSlots(date, r, c.opts.Granularity)
	return SlotChoice{
		Draft: model.Draft{
			ResourceID: r.ID,
			Start:      start,
			End:        start.Add(time.Duration(c.opts.Granularity) * time.Minute),
			Category:   model.CategoryAppointment,
		},
		Durations: slots.DurationOptions(day, start),
	}, nil
}

// OnAppointmentClick returns the loaded appointment with id.
func (c *Controller) OnAppointmentClick(id string) (model.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(id)
}

func (c *Controller) findLocked(id string) (model.Appointment, error) {
	for _, a := range c.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
}

// OnAppointmentDrop reschedules the appointment to target keeping its
// duration, then reloads the window. Nothing is changed locally before the
// service accepts the update.
func (c *Controller) OnAppointmentDrop(ctx context.Context, id string, target placement.Target) (model.Appointment, error) {
	c.mu.Lock()
	a, err := c.findLocked(id)
	resources := c.resources
	c.mu.Unlock()
	if err != nil {
		return model.Appointment{}, err
	}

	updated, err := c.rescheduler.Move(ctx, a, target, resources)
	if err != nil {
		switch {
		case errors.Is(err, placement.ErrInvalidTarget):
			metrics.IncRescheduleRejected("invalid_target")
		case errors.Is(err, placement.ErrNotDraggable):
			metrics.IncRescheduleRejected("not_draggable")
		default:
			c.mutationFailed("move", id, err)
		}
		return model.Appointment{}, err
	}

	metrics.IncMutation("move", "ok")
	c.logger.Info().Str("id", id).Time("start", updated.Start).Str("resource_id", updated.ResourceID).Msg("appointment moved")
	c.publish(events.TypeAppointmentMoved, updated)
	return updated, c.refreshAfter(ctx)
}

// Create submits a new appointment and reloads on success.
func (c *Controller) Create(ctx context.Context, d model.Draft) (model.Appointment, error) {
	if err := d.Validate(); err != nil {
		return model.Appointment{}, err
	}
	created, err := c.collab.CreateAppointment(ctx, d)
	if err != nil {
		c.mutationFailed("create", "", err)
		return model.Appointment{}, err
	}
	metrics.IncMutation("create", "ok")
	c.publish(events.TypeAppointmentCreated, created)
	return created, c.refreshAfter(ctx)
}

// Delete removes an appointment and reloads on success.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.collab.DeleteAppointment(ctx, id); err != nil {
		c.mutationFailed("delete", id, err)
		return err
	}
	metrics.IncMutation("delete", "ok")
	c.publish(events.TypeAppointmentDeleted, map[string]string{"id": id})
	return c.refreshAfter(ctx)
}

func (c *Controller) mutationFailed(op, id string, err error) {
	metrics.IncMutation(op, "error")
	c.logger.Warn().Err(err).Str("op", op).Str("id", id).Msg("mutation rejected")
	c.publish(events.TypeMutationFailed, map[string]string{"op": op, "id": id, "error": err.Error()})
}

// Generation returns the generation of the last applied fetch.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedGen
}
