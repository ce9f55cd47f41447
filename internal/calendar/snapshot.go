package calendar

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"praxis/internal/aggregate"
	"praxis/internal/availability"
	"praxis/internal/daterange"
	"praxis/internal/metrics"
	"praxis/internal/model"
	"praxis/internal/placement"
	"praxis/internal/search"
	"praxis/internal/slots"
)

// AppointmentView is an appointment with its display attributes resolved.
type AppointmentView struct {
	model.Appointment
	DisplayColor string `json:"display_color"`
	Struck       bool   `json:"struck"`
	Draggable    bool   `json:"draggable"`
}

func newAppointmentView(a model.Appointment, now time.Time) AppointmentView {
	return AppointmentView{
		Appointment:  a,
		DisplayColor: a.EffectiveColor(),
		Struck:       a.IsPast(now) && a.Category.ShowsStrikethrough(),
		Draggable:    a.Category.Draggable(),
	}
}

// Cell is one populated grid bucket. Collides marks a bucket holding more
// than one appointment of the same resource.
type Cell struct {
	placement.BucketKey
	Appointments []AppointmentView `json:"appointments"`
	Collides     bool              `json:"collides,omitempty"`
}

// Snapshot is everything needed to render the current session.
type Snapshot struct {
	View         daterange.View     `json:"view"`
	Date         time.Time          `json:"date"`
	Window       daterange.Range    `json:"window"`
	Days         []time.Time        `json:"days"`
	Labels       []string           `json:"labels"`
	Selected     []string           `json:"selected"`
	Locked       bool               `json:"locked"`
	Query        string             `json:"query,omitempty"`
	Resources    []model.Resource   `json:"resources"`
	Appointments []AppointmentView  `json:"appointments"`
	Cells        []Cell             `json:"cells"`
	Availability []aggregate.Report `json:"availability"`
	Degraded     []string           `json:"degraded,omitempty"`
	Generation   uint64             `json:"generation"`
}

// Snapshot renders the last applied fetch under the current state. Data
// belongs to the last loaded window, which trails the state until the next
// Refresh completes.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	selected := c.state.Selected()
	visible := c.visibleResourcesLocked(selected)
	visibleIDs := make([]string, 0, len(visible))
	for _, r := range visible {
		visibleIDs = append(visibleIDs, r.ID)
	}

	appts := c.visibleAppointmentsLocked(visibleIDs)
	appts = search.Filter(c.query, appts, search.LookupFromResources(c.resources))
	sort.SliceStable(appts, func(i, j int) bool { return appts[i].Start.Before(appts[j].Start) })

	views := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		views = append(views, newAppointmentView(a, now))
	}

	oracle := c.oracleLocked()
	var days []time.Time
	if !c.window.Start.IsZero() {
		days = c.window.Days()
	}
	return Snapshot{
		View:         c.state.View(),
		Date:         c.state.Date(),
		Window:       c.window,
		Days:         days,
		Labels:       slots.LabelsFor(visible, c.opts.Granularity),
		Selected:     selected,
		Locked:       c.state.Locked(),
		Query:        c.query,
		Resources:    visible,
		Appointments: views,
		Cells:        buildCells(appts, now, c.window.Start.Location()),
		Availability: aggregate.SummarizeRange(days, c.resources, visibleIDs, oracle, slots.AgendaGranularity),
		Degraded:     append([]string(nil), c.degraded...),
		Generation:   c.loadedGen,
	}
}

// visibleResourcesLocked returns the selected resources, or every resource
// when nothing is selected.
func (c *Controller) visibleResourcesLocked(selected []string) []model.Resource {
	if len(selected) == 0 {
		return append([]model.Resource(nil), c.resources...)
	}
	out := make([]model.Resource, 0, len(selected))
	for _, r := range c.resources {
		for _, id := range selected {
			if r.ID == id {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func (c *Controller) visibleAppointmentsLocked(visibleIDs []string) []model.Appointment {
	if len(c.state.Selected()) == 0 {
		return append([]model.Appointment(nil), c.appointments...)
	}
	keep := make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		keep[id] = true
	}
	out := make([]model.Appointment, 0, len(c.appointments))
	for _, a := range c.appointments {
		if keep[a.ResourceID] {
			out = append(out, a)
		}
	}
	return out
}

func buildCells(appts []model.Appointment, now time.Time, loc *time.Location) []Cell {
	grid := placement.Grid(appts, loc)
	collides := make(map[placement.BucketKey]bool)
	for _, k := range placement.Collisions(grid) {
		collides[k] = true
	}
	cells := make([]Cell, 0, len(grid))
	for k, cell := range grid {
		views := make([]AppointmentView, 0, len(cell))
		for _, a := range cell {
			views = append(views, newAppointmentView(a, now))
		}
		cells = append(cells, Cell{BucketKey: k, Appointments: views, Collides: collides[k]})
	}
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i].BucketKey, cells[j].BucketKey
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.ResourceID < b.ResourceID
	})
	return cells
}

// coversLocked reports whether the loaded bookings are complete for date
// and every resource in ids. A nil ids asks for all resources.
func (c *Controller) coversLocked(date time.Time, ids []string) bool {
	if !c.window.Contains(date) {
		return false
	}
	if c.fetchedIDs == nil {
		return true
	}
	if ids == nil {
		return false
	}
	for _, id := range ids {
		if !slices.Contains(c.fetchedIDs, id) {
			return false
		}
	}
	return true
}

// oracleFor returns an oracle valid for date and the resources in ids.
// Loaded bookings are reused only when they cover both; otherwise the day
// is fetched for ids. On a failed fetch the returned oracle counts the day
// as unbooked and err is set.
func (c *Controller) oracleFor(ctx context.Context, date time.Time, ids []string) (availability.Oracle, []model.Resource, error) {
	c.mu.Lock()
	resources := c.resources
	if c.opts.Oracle != nil || c.coversLocked(date, ids) {
		o := c.oracleLocked()
		c.mu.Unlock()
		return o, resources, nil
	}
	c.mu.Unlock()

	day := daterange.Resolve(date, daterange.Day)
	bookings, err := c.collab.ListAppointments(ctx, day.Start, day.End, ids)
	if err != nil {
		c.fetchFailed(c.gen.Load(), "appointments", day, err)
		return availability.NewBookingOracle(nil), resources, err
	}
	metrics.IncFetch("appointments", "ok")
	return availability.NewBookingOracle(model.DefaultCategories(bookings)), resources, nil
}

// AvailabilityOn summarises the visible resources for one date. A failed
// fetch is logged and the day reported as unbooked.
func (c *Controller) AvailabilityOn(ctx context.Context, date time.Time) aggregate.Report {
	c.mu.Lock()
	selected := c.state.Selected()
	visible := c.visibleResourcesLocked(selected)
	c.mu.Unlock()

	var filter []string
	if len(selected) > 0 {
		filter = selected
	}
	oracle, resources, _ := c.oracleFor(ctx, date, filter)

	ids := make([]string, 0, len(visible))
	for _, r := range visible {
		ids = append(ids, r.ID)
	}
	return aggregate.Summarize(date, resources, ids, oracle, slots.AgendaGranularity)
}

// SlotsView is the slot list of one resource on a date with its free runs.
type SlotsView struct {
	Slots    []slots.Slot `json:"slots"`
	FreeRuns []slots.Run  `json:"free_runs"`
}

// Slots lists the slots of one resource on date. A failed fetch is logged
// and the day reported as unbooked.
func (c *Controller) Slots(ctx context.Context, date time.Time, resourceID string, granularity int) (SlotsView, error) {
	oracle, resources, _ := c.oracleFor(ctx, date, []string{resourceID})
	r, ok := model.FindResource(resources, resourceID)
	if !ok {
		return SlotsView{}, fmt.Errorf("%w: %q", ErrUnknownResource, resourceID)
	}
	day := slots.NewGenerator(oracle).GenerateSlots(date, r, granularity)
	return SlotsView{Slots: day, FreeRuns: slots.FreeRuns(day)}, nil
}

// Window returns the window of the last applied fetch.
func (c *Controller) Window() daterange.Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}
