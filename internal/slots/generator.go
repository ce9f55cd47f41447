package slots

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"praxis/internal/model"
)

const (
	// GridGranularity is the slot size of the main day/week grid, in minutes.
	GridGranularity = 60
	// AgendaGranularity is the slot size of the availability and agenda views.
	AgendaGranularity = 30
)

// ErrInvalidLabel reports a time-of-day label that is not "HH:MM".
var ErrInvalidLabel = errors.New("invalid slot label")

// Slot is one offerable time-of-day unit for a resource on a date.
type Slot struct {
	ResourceID string    `json:"resource_id"`
	Label      string    `json:"label"` // "09:30"
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Available  bool      `json:"available"`
}

// Checker decides whether a slot can be booked.
type Checker interface {
	IsAvailable(date time.Time, label string, r model.Resource) bool
}

// Generator expands a resource's working hours into slots for a date.
type Generator struct {
	checker Checker
}

// NewGenerator creates a new slot generator.
func NewGenerator(checker Checker) *Generator {
	return &Generator{checker: checker}
}

// NormalizeGranularity maps anything other than 30 to the 60 minute grid.
func NormalizeGranularity(granularity int) int {
	if granularity == AgendaGranularity {
		return AgendaGranularity
	}
	return GridGranularity
}

// Labels returns the ordered time-of-day labels for one day. A nil resource
// uses the default 09:00-18:00 range so grids can render before resources load.
func Labels(r *model.Resource, granularity int) []string {
	startHour, endHour := model.DefaultStartHour, model.DefaultEndHour
	if r != nil {
		startHour, endHour = r.StartHour(), r.EndHour()
	}
	granularity = NormalizeGranularity(granularity)
	if endHour < startHour {
		return nil
	}

	labels := make([]string, 0, (endHour-startHour+1)*60/granularity)
	for h := startHour; h <= endHour; h++ {
		labels = append(labels, fmt.Sprintf("%02d:00", h))
		if granularity == AgendaGranularity && h < endHour {
			labels = append(labels, fmt.Sprintf("%02d:30", h))
		}
	}
	return labels
}

// LabelsFor returns labels spanning every resource's hours, from the
// earliest start hour to the latest end hour. No resources gives the
// default range.
func LabelsFor(resources []model.Resource, granularity int) []string {
	if len(resources) == 0 {
		return Labels(nil, granularity)
	}
	span := model.WorkingHours{StartHour: resources[0].StartHour(), EndHour: resources[0].EndHour()}
	for _, r := range resources[1:] {
		span.StartHour = min(span.StartHour, r.StartHour())
		span.EndHour = max(span.EndHour, r.EndHour())
	}
	return Labels(&model.Resource{WorkingHours: &span}, granularity)
}

// GenerateSlots builds timestamped slots for a resource on date. Without a
// checker every slot is reported available.
func (g *Generator) GenerateSlots(date time.Time, r model.Resource, granularity int) []Slot {
	step := time.Duration(NormalizeGranularity(granularity)) * time.Minute
	labels := Labels(&r, granularity)

	slots := make([]Slot, 0, len(labels))
	for _, label := range labels {
		start, err := ParseLabel(date, label)
		if err != nil {
			continue
		}
		available := true
		if g.checker != nil {
			available = g.checker.IsAvailable(date, label, r)
		}
		slots = append(slots, Slot{
			ResourceID: r.ID,
			Label:      label,
			Start:      start,
			End:        start.Add(step),
			Available:  available,
		})
	}
	return slots
}

// Run is a stretch of back-to-back free slots.
type Run struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Slots int       `json:"slots"`
}

// Minutes is the length of the run.
func (r Run) Minutes() int {
	return int(r.End.Sub(r.Start) / time.Minute)
}

// FreeRuns merges the available slots of a day into contiguous runs,
// ordered by start.
func FreeRuns(day []Slot) []Run {
	free := make([]Slot, 0, len(day))
	for _, s := range day {
		if s.Available {
			free = append(free, s)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i].Start.Before(free[j].Start) })

	var runs []Run
	for _, s := range free {
		if n := len(runs); n > 0 && runs[n-1].End.Equal(s.Start) {
			runs[n-1].End = s.End
			runs[n-1].Slots++
			continue
		}
		runs = append(runs, Run{Start: s.Start, End: s.End, Slots: 1})
	}
	return runs
}

// DurationOption is one bookable length for an appointment starting at a slot.
type DurationOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// DurationOptions lists the lengths that fit in the free run beginning at
// start, one option per slot. It is empty unless a free slot starts exactly
// at start.
func DurationOptions(day []Slot, start time.Time) []DurationOption {
	for _, run := range FreeRuns(day) {
		if start.Before(run.Start) || !start.Before(run.End) {
			continue
		}
		var opts []DurationOption
		anchored := false
		for _, s := range day {
			if !s.Available || s.Start.Before(start) || s.End.After(run.End) {
				continue
			}
			anchored = anchored || s.Start.Equal(start)
			m := int(s.End.Sub(start) / time.Minute)
			opts = append(opts, DurationOption{Minutes: m, Label: FormatDuration(m)})
		}
		if !anchored {
			return nil
		}
		sort.Slice(opts, func(i, j int) bool { return opts[i].Minutes < opts[j].Minutes })
		return opts
	}
	return nil
}

// ParseLabel places an "HH:MM" label on date.
func ParseLabel(date time.Time, label string) (time.Time, error) {
	hour, minute, err := splitLabel(label)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

// LabelHour returns the hour component of an "HH:MM" label.
func LabelHour(label string) (int, error) {
	hour, _, err := splitLabel(label)
	return hour, err
}

func splitLabel(label string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrInvalidLabel, label)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrInvalidLabel, label)
	}

	return hour, minute, nil
}

// FormatDuration formats minutes as "45 min", "1 h" or "1 h 30 min".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}
