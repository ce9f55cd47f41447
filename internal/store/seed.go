package store

import (
	"context"
	"fmt"
	"time"

	"praxis/internal/daterange"
	"praxis/internal/model"
)

var demoResources = []model.Resource{
	{ID: "alvarez", Name: "Dr. Maria Alvarez", Color: "#2563eb"},
	{ID: "okafor", Name: "Sam Okafor", Color: "#16a34a",
		WorkingDays:  []time.Weekday{time.Monday, time.Tuesday, time.Thursday},
		WorkingHours: &model.WorkingHours{StartHour: 8, EndHour: 14}},
	{ID: "lindqvist", Name: "Erik Lindqvist", Color: "#db2777",
		WorkingHours: &model.WorkingHours{StartHour: 11, EndHour: 20}},
}

type demoEntry struct {
	resource string
	weekday  int // offset from Monday
	hour     int
	minute   int
	minutes  int
	category model.Category
	title    string
	client   string
}

var demoAppointments = []demoEntry{
	{"alvarez", 0, 9, 0, 50, model.CategoryAppointment, "Initial consultation", "Dana Smith"},
	{"alvarez", 0, 10, 0, 30, model.CategoryAppointment, "Anxiety management session", "Chris Park"},
	{"alvarez", 0, 13, 0, 60, model.CategoryBreak, "Lunch", ""},
	{"alvarez", 2, 15, 30, 45, model.CategoryExternal, "Hospital liaison", ""},
	{"okafor", 1, 8, 0, 60, model.CategoryInternal, "Team sync", ""},
	{"okafor", 1, 11, 15, 30, model.CategoryAppointment, "Follow-up", "Jordan Lee"},
	{"lindqvist", 3, 17, 0, 90, model.CategoryAppointment, "Couples session", "R. and T. Moreau"},
}

// SeedDemo fills an empty database with resources and a week of
// appointments around now. It does nothing when resources already exist.
func (db *DB) SeedDemo(ctx context.Context, now time.Time) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources`).Scan(&count); err != nil {
		return fmt.Errorf("count resources: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i, r := range demoResources {
		if err := db.UpsertResource(ctx, r, i); err != nil {
			return err
		}
	}

	week := daterange.Resolve(now, daterange.Week).Start
	for _, e := range demoAppointments {
		day := week.AddDate(0, 0, e.weekday)
		start := time.Date(day.Year(), day.Month(), day.Day(), e.hour, e.minute, 0, 0, day.Location())
		if _, err := db.CreateAppointment(ctx, model.Draft{
			ResourceID: e.resource,
			Start:      start,
			End:        start.Add(time.Duration(e.minutes) * time.Minute),
			Category:   e.category,
			Title:      e.title,
			ClientName: e.client,
		}); err != nil {
			return fmt.Errorf("seed appointment %q: %w", e.title, err)
		}
	}

	db.logger.Info().Int("resources", len(demoResources)).Int("appointments", len(demoAppointments)).Msg("demo data seeded")
	return nil
}
