package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"praxis/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "praxis.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestResources_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertResource(ctx, model.Resource{ID: "b", Name: "Second"}, 2))
	require.NoError(t, db.UpsertResource(ctx, model.Resource{
		ID: "a", Name: "First", Color: "#fff",
		WorkingDays:  []time.Weekday{time.Saturday, time.Sunday},
		WorkingHours: &model.WorkingHours{StartHour: 7, EndHour: 12},
	}, 1))

	got, err := db.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, []time.Weekday{time.Saturday, time.Sunday}, got[0].WorkingDays)
	assert.Equal(t, 7, got[0].StartHour())
	assert.Nil(t, got[1].WorkingHours)
	assert.Equal(t, model.DefaultWorkingDays, got[1].Days())

	err = db.UpsertResource(ctx, model.Resource{ID: "bad", WorkingHours: &model.WorkingHours{StartHour: 12, EndHour: 9}}, 0)
	assert.Error(t, err)
}

func TestAppointments_CRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertResource(ctx, model.Resource{ID: "p1", Name: "One"}, 0))
	require.NoError(t, db.UpsertResource(ctx, model.Resource{ID: "p2", Name: "Two"}, 1))

	start := time.Date(2026, 1, 12, 10, 0, 0, 0, time.Local)
	created, err := db.CreateAppointment(ctx, model.Draft{
		ResourceID: "p1", Start: start, End: start.Add(30 * time.Minute),
		Title: "Intake", ClientName: "Dana", Flagged: true, FlagNote: "first visit",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.CategoryAppointment, created.Category)

	got, err := db.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(start))
	assert.True(t, got.Flagged)
	assert.Equal(t, "first visit", got.FlagNote)

	newStart := time.Date(2026, 1, 13, 14, 0, 0, 0, time.Local)
	newEnd := newStart.Add(30 * time.Minute)
	rid := "p2"
	updated, err := db.UpdateAppointment(ctx, created.ID, model.Update{Start: &newStart, End: &newEnd, ResourceID: &rid})
	require.NoError(t, err)
	assert.Equal(t, "p2", updated.ResourceID)
	assert.Equal(t, 30*time.Minute, updated.Duration())

	window, err := db.ListAppointments(ctx, time.Date(2026, 1, 13, 0, 0, 0, 0, time.Local), time.Date(2026, 1, 13, 23, 59, 59, 0, time.Local), []string{"p2"})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, created.ID, window[0].ID)

	none, err := db.ListAppointments(ctx, time.Date(2026, 1, 13, 0, 0, 0, 0, time.Local), time.Date(2026, 1, 13, 23, 59, 59, 0, time.Local), []string{"p1"})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, db.DeleteAppointment(ctx, created.ID))
	assert.ErrorIs(t, db.DeleteAppointment(ctx, created.ID), ErrNotFound)
	_, err = db.GetAppointment(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppointments_Rejections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertResource(ctx, model.Resource{ID: "p1", Name: "One"}, 0))
	start := time.Date(2026, 1, 12, 10, 0, 0, 0, time.Local)

	_, err := db.CreateAppointment(ctx, model.Draft{ResourceID: "p1", Start: start, End: start})
	assert.ErrorIs(t, err, model.ErrInvalidInterval)

	_, err = db.CreateAppointment(ctx, model.Draft{ResourceID: "ghost", Start: start, End: start.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := db.CreateAppointment(ctx, model.Draft{ResourceID: "p1", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	earlier := start.Add(-2 * time.Hour)
	_, err = db.UpdateAppointment(ctx, created.ID, model.Update{End: &earlier})
	assert.ErrorIs(t, err, model.ErrInvalidInterval)

	ghost := "ghost"
	_, err = db.UpdateAppointment(ctx, created.ID, model.Update{ResourceID: &ghost})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.UpdateAppointment(ctx, "missing", model.Update{})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := db.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got.Duration(), "failed updates leave the row untouched")
}

func TestSeedDemo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 14, 12, 0, 0, 0, time.Local)

	require.NoError(t, db.SeedDemo(ctx, now))
	require.NoError(t, db.SeedDemo(ctx, now), "second seed is a no-op")

	resources, err := db.ListResources(ctx)
	require.NoError(t, err)
	assert.Len(t, resources, len(demoResources))

	appts, err := db.ListAppointments(ctx, time.Date(2026, 1, 12, 0, 0, 0, 0, time.Local), time.Date(2026, 1, 18, 23, 59, 59, 0, time.Local), nil)
	require.NoError(t, err)
	assert.Len(t, appts, len(demoAppointments))
}

func TestWeekdayEncoding(t *testing.T) {
	days := []time.Weekday{time.Monday, time.Friday, time.Sunday}
	assert.Equal(t, "1,5,0", encodeWeekdays(days))
	assert.Equal(t, days, decodeWeekdays("1,5,0"))
	assert.Nil(t, decodeWeekdays(""))
	assert.Equal(t, []time.Weekday{time.Tuesday}, decodeWeekdays("2,9,x"))
}
