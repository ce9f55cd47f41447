package placement

import (
	"context"
	"errors"
	"testing"
	"time"

	"praxis/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 2026-01-12 is a Monday.
var monday = time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

func appt(id, resourceID string, start time.Time, d time.Duration, c model.Category) model.Appointment {
	return model.Appointment{ID: id, ResourceID: resourceID, Start: start, End: start.Add(d), Category: c}
}

type mockUpdater struct {
	mock.Mock
}

func (m *mockUpdater) UpdateAppointment(ctx context.Context, id string, u model.Update) (model.Appointment, error) {
	args := m.Called(ctx, id, u)
	return args.Get(0).(model.Appointment), args.Error(1)
}

func TestInBucket(t *testing.T) {
	a := appt("a1", "p1", monday.Add(10*time.Hour+45*time.Minute), 30*time.Minute, model.CategoryAppointment)

	assert.True(t, InBucket(a, monday, 10, "p1"))
	assert.True(t, InBucket(a, monday, 10, ""), "empty resource means no filter")
	assert.False(t, InBucket(a, monday, 11, "p1"), "bucket uses the start hour")
	assert.False(t, InBucket(a, monday, 10, "p2"))
	assert.False(t, InBucket(a, monday.AddDate(0, 0, 1), 10, "p1"))
}

func TestForBucket_OrdersByExactStart(t *testing.T) {
	appts := []model.Appointment{
		appt("late", "p1", monday.Add(10*time.Hour+40*time.Minute), 10*time.Minute, model.CategoryAppointment),
		appt("early", "p1", monday.Add(10*time.Hour+5*time.Minute), 10*time.Minute, model.CategoryAppointment),
		appt("other", "p2", monday.Add(10*time.Hour), time.Hour, model.CategoryAppointment),
	}

	got := ForBucket(appts, monday, 10, "p1")
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)

	assert.Len(t, ForBucket(appts, monday, 10, ""), 3)
	assert.Empty(t, ForBucket(appts, monday, 9, ""))
}

func TestGridAndCollisions(t *testing.T) {
	appts := []model.Appointment{
		appt("a", "p1", monday.Add(10*time.Hour), 30*time.Minute, model.CategoryAppointment),
		appt("b", "p1", monday.Add(10*time.Hour+30*time.Minute), 30*time.Minute, model.CategoryAppointment),
		appt("c", "p2", monday.Add(10*time.Hour), 30*time.Minute, model.CategoryAppointment),
	}

	grid := Grid(appts, time.UTC)
	assert.Len(t, grid, 2)

	k := BucketKey{Date: "2026-01-12", Hour: 10, ResourceID: "p1"}
	require.Len(t, grid[k], 2)
	assert.Equal(t, "a", grid[k][0].ID)
	assert.Equal(t, 30*time.Minute, grid[k][1].Duration(), "exact timestamps are kept")

	assert.Equal(t, []BucketKey{k}, Collisions(grid))
}

func TestComputeReschedule_MondayToTuesday(t *testing.T) {
	a := appt("a1", "p1", monday.Add(10*time.Hour), 30*time.Minute, model.CategoryAppointment)
	tuesday := monday.AddDate(0, 0, 1)

	u, err := ComputeReschedule(a, Target{Date: tuesday, Hour: 14})
	require.NoError(t, err)

	require.NotNil(t, u.Start)
	require.NotNil(t, u.End)
	assert.Equal(t, time.Date(2026, 1, 13, 14, 0, 0, 0, time.UTC), *u.Start)
	assert.Equal(t, time.Date(2026, 1, 13, 14, 30, 0, 0, time.UTC), *u.End)
	assert.Nil(t, u.ResourceID)
	assert.Nil(t, u.Title)
}

func TestComputeReschedule_DurationPreserved(t *testing.T) {
	durations := []time.Duration{5 * time.Minute, 50 * time.Minute, 90 * time.Minute, 3*time.Hour + 17*time.Second}
	for _, d := range durations {
		for hour := 0; hour < 24; hour += 5 {
			a := appt("a1", "p1", monday.Add(9*time.Hour+13*time.Minute), d, model.CategoryInternal)
			u, err := ComputeReschedule(a, Target{Date: monday.AddDate(0, 0, 3), Hour: hour})
			require.NoError(t, err)
			assert.Equal(t, d, u.End.Sub(*u.Start))
			assert.Equal(t, 0, u.Start.Minute())
			assert.Equal(t, 0, u.Start.Second())
		}
	}
}

func TestComputeReschedule_ReassignsResource(t *testing.T) {
	a := appt("a1", "p1", monday.Add(10*time.Hour), time.Hour, model.CategoryExternal)

	u, err := ComputeReschedule(a, Target{Date: monday, Hour: 11, ResourceID: "p2"})
	require.NoError(t, err)
	require.NotNil(t, u.ResourceID)
	assert.Equal(t, "p2", *u.ResourceID)
}

func TestComputeReschedule_Rejections(t *testing.T) {
	a := appt("a1", "p1", monday.Add(10*time.Hour), time.Hour, model.CategoryAppointment)

	_, err := ComputeReschedule(a, Target{Hour: 10})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = ComputeReschedule(a, Target{Date: monday, Hour: 24})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = ComputeReschedule(a, Target{Date: monday, Hour: -1})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	brk := appt("b1", "p1", monday.Add(13*time.Hour), time.Hour, model.CategoryBreak)
	_, err = ComputeReschedule(brk, Target{Date: monday, Hour: 14})
	assert.ErrorIs(t, err, ErrNotDraggable)
}

func TestRescheduler_Move(t *testing.T) {
	resources := []model.Resource{{ID: "p1"}, {ID: "p2"}}
	a := appt("a1", "p1", monday.Add(10*time.Hour), 30*time.Minute, model.CategoryAppointment)
	tuesday := monday.AddDate(0, 0, 1)

	updater := new(mockUpdater)
	moved := appt("a1", "p2", tuesday.Add(14*time.Hour), 30*time.Minute, model.CategoryAppointment)
	updater.On("UpdateAppointment", mock.Anything, "a1", mock.MatchedBy(func(u model.Update) bool {
		return u.Start.Equal(tuesday.Add(14*time.Hour)) && u.End.Equal(tuesday.Add(14*time.Hour+30*time.Minute)) &&
			u.ResourceID != nil && *u.ResourceID == "p2"
	})).Return(moved, nil).Once()

	got, err := NewRescheduler(updater).Move(context.Background(), a, Target{Date: tuesday, Hour: 14, ResourceID: "p2"}, resources)
	require.NoError(t, err)
	assert.Equal(t, moved, got)
	updater.AssertExpectations(t)
}

func TestRescheduler_UnknownResourceMakesNoCall(t *testing.T) {
	updater := new(mockUpdater)
	a := appt("a1", "p1", monday.Add(10*time.Hour), 30*time.Minute, model.CategoryAppointment)

	_, err := NewRescheduler(updater).Move(context.Background(), a, Target{Date: monday, Hour: 12, ResourceID: "ghost"}, []model.Resource{{ID: "p1"}})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = NewRescheduler(updater).Move(context.Background(), a, Target{Hour: 12}, []model.Resource{{ID: "p1"}})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	updater.AssertNotCalled(t, "UpdateAppointment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRescheduler_SurfacesMutationFailure(t *testing.T) {
	boom := errors.New("conflict")
	updater := new(mockUpdater)
	updater.On("UpdateAppointment", mock.Anything, "a1", mock.Anything).Return(model.Appointment{}, boom).Once()

	a := appt("a1", "p1", monday.Add(10*time.Hour), 30*time.Minute, model.CategoryAppointment)
	_, err := NewRescheduler(updater).Move(context.Background(), a, Target{Date: monday, Hour: 15}, nil)
	assert.ErrorIs(t, err, boom)
}
