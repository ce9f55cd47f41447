package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResource_Defaults(t *testing.T) {
	r := Resource{ID: "p1"}
	assert.Equal(t, 9, r.StartHour())
	assert.Equal(t, 18, r.EndHour())
	assert.True(t, r.WorksOn(time.Monday))
	assert.True(t, r.WorksOn(time.Friday))
	assert.False(t, r.WorksOn(time.Saturday))
	assert.False(t, r.WorksOn(time.Sunday))
}

func TestResource_Configured(t *testing.T) {
	r := Resource{
		ID:           "p1",
		WorkingDays:  []time.Weekday{time.Saturday},
		WorkingHours: &WorkingHours{StartHour: 7, EndHour: 12},
	}
	assert.Equal(t, 7, r.StartHour())
	assert.Equal(t, 12, r.EndHour())
	assert.True(t, r.WorksOn(time.Saturday))
	assert.False(t, r.WorksOn(time.Monday))
}

func TestResource_Validate(t *testing.T) {
	assert.NoError(t, Resource{ID: "p1"}.Validate())
	assert.Error(t, Resource{}.Validate())
	assert.Error(t, Resource{ID: "p1", WorkingHours: &WorkingHours{StartHour: 18, EndHour: 9}}.Validate())
	assert.Error(t, Resource{ID: "p1", WorkingHours: &WorkingHours{StartHour: 9, EndHour: 24}}.Validate())
	assert.Error(t, Resource{ID: "p1", WorkingDays: []time.Weekday{7}}.Validate())
}

func TestActor_SingleResource(t *testing.T) {
	assert.True(t, Actor{ID: "u1", Role: RoleProvider, ResourceID: "p1"}.SingleResource())
	assert.False(t, Actor{ID: "u1", Role: RoleProvider}.SingleResource())
	assert.False(t, Actor{ID: "u2", Role: RoleAdmin, ResourceID: "p1"}.SingleResource())
}

func TestSameDate(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	a := time.Date(2026, 1, 15, 23, 30, 0, 0, loc)
	b := time.Date(2026, 1, 15, 8, 0, 0, 0, loc)
	assert.True(t, SameDate(a, b))
	assert.False(t, SameDate(a.AddDate(0, 0, 1), b))
}
