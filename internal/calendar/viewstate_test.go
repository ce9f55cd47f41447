package calendar

import (
	"testing"
	"time"

	"praxis/internal/daterange"
	"praxis/internal/model"

	"github.com/stretchr/testify/assert"
)

// 2026-01-14 is a Wednesday.
var wednesday = time.Date(2026, 1, 14, 15, 30, 0, 0, time.UTC)

func TestNewViewState(t *testing.T) {
	s := NewViewState(model.Actor{ID: "u1", Role: model.RoleAdmin}, wednesday)
	assert.Equal(t, daterange.Week, s.View())
	assert.Equal(t, time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC), s.Date())
	assert.Empty(t, s.Selected())
	assert.False(t, s.Locked())

	w := s.Window()
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 1, 18, 23, 59, 59, 999000000, time.UTC), w.End)

	p := NewViewState(model.Actor{ID: "u2", Role: model.RoleProvider, ResourceID: "p1"}, wednesday)
	assert.Equal(t, []string{"p1"}, p.Selected())
	assert.True(t, p.Locked())
}

func TestViewState_SetViewKeepsDateAndSelection(t *testing.T) {
	s := NewViewState(model.Actor{Role: model.RoleStaff}, wednesday)
	s.ToggleResource("p2")
	date := s.Date()

	for _, v := range []daterange.View{daterange.Month, daterange.Day, daterange.Week} {
		s.SetView(v)
		assert.Equal(t, v, s.View())
		assert.Equal(t, date, s.Date())
		assert.Equal(t, []string{"p2"}, s.Selected())
	}
}

func TestViewState_Navigate(t *testing.T) {
	s := NewViewState(model.Actor{Role: model.RoleStaff}, wednesday)

	s.Navigate(daterange.Next)
	assert.Equal(t, 21, s.Date().Day())

	s.SetView(daterange.Month)
	s.Navigate(daterange.Prev)
	assert.Equal(t, time.December, s.Date().Month())
	assert.Equal(t, 2025, s.Date().Year())

	s.SetView(daterange.Day)
	s.Navigate(daterange.Next)
	assert.Equal(t, time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC), s.Date())
}

func TestViewState_JumpToDate(t *testing.T) {
	s := NewViewState(model.Actor{Role: model.RoleStaff}, wednesday)
	target := time.Date(2026, 2, 3, 9, 45, 0, 0, time.UTC)

	s.JumpToDate(target, false)
	assert.Equal(t, daterange.Week, s.View())
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), s.Date())

	s.SetView(daterange.Month)
	s.JumpToDate(target.AddDate(0, 0, 1), true)
	assert.Equal(t, daterange.Day, s.View())
	assert.Equal(t, 4, s.Date().Day())
}

func TestViewState_SelectionTransitions(t *testing.T) {
	s := NewViewState(model.Actor{Role: model.RoleAdmin}, wednesday)
	s.SelectAll([]string{"p1", "p2", "p3"})
	assert.Equal(t, []string{"p1", "p2", "p3"}, s.Selected())

	s.ToggleResource("p2")
	s.ToggleResource("p2")
	assert.Equal(t, []string{"p1", "p2", "p3"}, s.Selected())

	s.SelectNone()
	assert.Empty(t, s.Selected())
}

func TestViewState_SingleResourceSelectAllNoop(t *testing.T) {
	s := NewViewState(model.Actor{Role: model.RoleProvider, ResourceID: "p1"}, wednesday)
	s.SelectAll([]string{"p1", "p2"})
	assert.Equal(t, []string{"p1"}, s.Selected())
	s.SelectNone()
	s.ToggleResource("p1")
	assert.Equal(t, []string{"p1"}, s.Selected())
}

func TestViewState_WindowContainsDate(t *testing.T) {
	s := NewViewState(model.Actor{Role: model.RoleAdmin}, wednesday)
	for i := 0; i < 60; i++ {
		for _, v := range []daterange.View{daterange.Day, daterange.Week, daterange.Month} {
			s.SetView(v)
			assert.True(t, s.Window().Contains(s.Date()))
		}
		s.SetView(daterange.Day)
		s.Navigate(daterange.Next)
	}
}
