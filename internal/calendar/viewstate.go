// Package calendar holds the calendar session state and the controller that
// drives fetches and mutations against the appointment service.
package calendar

import (
	"time"

	"praxis/internal/aggregate"
	"praxis/internal/daterange"
	"praxis/internal/model"
)

// InitialView is the view a new session opens in.
const InitialView = daterange.Week

// ViewState is the session's reference date, view and resource selection.
// It is only changed through its transition methods and is not safe for
// concurrent use; Controller serialises access.
type ViewState struct {
	actor     model.Actor
	view      daterange.View
	date      time.Time
	selection *aggregate.Selection
}

// NewViewState opens a week view on today. A single-resource actor starts
// with only their own resource selected.
func NewViewState(actor model.Actor, today time.Time) *ViewState {
	return &ViewState{
		actor:     actor,
		view:      InitialView,
		date:      daterange.StartOfDay(today),
		selection: aggregate.NewSelection(actor),
	}
}

func (s *ViewState) Actor() model.Actor   { return s.actor }
func (s *ViewState) View() daterange.View { return s.view }
func (s *ViewState) Date() time.Time      { return s.date }

// SetView changes the view only.
func (s *ViewState) SetView(v daterange.View) {
	s.view = v
}

// Navigate steps the reference date by one unit of the active view.
func (s *ViewState) Navigate(dir daterange.Direction) {
	s.date = daterange.Step(s.date, s.view, dir)
}

// JumpToDate sets the reference date. A click from a week or month
// overview also switches to the day view.
func (s *ViewState) JumpToDate(d time.Time, fromOverview bool) {
	s.date = daterange.StartOfDay(d)
	if fromOverview {
		s.view = daterange.Day
	}
}

func (s *ViewState) ToggleResource(id string) { s.selection.Toggle(id) }

func (s *ViewState) SelectAll(ids []string) { s.selection.SelectAll(ids) }

func (s *ViewState) SelectNone() { s.selection.SelectNone() }

// Selected returns the selected resource ids, sorted.
func (s *ViewState) Selected() []string { return s.selection.IDs() }

// Locked reports whether the selection is fixed to the actor's resource.
func (s *ViewState) Locked() bool { return s.selection.Locked() }

// Window resolves the visible date range.
func (s *ViewState) Window() daterange.Range {
	return daterange.Resolve(s.date, s.view)
}
