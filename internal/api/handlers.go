package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"praxis/internal/calendar"
	"praxis/internal/daterange"
	"praxis/internal/model"
	"praxis/internal/placement"
	"praxis/internal/slots"
)

// ViewRequest is the body of POST /api/calendar/view.
type ViewRequest struct {
	View string `json:"view"`
}

// NavigateRequest is the body of POST /api/calendar/navigate.
type NavigateRequest struct {
	Direction string `json:"direction"` // "prev" or "next"
}

// JumpRequest is the body of POST /api/calendar/jump.
type JumpRequest struct {
	Date         string `json:"date"` // Format: YYYY-MM-DD
	FromOverview bool   `json:"from_overview,omitempty"`
}

// ToggleRequest is the body of POST /api/calendar/resources/toggle.
type ToggleRequest struct {
	ResourceID string `json:"resource_id"`
}

// SearchRequest is the body of POST /api/calendar/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// SlotRequest is the body of POST /api/calendar/slot.
type SlotRequest struct {
	Date       string `json:"date"`
	Label      string `json:"label"` // Format: HH:MM
	ResourceID string `json:"resource_id"`
}

// MoveRequest is the body of POST /api/appointments/{id}/move.
type MoveRequest struct {
	Date       string `json:"date"`
	Hour       *int   `json:"hour"`
	ResourceID string `json:"resource_id,omitempty"`
}

// handleCalendar returns the session snapshot.
// GET /api/calendar?refresh=true
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := c.Refresh(r.Context()); err != nil && !errors.Is(err, calendar.ErrStaleResponse) {
			s.writeFailure(w, "refresh", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// POST /api/calendar/view
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req ViewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := daterange.ParseView(req.View)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.transition(w, c, c.OnViewChange(r.Context(), v))
}

// POST /api/calendar/navigate
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req NavigateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dir, err := daterange.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.transition(w, c, c.OnDateNavigate(r.Context(), dir))
}

// POST /api/calendar/jump
func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req JumpRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := model.ParseDate(req.Date, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	s.transition(w, c, c.OnDateClick(r.Context(), date, req.FromOverview))
}

// POST /api/calendar/resources/toggle
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ResourceID == "" {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}
	s.transition(w, c, c.OnResourceToggle(r.Context(), req.ResourceID))
}

// POST /api/calendar/resources/all
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.transition(w, c, c.OnSelectAll(r.Context()))
}

// POST /api/calendar/resources/none
func (s *Server) handleSelectNone(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.transition(w, c, c.OnSelectNone(r.Context()))
}

// POST /api/calendar/search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.OnSearch(req.Query)
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// handleSlot returns a prefilled draft for a free slot.
// POST /api/calendar/slot
func (s *Server) handleSlot(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req SlotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := model.ParseDate(req.Date, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	choice, err := c.OnSlotClick(r.Context(), date, req.Label, req.ResourceID)
	if err != nil {
		if errors.Is(err, slots.ErrInvalidLabel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeFailure(w, "slot", err)
		return
	}
	writeJSON(w, http.StatusOK, choice)
}

// GET /api/appointments/{id}
func (s *Server) handleAppointment(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	a, err := c.OnAppointmentClick(r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// POST /api/appointments
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var d model.Draft
	if err := decodeBody(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := c.Create(r.Context(), d)
	if err != nil {
		s.writeFailure(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleMove reschedules an appointment, keeping its duration.
// POST /api/appointments/{id}/move
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := model.ParseDate(req.Date, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	if req.Hour == nil {
		writeError(w, http.StatusBadRequest, "hour is required")
		return
	}
	updated, err := c.OnAppointmentDrop(r.Context(), r.PathValue("id"), placement.Target{
		Date:       date,
		Hour:       *req.Hour,
		ResourceID: req.ResourceID,
	})
	if err != nil {
		s.writeFailure(w, "move", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/appointments/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	if err := c.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAvailability returns per-resource free slot counts for one date.
// GET /api/availability?date=YYYY-MM-DD
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.AvailabilityOn(r.Context(), date))
}

// handleSlots lists one resource's slots for a date.
// GET /api/slots?resource=ID&date=YYYY-MM-DD&granularity=30
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	resourceID := r.URL.Query().Get("resource")
	if resourceID == "" {
		writeError(w, http.StatusBadRequest, "resource is required")
		return
	}
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	granularity := slots.GridGranularity
	if g := r.URL.Query().Get("granularity"); g != "" {
		n, err := strconv.Atoi(g)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid granularity")
			return
		}
		granularity = n
	}

	view, err := c.Slots(r.Context(), date, resourceID, granularity)
	if err != nil {
		s.writeFailure(w, "slots", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"date":        date.Format(model.DateLayout),
		"slots":       view.Slots,
		"free_runs":   view.FreeRuns,
	})
}

// dateParam reads ?date=, defaulting to today.
func (s *Server) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return daterange.StartOfDay(s.now().In(s.loc)), true
	}
	date, err := model.ParseDate(raw, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// transition answers a state change with the new snapshot.
func (s *Server) transition(w http.ResponseWriter, c *calendar.Controller, err error) {
	if err != nil {
		s.writeFailure(w, "transition", err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}
