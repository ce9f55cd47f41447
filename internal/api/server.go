// Package api exposes calendar sessions over a JSON HTTP interface for the
// dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"praxis/internal/calendar"
	"praxis/internal/crmapi"
	"praxis/internal/metrics"
	"praxis/internal/model"
	"praxis/internal/placement"
	"praxis/internal/store"

	"github.com/rs/zerolog"
)

const (
	HeaderActorID       = "X-Actor-ID"
	HeaderActorRole     = "X-Actor-Role"
	HeaderActorResource = "X-Actor-Resource"

	maxBodyBytes = 1 << 20
)

// ControllerFactory opens a calendar session for an actor.
type ControllerFactory func(actor model.Actor) *calendar.Controller

// Server keeps one calendar session per actor and routes dashboard calls to it.
type Server struct {
	mux           *http.ServeMux
	logger        *zerolog.Logger
	newController ControllerFactory
	loc           *time.Location
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*calendar.Controller
}

// Option configures a Server.
type Option func(*Server)

// WithLocation sets the location request dates are parsed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// WithClock overrides time.Now, used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(factory ControllerFactory, logger *zerolog.Logger, opts ...Option) *Server {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		newController: factory,
		loc:           time.Local,
		now:           time.Now,
		sessions:      make(map[string]*calendar.Controller),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.handle("GET /api/calendar", "calendar", s.handleCalendar)
	s.handle("POST /api/calendar/view", "calendar_view", s.handleView)
	s.handle("POST /api/calendar/navigate", "calendar_navigate", s.handleNavigate)
	s.handle("POST /api/calendar/jump", "calendar_jump", s.handleJump)
	s.handle("POST /api/calendar/resources/toggle", "resources_toggle", s.handleToggle)
	s.handle("POST /api/calendar/resources/all", "resources_all", s.handleSelectAll)
	s.handle("POST /api/calendar/resources/none", "resources_none", s.handleSelectNone)
	s.handle("POST /api/calendar/search", "calendar_search", s.handleSearch)
	s.handle("POST /api/calendar/slot", "calendar_slot", s.handleSlot)

	s.handle("GET /api/appointments/{id}", "appointment_get", s.handleAppointment)
	s.handle("POST /api/appointments", "appointment_create", s.handleCreate)
	s.handle("POST /api/appointments/{id}/move", "appointment_move", s.handleMove)
	s.handle("DELETE /api/appointments/{id}", "appointment_delete", s.handleDelete)

	s.handle("GET /api/availability", "availability", s.handleAvailability)
	s.handle("GET /api/slots", "slots", s.handleSlots)
	s.handle("GET /api/export.xlsx", "export_xlsx", s.handleExportXLSX)
	s.handle("GET /api/export.ics", "export_ics", s.handleExportICS)
}

// handle registers h and counts its responses by status code.
func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.IncHTTP(route, strconv.Itoa(rec.status))
		s.logger.Debug().Str("route", route).Str("method", r.Method).Int("status", rec.status).Msg("api request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// actorFromRequest reads the caller identity set by the fronting proxy.
func actorFromRequest(r *http.Request) (model.Actor, error) {
	actor := model.Actor{
		ID:         r.Header.Get(HeaderActorID),
		Role:       model.Role(r.Header.Get(HeaderActorRole)),
		ResourceID: r.Header.Get(HeaderActorResource),
	}
	if actor.ID == "" {
		return model.Actor{}, errors.New("missing " + HeaderActorID + " header")
	}
	switch actor.Role {
	case "":
		actor.Role = model.RoleStaff
	case model.RoleProvider, model.RoleStaff, model.RoleAdmin:
	default:
		return model.Actor{}, errors.New("unknown actor role " + strconv.Quote(string(actor.Role)))
	}
	return actor, nil
}

// session returns the caller's controller, opening and loading a new one on
// first use.
func (s *Server) session(ctx context.Context, actor model.Actor) *calendar.Controller {
	key := string(actor.Role) + "/" + actor.ID + "/" + actor.ResourceID

	s.mu.Lock()
	c, ok := s.sessions[key]
	if !ok {
		c = s.newController(actor)
		s.sessions[key] = c
	}
	s.mu.Unlock()

	if !ok {
		if err := c.Refresh(ctx); err != nil && !errors.Is(err, calendar.ErrStaleResponse) {
			s.logger.Warn().Err(err).Str("actor", actor.ID).Msg("initial refresh failed")
		}
	}
	return c
}

// controller resolves the session for r or writes a 401.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*calendar.Controller, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	return s.session(r.Context(), actor), true
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// statusFor maps domain and collaborator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, placement.ErrInvalidTarget),
		errors.Is(err, placement.ErrNotDraggable),
		errors.Is(err, calendar.ErrSlotUnavailable),
		errors.Is(err, model.ErrInvalidInterval),
		errors.Is(err, model.ErrUnknownCategory),
		errors.Is(err, model.ErrMissingResource),
		errors.Is(err, crmapi.ErrRejected):
		return http.StatusBadRequest
	case errors.Is(err, calendar.ErrUnknownAppointment),
		errors.Is(err, calendar.ErrUnknownResource),
		errors.Is(err, crmapi.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, crmapi.ErrConflict),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func (s *Server) writeFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		s.logger.Error().Err(err).Str("op", op).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
