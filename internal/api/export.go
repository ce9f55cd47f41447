package api

import (
	"bytes"
	"fmt"
	"net/http"

	"praxis/internal/calendar"
	"praxis/internal/export"
	"praxis/internal/model"
)

func agendaOf(snap calendar.Snapshot) export.Agenda {
	appts := make([]model.Appointment, 0, len(snap.Appointments))
	for _, v := range snap.Appointments {
		appts = append(appts, v.Appointment)
	}
	return export.Agenda{
		Window:       snap.Window,
		Resources:    snap.Resources,
		Appointments: appts,
		Availability: snap.Availability,
	}
}

// handleExportXLSX downloads the visible window as a workbook.
// GET /api/export.xlsx
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, agendaOf(snap)); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	s.attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.Filename(snap.Window, "xlsx"), buf.Bytes())
}

// handleExportICS downloads the visible window as an iCalendar feed.
// GET /api/export.ics
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()

	var buf bytes.Buffer
	if err := export.WriteICS(&buf, agendaOf(snap), s.now()); err != nil {
		s.logger.Error().Err(err).Msg("ics export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	s.attachment(w, "text/calendar; charset=utf-8", export.Filename(snap.Window, "ics"), buf.Bytes())
}

func (s *Server) attachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("write export")
	}
}
