package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"praxis/internal/aggregate"
	"praxis/internal/daterange"
	"praxis/internal/model"
)

const (
	SheetAppointments = "Appointments"
	SheetAvailability = "Availability"

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var appointmentColumns = []string{
	"Date", "Start", "End", "Duration (min)", "Provider", "Category", "Title", "Client", "Notes", "Flagged",
}

// Agenda is the data of one exported window.
type Agenda struct {
	Window       daterange.Range
	Resources    []model.Resource
	Appointments []model.Appointment
	Availability []aggregate.Report
}

func (a Agenda) resourceName(id string) string {
	if r, ok := model.FindResource(a.Resources, id); ok {
		return r.Name
	}
	return id
}

// WriteXLSX writes the agenda as a workbook with an appointments sheet and,
// when reports are present, an availability sheet.
func WriteXLSX(w io.Writer, a Agenda) error {
	sw := NewSheetWriter()
	defer sw.Close()

	if err := sw.AddSheet(SheetAppointments); err != nil {
		return err
	}
	if err := sw.WriteHeader(appointmentColumns); err != nil {
		return err
	}

	appts := append([]model.Appointment(nil), a.Appointments...)
	sort.SliceStable(appts, func(i, j int) bool { return appts[i].Start.Before(appts[j].Start) })
	for _, ap := range appts {
		flagged := ""
		if ap.Flagged {
			flagged = "yes"
			if ap.FlagNote != "" {
				flagged = ap.FlagNote
			}
		}
		row := []any{
			ap.Start.Format(dateLayout),
			ap.Start.Format(timeLayout),
			ap.End.Format(timeLayout),
			int(ap.Duration() / time.Minute),
			a.resourceName(ap.ResourceID),
			string(ap.Category),
			ap.Title,
			ap.ClientName,
			ap.Notes,
			flagged,
		}
		if err := sw.WriteRow(row); err != nil {
			return fmt.Errorf("write appointment %s: %w", ap.ID, err)
		}
	}

	if len(a.Availability) > 0 {
		if err := writeAvailability(sw, a); err != nil {
			return err
		}
	}

	return sw.Save(w)
}

func writeAvailability(sw *SheetWriter, a Agenda) error {
	if err := sw.AddSheet(SheetAvailability); err != nil {
		return err
	}

	var ids []string
	seen := map[string]bool{}
	for _, rep := range a.Availability {
		for id := range rep.Counts {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)

	header := []string{"Date"}
	for _, id := range ids {
		header = append(header, a.resourceName(id))
	}
	header = append(header, "Total")
	if err := sw.WriteHeader(header); err != nil {
		return err
	}

	for _, rep := range a.Availability {
		row := []any{rep.Date.Format(dateLayout)}
		for _, id := range ids {
			row = append(row, rep.Counts[id])
		}
		row = append(row, rep.Total)
		if err := sw.WriteRow(row); err != nil {
			return fmt.Errorf("write availability %s: %w", rep.Date.Format(dateLayout), err)
		}
	}
	return nil
}

// Filename names an export of window, e.g. "agenda_2026-01-12_2026-01-18.xlsx".
func Filename(window daterange.Range, ext string) string {
	start, end := window.Start.Format(dateLayout), window.End.Format(dateLayout)
	if start == end {
		return fmt.Sprintf("agenda_%s.%s", start, ext)
	}
	return fmt.Sprintf("agenda_%s_%s.%s", start, end, ext)
}
