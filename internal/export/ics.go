package export

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//praxis//calendar export//EN"

// WriteICS writes the agenda's appointments as a VCALENDAR with one VEVENT
// each. Breaks are exported like any other entry.
func WriteICS(w io.Writer, a Agenda, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ap := range a.Appointments {
		ev := cal.AddEvent(ap.ID + "@praxis")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(ap.Start)
		ev.SetEndAt(ap.End)
		ev.SetSummary(summary(ap.Title, ap.ClientName))
		ev.SetLocation(a.resourceName(ap.ResourceID))
		if desc := description(ap.Notes, ap.FlagNote); desc != "" {
			ev.SetDescription(desc)
		}
		ev.AddProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(ap.Category)))
	}

	return cal.SerializeTo(w)
}

func summary(title, client string) string {
	switch {
	case title == "":
		return client
	case client == "":
		return title
	}
	return title + " - " + client
}

func description(notes, flagNote string) string {
	if flagNote == "" {
		return notes
	}
	if notes == "" {
		return "Flag: " + flagNote
	}
	return notes + "\nFlag: " + flagNote
}
