package aggregate

import (
	"time"

	"praxis/internal/availability"
	"praxis/internal/model"
	"praxis/internal/slots"
)

// Report holds per-resource available-slot counts for one date.
type Report struct {
	Date   time.Time      `json:"date"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// Count returns the number of available slots for r on date.
func Count(date time.Time, r model.Resource, oracle availability.Oracle, granularity int) int {
	if !availability.IsWorkingDay(date, r) {
		return 0
	}
	n := 0
	for _, label := range slots.Labels(&r, granularity) {
		if oracle.IsAvailable(date, label, r) {
			n++
		}
	}
	return n
}

// Summarize counts available slots for each selected resource. Selected ids
// missing from resources are skipped.
func Summarize(date time.Time, resources []model.Resource, selected []string, oracle availability.Oracle, granularity int) Report {
	rep := Report{Date: model.DateOnly(date), Counts: make(map[string]int, len(selected))}
	for _, id := range selected {
		r, ok := model.FindResource(resources, id)
		if !ok {
			continue
		}
		n := Count(date, r, oracle, granularity)
		rep.Counts[id] = n
		rep.Total += n
	}
	return rep
}

// SummarizeRange builds one report per day, e.g. for month badges.
func SummarizeRange(days []time.Time, resources []model.Resource, selected []string, oracle availability.Oracle, granularity int) []Report {
	out := make([]Report, 0, len(days))
	for _, d := range days {
		out = append(out, Summarize(d, resources, selected, oracle, granularity))
	}
	return out
}
