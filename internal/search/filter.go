// Package search narrows appointment collections by free text.
package search

import (
	"strings"

	"praxis/internal/model"
)

// Lookup resolves a resource id to its display name.
type Lookup func(id string) string

// LookupFromResources builds a Lookup over a resource list. Unknown ids
// resolve to "".
func LookupFromResources(resources []model.Resource) Lookup {
	names := make(map[string]string, len(resources))
	for _, r := range resources {
		names[r.ID] = r.Name
	}
	return func(id string) string { return names[id] }
}

// Normalize lower-cases and trims a query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Matches reports whether a contains the normalized query in any of its
// searchable fields. The match is a literal substring, not a word search.
func Matches(a model.Appointment, normalized string, lookup Lookup) bool {
	fields := [...]string{a.ClientName, a.Title, string(a.Category), a.Notes, ""}
	if lookup != nil {
		fields[len(fields)-1] = lookup(a.ResourceID)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), normalized) {
			return true
		}
	}
	return false
}

// Filter returns appts unchanged for a blank query, otherwise the matching
// subset in input order.
func Filter(query string, appts []model.Appointment, lookup Lookup) []model.Appointment {
	q := Normalize(query)
	if q == "" {
		return appts
	}
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if Matches(a, q, lookup) {
			out = append(out, a)
		}
	}
	return out
}
