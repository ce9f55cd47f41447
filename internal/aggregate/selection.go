// Package aggregate manages the selected-resource set and summarises
// availability across it.
package aggregate

import (
	"sort"

	"praxis/internal/model"
)

// Selection is a set of resource ids. For a single-resource actor it is
// locked to that actor's resource and every mutation is a no-op.
type Selection struct {
	ids    map[string]struct{}
	locked bool
}

// NewSelection returns the initial selection for actor.
func NewSelection(actor model.Actor) *Selection {
	s := &Selection{ids: make(map[string]struct{})}
	if actor.SingleResource() {
		s.ids[actor.ResourceID] = struct{}{}
		s.locked = true
	}
	return s
}

// Locked reports whether mutations are ignored.
func (s *Selection) Locked() bool { return s.locked }

// Toggle adds id if absent and removes it if present.
func (s *Selection) Toggle(id string) {
	if s.locked || id == "" {
		return
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// SelectAll replaces the selection with every known id.
func (s *Selection) SelectAll(ids []string) {
	if s.locked {
		return
	}
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

func (s *Selection) SelectNone() {
	if s.locked {
		return
	}
	s.ids = make(map[string]struct{})
}

func (s *Selection) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selection sorted ascending.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s *Selection) Clone() *Selection {
	c := &Selection{ids: make(map[string]struct{}, len(s.ids)), locked: s.locked}
	for id := range s.ids {
		c.ids[id] = struct{}{}
	}
	return c
}
