// Package calibration holds the session's named reference positions.
package calibration

import "github.com/ayusman/ghostglove/internal/stereo"

// Entry is one calibrated reference point: a key label or finger home.
type Entry struct {
	Label     string            `json:"label"`
	Reference stereo.Position3D `json:"reference"`
}

// Store maps labels to reference positions for the lifetime of one session.
// Entries iterate in first-insertion order; overwriting a label keeps its
// original place so nearest-match ties stay reproducible.
//
// Store is not safe for concurrent use. The frame loop is its only writer and
// reader; other goroutines get copies via Entries.
type Store struct {
	index   map[string]int
	entries []Entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		index:   make(map[string]int),
		entries: make([]Entry, 0),
	}
}

// Save inserts or overwrites the reference for label.
func (s *Store) Save(label string, pos stereo.Position3D) {
	if i, ok := s.index[label]; ok {
		s.entries[i].Reference = pos
		return
	}
	s.index[label] = len(s.entries)
	s.entries = append(s.entries, Entry{Label: label, Reference: pos})
}

// Lookup returns the reference for label and whether it exists.
func (s *Store) Lookup(label string) (stereo.Position3D, bool) {
	i, ok := s.index[label]
	if !ok {
		return stereo.Position3D{}, false
	}
	return s.entries[i].Reference, true
}

// Entries returns a copy of all entries in insertion order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Each calls fn for every entry in insertion order without copying.
func (s *Store) Each(fn func(Entry)) {
	for _, e := range s.entries {
		fn(e)
	}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}
