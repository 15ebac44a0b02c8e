// internal/report/store.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Entry holds the characteristic selections of one segment, keyed by
// concept display name with the chosen choice label as value.
type Entry map[string]string

// Store keeps per-segment characteristic selections, keyed by the segment's
// numeric label value. The session owning the store mutates it in response
// to segment lifecycle events; the save workflow only reads it. It is not
// safe for concurrent use.
type Store struct {
	entries map[int]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[int]Entry)}
}

// GetOrCreate returns the entry for the given segment, creating an empty
// one if the segment is seen for the first time. The returned map is live:
// writes to it are visible through the store.
func (s *Store) GetOrCreate(id int) Entry {
	e, ok := s.entries[id]
	if !ok {
		e = make(Entry)
		s.entries[id] = e
	}
	return e
}

// Get returns the entry for the given segment without creating one.
func (s *Store) Get(id int) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Set records a choice label for one concept of one segment.
func (s *Store) Set(id int, concept, choice string) {
	s.GetOrCreate(id)[concept] = choice
}

// Prune drops every entry whose segment id is not in current. Surviving
// entries keep their selections untouched.
func (s *Store) Prune(current []int) {
	keep := make(map[int]bool, len(current))
	for _, id := range current {
		keep[id] = true
	}
	for id := range s.entries {
		if !keep[id] {
			delete(s.entries, id)
		}
	}
}

// OrderedKeys returns all segment ids in ascending order. This order pairs
// segment entries with per-segment report content during the merge, so it
// must stay stable while the key set is unchanged.
func (s *Store) OrderedKeys() []int {
	keys := make([]int, 0, len(s.entries))
	for id := range s.entries {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	return keys
}

// Len returns the number of segments tracked.
func (s *Store) Len() int {
	return len(s.entries)
}

// Reset drops all entries.
func (s *Store) Reset() {
	s.entries = make(map[int]Entry)
}

// LoadAssignments reads a store from a JSON file shaped like
//
//	{"7": {"Shape": "Round"}, "12": {"Shape": "N/A"}}
//
// Object keys are segment label values and must parse as integers.
func LoadAssignments(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assignments file: %w", err)
	}

	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse assignments file: %w", err)
	}

	s := NewStore()
	for key, entry := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid segment id %q in assignments file", key)
		}
		e := s.GetOrCreate(id)
		for concept, choice := range entry {
			e[concept] = choice
		}
	}
	return s, nil
}

// SaveAssignments writes the store to a JSON file in the format read by
// LoadAssignments.
func (s *Store) SaveAssignments(path string) error {
	raw := make(map[string]Entry, len(s.entries))
	for id, entry := range s.entries {
		raw[strconv.Itoa(id)] = entry
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode assignments: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write assignments file: %w", err)
	}
	return nil
}
