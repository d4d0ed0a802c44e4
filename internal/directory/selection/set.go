package selection

import "github.com/bwmarrin/snowflake"

// Set is an insertion-ordered set of account ids. It is not safe for
// concurrent use; Manager serializes access per selection.
type Set struct {
	order []snowflake.ID
	index map[snowflake.ID]struct{}
}

func NewSet(ids ...snowflake.ID) *Set {
	s := &Set{index: make(map[snowflake.ID]struct{}, len(ids))}
	s.Add(ids...)
	return s
}

// Add appends ids not yet present and returns how many were added.
func (s *Set) Add(ids ...snowflake.ID) int {
	added := 0
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.order = append(s.order, id)
		added++
	}
	return added
}

// Remove drops ids and returns how many were present.
func (s *Set) Remove(ids ...snowflake.ID) int {
	drop := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			drop[id] = struct{}{}
			delete(s.index, id)
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return len(drop)
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Set) Toggle(id snowflake.ID) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

func (s *Set) Has(id snowflake.ID) bool {
	_, ok := s.index[id]
	return ok
}

// IDs returns a copy of the members in insertion order.
func (s *Set) IDs() []snowflake.ID {
	out := make([]snowflake.ID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Set) Len() int { return len(s.order) }

func (s *Set) Clear() {
	s.order = nil
	s.index = make(map[snowflake.ID]struct{})
}
