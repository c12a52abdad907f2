// Package condition models the closed set of combat conditions a combatant can
// carry and the caster-tagged temporary effects applied by spells.
package condition

import "encoding/json"

// ID names a condition.
type ID string

const (
	Prone   ID = "prone"
	Blinded ID = "blinded"
)

// Known reports whether id is one of the conditions the rules engine implements.
func Known(id ID) bool {
	return id == Prone || id == Blinded
}

// Set is an ordered set of active conditions. The zero value is empty and usable.
type Set struct {
	ids []ID
}

// NewSet returns a Set containing ids, ignoring duplicates.
func NewSet(ids ...ID) Set {
	var s Set
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id is active.
func (s Set) Has(id ID) bool {
	for _, x := range s.ids {
		if x == id {
			return true
		}
	}
	return false
}

// Add activates id. Adding an active condition is a no-op.
//
// Postcondition: returns true only when the set changed.
func (s *Set) Add(id ID) bool {
	if s.Has(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deactivates id. Removing an inactive condition is a no-op.
//
// Postcondition: returns true only when the set changed.
func (s *Set) Remove(id ID) bool {
	for i, x := range s.ids {
		if x == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the active conditions in activation order.
func (s Set) List() []ID {
	out := make([]ID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of active conditions.
func (s Set) Len() int { return len(s.ids) }

// Clone returns an independent copy.
func (s Set) Clone() Set {
	return Set{ids: s.List()}
}

// MarshalJSON encodes the set as an array of ids.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes an array of ids, dropping duplicates.
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSet(ids...)
	return nil
}
