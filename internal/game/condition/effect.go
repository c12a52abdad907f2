package condition

import "github.com/google/uuid"

// EffectKind is the closed set of temporary effect types a spell can leave behind.
type EffectKind string

const (
	SpeedReduction           EffectKind = "speed_reduction"
	DisadvantageOnNextAttack EffectKind = "disadvantage_on_next_attack"
)

// Persistent reports whether effects of this kind survive the caster's next
// turn start; they are only removed by being consumed.
func (k EffectKind) Persistent() bool {
	return k == DisadvantageOnNextAttack
}

// Effect is a time-boxed modifier tagged with the combatant that caused it.
type Effect struct {
	ID       string     `json:"id"`
	Kind     EffectKind `json:"kind"`
	SourceID string     `json:"source_id"`
	// Value is the magnitude, e.g. cells of speed lost.
	Value int `json:"value"`
}

// NewEffect builds an Effect with a fresh unique ID.
func NewEffect(kind EffectKind, sourceID string, value int) Effect {
	return Effect{ID: uuid.NewString(), Kind: kind, SourceID: sourceID, Value: value}
}

// Effects is the list of temporary effects on one combatant.
type Effects []Effect

// Add appends e unless an effect with the same ID is already present.
func (es Effects) Add(e Effect) Effects {
	for _, x := range es {
		if x.ID == e.ID {
			return es
		}
	}
	return append(es, e)
}

// Remove drops the effect with the given ID; unknown IDs are a no-op.
func (es Effects) Remove(id string) Effects {
	out := es[:0:0]
	for _, x := range es {
		if x.ID != id {
			out = append(out, x)
		}
	}
	return out
}

// RemoveFromCaster drops every non-persistent effect sourced from casterID.
func (es Effects) RemoveFromCaster(casterID string) Effects {
	out := es[:0:0]
	for _, x := range es {
		if x.SourceID == casterID && !x.Kind.Persistent() {
			continue
		}
		out = append(out, x)
	}
	return out
}

// First returns the first effect of kind.
func (es Effects) First(kind EffectKind) (Effect, bool) {
	for _, x := range es {
		if x.Kind == kind {
			return x, true
		}
	}
	return Effect{}, false
}

// Total sums Value over every effect of kind.
func (es Effects) Total(kind EffectKind) int {
	n := 0
	for _, x := range es {
		if x.Kind == kind {
			n += x.Value
		}
	}
	return n
}

// Clone returns an independent copy.
func (es Effects) Clone() Effects {
	if es == nil {
		return nil
	}
	out := make(Effects, len(es))
	copy(out, es)
	return out
}
