package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
)

// CollapseEdges reduces every advantage and disadvantage source on one roll to
// a single edge. Any advantage together with any disadvantage cancels out.
func CollapseEdges(edges []condition.Edge) condition.Edge {
	var adv, dis bool
	for _, e := range edges {
		switch e {
		case condition.Advantage:
			adv = true
		case condition.Disadvantage:
			dis = true
		}
	}
	switch {
	case adv && !dis:
		return condition.Advantage
	case dis && !adv:
		return condition.Disadvantage
	}
	return condition.NoEdge
}

// attackEdge gathers the edge sources for att attacking tgt.
func (e *Engine) attackEdge(s *State, att, tgt *character.Character, ranged bool) condition.Edge {
	edges := e.conds.AttackerEdges(att.Conditions)
	if _, ok := att.Effects.First(condition.DisadvantageOnNextAttack); ok {
		edges = append(edges, condition.Disadvantage)
	}
	if tgt.Dodging {
		edges = append(edges, condition.Disadvantage)
	}
	edges = append(edges, e.conds.DefenderEdges(tgt.Conditions, ranged)...)
	if ranged && s.Engaged(att) {
		edges = append(edges, condition.Disadvantage)
	}
	return CollapseEdges(edges)
}

// diceFor is how many d20s an attack with edge rolls.
func diceFor(edge condition.Edge) int {
	if edge == condition.NoEdge {
		return 1
	}
	return 2
}

// pickDie selects the natural result an edge keeps.
func pickDie(edge condition.Edge, rolls []int) int {
	out := rolls[0]
	for _, r := range rolls[1:] {
		switch edge {
		case condition.Advantage:
			out = max(out, r)
		case condition.Disadvantage:
			out = min(out, r)
		}
	}
	return out
}

func edgeName(edge condition.Edge) string {
	switch edge {
	case condition.Advantage:
		return "advantage"
	case condition.Disadvantage:
		return "disadvantage"
	}
	return "normal"
}
