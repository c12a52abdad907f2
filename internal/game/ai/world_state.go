package ai

import (
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// WorldState is the planner's view of one snapshot from the acting
// combatant's side.
//
// Invariant: Self is non-nil.
type WorldState struct {
	State *combat.State
	Self  *character.Character
	// TargetID is the opponent chosen at the start of the turn.
	TargetID string
}

// BuildWorldState views s from actorID's side, keeping targetID as the target.
//
// Precondition: actorID names a combatant of s.
func BuildWorldState(s *combat.State, actorID, targetID string) *WorldState {
	return &WorldState{State: s, Self: s.Character(actorID), TargetID: targetID}
}

// Target returns the turn's target, or nil when none was chosen.
func (ws *WorldState) Target() *character.Character {
	if ws.TargetID == "" {
		return nil
	}
	return ws.State.Character(ws.TargetID)
}

// Enemies returns the living opponents of Self in roster order.
func (ws *WorldState) Enemies() []*character.Character {
	return ws.State.Opponents(ws.Self)
}

// NearestEnemy returns the living opponent closest to Self by Chebyshev
// distance, ties broken by roster order, or nil.
func (ws *WorldState) NearestEnemy() *character.Character {
	enemies := ws.Enemies()
	if len(enemies) == 0 {
		return nil
	}
	sort.SliceStable(enemies, func(i, j int) bool {
		return grid.Chebyshev(ws.Self.Pos, enemies[i].Pos) < grid.Chebyshev(ws.Self.Pos, enemies[j].Pos)
	})
	return enemies[0]
}

// WeakestEnemy returns the living opponent with the lowest HP fraction, or nil.
//
// Postcondition: ties broken by roster order.
func (ws *WorldState) WeakestEnemy() *character.Character {
	enemies := ws.Enemies()
	if len(enemies) == 0 {
		return nil
	}
	weakest := enemies[0]
	for _, e := range enemies[1:] {
		if e.HP*weakest.MaxHP < weakest.HP*e.MaxHP {
			weakest = e
		}
	}
	return weakest
}

// ChooseTarget returns the opponent policy selects: WeakestEnemy for
// TargetWeakest, NearestEnemy otherwise. Nil when no opponent stands.
func (ws *WorldState) ChooseTarget(policy string) *character.Character {
	if policy == TargetWeakest {
		return ws.WeakestEnemy()
	}
	return ws.NearestEnemy()
}

// Distance is the Chebyshev distance from Self to the target, or -1.
func (ws *WorldState) Distance() int {
	t := ws.Target()
	if t == nil {
		return -1
	}
	return grid.Chebyshev(ws.Self.Pos, t.Pos)
}

// TargetAlive reports whether the target still stands.
func (ws *WorldState) TargetAlive() bool {
	t := ws.Target()
	return t != nil && t.Alive()
}

// InReach reports whether the target is within Self's primary attack range.
func (ws *WorldState) InReach() bool {
	d := ws.Distance()
	return d >= 0 && d <= ws.Self.Primary.Range
}

// Engaged reports whether any living opponent stands adjacent to Self.
func (ws *WorldState) Engaged() bool {
	return ws.State.Engaged(ws.Self)
}

// ClearShot reports whether Self can shoot the target from cell: in range,
// sharing a row or column, with line of sight.
func (ws *WorldState) ClearShot(cell grid.Position) bool {
	t := ws.Target()
	if t == nil {
		return false
	}
	if grid.Chebyshev(cell, t.Pos) > ws.Self.Primary.Range {
		return false
	}
	if cell.X != t.Pos.X && cell.Y != t.Pos.Y {
		return false
	}
	return ws.State.Grid().HasLineOfSight(cell, t.Pos)
}

// TargetInDefenseArea reports whether the target stands inside Self's defense
// area. Without an area every target counts as inside.
func (ws *WorldState) TargetInDefenseArea() bool {
	t := ws.Target()
	if t == nil {
		return false
	}
	if ws.Self.DefenseArea == nil {
		return true
	}
	return ws.Self.DefenseArea.Contains(t.Pos)
}
