package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// beginShove validates a shove and spends the attacker's action.
func (e *Engine) beginShove(s *State, att, tgt *character.Character) bool {
	if !validTarget(s, att, tgt) {
		return false
	}
	if grid.Chebyshev(att.Pos, tgt.Pos) > 1 {
		s.reject("Out of range!", tgt.Pos)
		return false
	}
	if att.Actions < 1 {
		s.reject("No actions left!", att.Pos)
		return false
	}
	att.Actions--
	s.Highlighted = nil
	s.logf(LogInfo, "%s tries to shove %s.", b(att.Name), b(tgt.Name))
	return true
}

// PushDistance is the number of cells the loser of a shove contest is driven
// back: ceil(margin / 4).
func PushDistance(margin int) int {
	if margin <= 0 {
		return 0
	}
	return (margin + 3) / 4
}

// resolveShove runs the opposed strength check. The loser falls prone and is
// pushed straight away from the winner until the distance is spent or the way
// is blocked. A tie changes nothing.
func (e *Engine) resolveShove(s *State, attID, tgtID string) {
	att, tgt := s.Character(attID), s.Character(tgtID)
	aRoll, tRoll := e.roller.D20(), e.roller.D20()
	aMod, tMod := att.Mod(character.Strength), tgt.Mod(character.Strength)
	aTotal, tTotal := aRoll+aMod, tRoll+tMod
	s.logf(LogInfo, "Strength contest: %s rolls %d (%d %+d), %s rolls %d (%d %+d).",
		b(att.Name), aTotal, aRoll, aMod, b(tgt.Name), tTotal, tRoll, tMod)

	winner, loser := att, tgt
	switch {
	case aTotal > tTotal:
	case tTotal > aTotal:
		winner, loser = tgt, att
	default:
		s.logf(LogInfo, "A tie! Nobody moves.")
		return
	}
	s.logf(LogSuccess, "%s wins the contest!", b(winner.Name))
	if loser.AddCondition(condition.Prone) {
		s.logf(LogInfo, "%s is knocked prone.", b(loser.Name))
	}
	e.push(s, winner, loser, PushDistance(abs(aTotal-tTotal)))
}

// push drives loser up to dist cells directly away from winner as a forced move.
func (e *Engine) push(s *State, winner, loser *character.Character, dist int) {
	if dist <= 0 {
		return
	}
	s.logf(LogInfo, "%s is pushed back <b>%d</b> cells.", b(loser.Name), dist)
	dir := grid.Position{X: grid.Sign(loser.Pos.X - winner.Pos.X), Y: grid.Sign(loser.Pos.Y - winner.Pos.Y)}
	g := s.Grid()
	path := []grid.Position{loser.Pos}
	cur := loser.Pos
	for i := 0; i < dist; i++ {
		next := cur.Add(dir)
		if !g.InBounds(next) || g.IsObstacle(next) || g.IsOccupied(next, loser.ID) {
			s.logf(LogInfo, "%s's push is blocked.", b(loser.Name))
			break
		}
		path = append(path, next)
		cur = next
	}
	if len(path) > 1 {
		s.float("Pushed!", cur, TextInfo, 0)
		e.startMove(s, loser, path, true)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
