package combat

import (
	"context"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// costEpsilon absorbs float drift when comparing path cost to movement left.
const costEpsilon = 1e-9

// SelectMoveTarget moves the active player toward dest along the cheapest path.
func (e *Engine) SelectMoveTarget(ctx context.Context, dest grid.Position) (*State, error) {
	return e.command(ctx, "SelectMoveTarget", func(s *State, actor *character.Character) {
		if !canTarget(s.Phase) {
			return
		}
		e.executeMove(s, actor, dest)
	})
}

// InspectCell records what occupies cell. It never changes gameplay state.
func (e *Engine) InspectCell(ctx context.Context, cell grid.Position) (*State, error) {
	_, span := e.tracer.Start(ctx, "combat.InspectCell")
	defer span.End()
	if e.Snapshot() == nil {
		return nil, ErrNoBattle
	}
	return e.update(func(s *State) { e.inspect(s, cell) }), nil
}

func (e *Engine) inspect(s *State, cell grid.Position) {
	p := cell
	s.InspectedCell = &p
	if c := s.LivingAt(cell); c != nil {
		s.Inspected = &Inspection{Name: c.Name, Character: c.Clone()}
		return
	}
	if f, ok := s.Grid().FeatureAt(cell); ok {
		in := &Inspection{Name: f.Name, Feature: &f}
		if len(f.Effects) > 0 {
			in.Description = f.Effects[0].Description
		}
		s.Inspected = in
		return
	}
	s.Inspected = &Inspection{Name: "Terrain", Description: "No effect."}
}

// crawling reports whether c's conditions force it to crawl.
func (e *Engine) crawling(c *character.Character) bool {
	return e.conds.Crawling(c.Conditions)
}

// reachableCells lists every cell c can still enter this turn in row-major order.
func (e *Engine) reachableCells(s *State, c *character.Character) []grid.Position {
	costs := s.Grid().Reachable(c.Pos, c.Movement+costEpsilon, c.ID, e.crawling(c))
	out := make([]grid.Position, 0, len(costs))
	for p := range costs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// executeMove validates and starts mover's walk to dest. A path that leaves the
// reach of an opponent able to react is cut at the cell just outside it and
// the opportunity attacks are queued.
//
// Postcondition: returns false, with a floating-text rejection, when dest is
// occupied or costs more than the movement left.
func (e *Engine) executeMove(s *State, mover *character.Character, dest grid.Position) bool {
	if mover.Anim.Moving() || dest == mover.Pos {
		return false
	}
	g := s.Grid()
	if g.IsOccupied(dest, mover.ID) {
		s.float("Occupied!", dest, TextError, 0)
		s.logf(LogInfo, "That cell is occupied.")
		return false
	}
	crawling := e.crawling(mover)
	path, ok := g.FindPath(mover.Pos, dest, mover.ID, crawling)
	if !ok || path.Cost > mover.Movement+costEpsilon {
		s.reject("Too far!", dest)
		return false
	}

	steps := path.Steps
	var queued []OpportunityAttack
	if !mover.Disengaging {
		var cut int
		cut, queued = opportunityTriggers(s, mover, steps)
		if len(queued) > 0 {
			steps = steps[:cut+1]
		}
	}
	cost := g.PathCost(steps, crawling)
	mover.SpendMovement(cost)
	s.Highlighted = nil
	if len(queued) > 0 {
		s.OpportunityAttacks = queued
		s.Phase = PhaseOpportunityAttack
		for _, oa := range queued {
			s.logf(LogOpportunity, "%s provokes an opportunity attack from %s!", b(mover.Name), b(s.Character(oa.AttackerID).Name))
		}
	} else if e.human(mover) {
		s.Phase = PhaseIdle
	}
	e.startMove(s, mover, steps, false)
	return true
}

// opportunityTriggers finds the first step that leaves an eligible opponent's
// reach. It returns that step's index and one queued attack per opponent left
// behind on the same step.
func opportunityTriggers(s *State, mover *character.Character, steps []grid.Position) (int, []OpportunityAttack) {
	var eligible []*character.Character
	for _, o := range s.Opponents(mover) {
		if o.Reactions > 0 && o.Primary.MeleeOnly() {
			eligible = append(eligible, o)
		}
	}
	if len(eligible) == 0 {
		return 0, nil
	}
	for i := 1; i < len(steps); i++ {
		var out []OpportunityAttack
		for _, o := range eligible {
			if grid.Chebyshev(o.Pos, steps[i-1]) <= 1 && grid.Chebyshev(o.Pos, steps[i]) > 1 {
				out = append(out, OpportunityAttack{AttackerID: o.ID, TargetID: mover.ID})
			}
		}
		if len(out) > 0 {
			return i, out
		}
	}
	return 0, nil
}

// startMove begins the walk animation; with no per-cell duration it completes
// at once.
func (e *Engine) startMove(s *State, c *character.Character, steps []grid.Position, forced bool) {
	if len(steps) < 2 {
		return
	}
	c.Anim.Path = append([]grid.Position(nil), steps...)
	c.Anim.Elapsed = 0
	c.Anim.Forced = forced
	if e.cfg.MoveCellDuration <= 0 {
		e.completeMove(s, c)
	}
}

// completeMove commits the final cell of c's walk.
func (e *Engine) completeMove(s *State, c *character.Character) {
	if len(c.Anim.Path) == 0 {
		return
	}
	c.Pos = c.Anim.Path[len(c.Anim.Path)-1]
	c.Anim.Path = nil
	c.Anim.Elapsed = 0
	c.Anim.Forced = false
	e.updateTerrainConditions(s, c)
	if s.Active() == c {
		e.inspect(s, c.Pos)
	}
}

// updateTerrainConditions applies the conditions c's current cell imposes.
func (e *Engine) updateTerrainConditions(s *State, c *character.Character) {
	dark := s.Grid().HasEffect(c.Pos, grid.Darkness)
	switch {
	case dark && !c.HasFeature(character.FeatureDarkvision):
		if c.AddCondition(condition.Blinded) {
			s.logf(LogInfo, "%s is blinded by the darkness.", b(c.Name))
		}
	case c.RemoveCondition(condition.Blinded):
		s.logf(LogInfo, "%s can see again.", b(c.Name))
	}
}

// canTarget reports whether the phase accepts a fresh player choice.
func canTarget(p Phase) bool {
	switch p {
	case PhaseIdle, PhaseAwaitingMoveTarget, PhaseAwaitingAttackTarget,
		PhaseAwaitingSpellTarget, PhaseAwaitingShoveTarget:
		return true
	}
	return false
}
