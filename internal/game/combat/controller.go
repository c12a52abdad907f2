package combat

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// Turn is an engine-controlled combatant's handle on its own turn. Every
// accessor reads the latest published snapshot, and every action publishes
// through the engine like a player command would. A Turn must not be used
// after TakeTurn returns.
type Turn struct {
	e  *Engine
	id string
}

// ActorID returns the id of the combatant whose turn this is.
func (t *Turn) ActorID() string { return t.id }

// State returns the latest published snapshot.
func (t *Turn) State() *State { return t.e.Snapshot() }

// Actor returns the acting combatant from the latest snapshot.
func (t *Turn) Actor() *character.Character { return t.State().Character(t.id) }

// Ended reports whether the battle is over or the actor has fallen.
func (t *Turn) Ended() bool {
	s := t.State()
	c := s.Character(t.id)
	return s.Ended() || c == nil || !c.Alive()
}

// Crawling reports whether the actor currently moves at crawling cost.
func (t *Turn) Crawling() bool { return t.e.crawling(t.Actor()) }

// Reachable returns every cell the actor can enter with its remaining movement
// plus extra, with the cheapest cost of each. The actor's own cell is excluded.
func (t *Turn) Reachable(extra float64) map[grid.Position]float64 {
	s := t.State()
	c := s.Character(t.id)
	return s.Grid().Reachable(c.Pos, c.Movement+extra+costEpsilon, c.ID, t.e.crawling(c))
}

// Chance reports true with probability percent/100 from the engine's dice.
func (t *Turn) Chance(percent int) bool { return t.e.roller.Chance(percent) }

// Shuffle permutes n elements with the engine's dice.
func (t *Turn) Shuffle(n int, swap func(i, j int)) { t.e.roller.Shuffle(n, swap) }

// Pause waits one full AI delay.
func (t *Turn) Pause(ctx context.Context) error { return t.e.pacer.Pause(ctx) }

// Beat waits half an AI delay.
func (t *Turn) Beat(ctx context.Context) error { return t.e.pacer.Beat(ctx) }

// Say appends a narration line to the battle log.
func (t *Turn) Say(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.e.update(func(s *State) { s.logf(LogInfo, "%s", msg) })
}

// act runs fn on a draft holding the actor and reports its result.
func (t *Turn) act(fn func(s *State, c *character.Character) bool) bool {
	var ok bool
	t.e.update(func(s *State) {
		c := s.Character(t.id)
		if c == nil || !c.Alive() || s.Ended() {
			return
		}
		ok = fn(s, c)
	})
	return ok
}

// SpendAction consumes the actor's action.
func (t *Turn) SpendAction() bool {
	return t.act(func(_ *State, c *character.Character) bool {
		if c.Actions < 1 {
			return false
		}
		c.Actions--
		return true
	})
}

// StandUp rises from prone for half the actor's speed.
func (t *Turn) StandUp() bool { return t.act(t.e.standUp) }

// Dash spends the action for extra movement.
func (t *Turn) Dash() bool { return t.act(t.e.dash) }

// Disengage spends the action to move without provoking.
func (t *Turn) Disengage() bool { return t.act(t.e.disengage) }

// Dodge spends the action to impose disadvantage on incoming attacks.
func (t *Turn) Dodge() bool { return t.act(t.e.dodge) }

// Move walks the actor to dest and waits for the walk to finish. Opportunity
// attacks the walk provokes are resolved before Move returns.
func (t *Turn) Move(ctx context.Context, dest grid.Position) (bool, error) {
	moved := t.act(func(s *State, c *character.Character) bool {
		return t.e.executeMove(s, c, dest)
	})
	if !moved {
		return false, nil
	}
	if err := t.e.awaitIdle(ctx, t.id); err != nil {
		return true, err
	}
	if t.State().Phase == PhaseOpportunityAttack {
		if err := t.e.resolveOpportunityAttacks(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Attack makes one attack with the actor's primary attack. It does not spend
// the action; see AttackSequence.
func (t *Turn) Attack(ctx context.Context, targetID string) error {
	return t.e.aiAttack(ctx, t.id, targetID, false)
}

// AttackSequence spends the action and makes every attack it allows, stopping
// early once the target falls or the battle ends.
func (t *Turn) AttackSequence(ctx context.Context, targetID string) error {
	if !t.SpendAction() {
		return nil
	}
	n := t.Actor().AttacksPerAction()
	for i := 0; i < n; i++ {
		tgt := t.State().Character(targetID)
		if t.Ended() || tgt == nil || !tgt.Alive() {
			break
		}
		if err := t.Attack(ctx, targetID); err != nil {
			return err
		}
		if err := t.Beat(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shove spends the action on a strength contest against targetID and waits
// for any push to finish.
func (t *Turn) Shove(ctx context.Context, targetID string) error {
	started := t.act(func(s *State, c *character.Character) bool {
		return t.e.beginShove(s, c, s.Character(targetID))
	})
	if !started {
		return nil
	}
	if err := t.Beat(ctx); err != nil {
		return err
	}
	t.e.update(func(s *State) { t.e.resolveShove(s, t.id, targetID) })
	if err := t.e.awaitIdle(ctx, targetID); err != nil {
		return err
	}
	return t.e.awaitIdle(ctx, t.id)
}
