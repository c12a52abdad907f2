package combat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// ActionKind names a discrete action.
type ActionKind string

const (
	ActionDash      ActionKind = "dash"
	ActionDisengage ActionKind = "disengage"
	ActionDodge     ActionKind = "dodge"
	ActionStandUp   ActionKind = "stand_up"
	ActionFallProne ActionKind = "fall_prone"
	ActionUsePotion ActionKind = "use_potion"
	ActionShove     ActionKind = "shove"
)

// ParseActionKind validates an action name.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionDash, ActionDisengage, ActionDodge, ActionStandUp, ActionFallProne, ActionUsePotion, ActionShove:
		return k, nil
	}
	return "", fmt.Errorf("combat: unknown action %q", s)
}

// TargetMode is a targeting mode the player can arm.
type TargetMode string

const (
	TargetMove   TargetMode = "move"
	TargetAttack TargetMode = "attack"
	TargetSpell  TargetMode = "spell"
	TargetShove  TargetMode = "shove"
)

var targetPhases = map[TargetMode]Phase{
	TargetMove:   PhaseAwaitingMoveTarget,
	TargetAttack: PhaseAwaitingAttackTarget,
	TargetSpell:  PhaseAwaitingSpellTarget,
	TargetShove:  PhaseAwaitingShoveTarget,
}

// potionHealing is what a healing potion restores.
var potionHealing = dice.MustParse("2d4+2")

// PerformAction runs a discrete action for the active player. Shove needs
// targetID; the other actions ignore it.
func (e *Engine) PerformAction(ctx context.Context, kind ActionKind, targetID string) (*State, error) {
	if _, err := ParseActionKind(string(kind)); err != nil {
		return e.Snapshot(), err
	}
	return e.command(ctx, "PerformAction", func(s *State, actor *character.Character) {
		if !canTarget(s.Phase) && s.Phase != PhaseAwaitingExtraAttack {
			return
		}
		switch kind {
		case ActionDash:
			e.dash(s, actor)
		case ActionDisengage:
			e.disengage(s, actor)
		case ActionDodge:
			e.dodge(s, actor)
		case ActionStandUp:
			e.standUp(s, actor)
		case ActionFallProne:
			e.fallProne(s, actor)
		case ActionUsePotion:
			if e.usePotion(s, actor) {
				return
			}
		case ActionShove:
			if e.beginShove(s, actor, s.Character(targetID)) {
				e.resolveShove(s, actor.ID, targetID)
			}
		}
		if s.Phase != PhaseAwaitingExtraAttack {
			s.Phase = PhaseIdle
			s.Highlighted = nil
		}
	})
}

func (e *Engine) dash(s *State, c *character.Character) bool {
	if c.Actions < 1 {
		s.reject("No actions left!", c.Pos)
		return false
	}
	c.Actions--
	c.Movement += float64(c.SpeedCells())
	s.logf(LogInfo, "%s dashes, doubling their movement.", b(c.Name))
	return true
}

func (e *Engine) disengage(s *State, c *character.Character) bool {
	if c.Actions < 1 {
		s.reject("No actions left!", c.Pos)
		return false
	}
	c.Actions--
	c.Disengaging = true
	s.logf(LogInfo, "%s disengages.", b(c.Name))
	return true
}

func (e *Engine) dodge(s *State, c *character.Character) bool {
	if c.Actions < 1 {
		s.reject("No actions left!", c.Pos)
		return false
	}
	c.Actions--
	c.Dodging = true
	s.logf(LogInfo, "%s takes the dodge action.", b(c.Name))
	return true
}

// standUp costs half of c's speed in movement.
func (e *Engine) standUp(s *State, c *character.Character) bool {
	if !c.HasCondition(condition.Prone) {
		return false
	}
	cost := float64(c.SpeedCells()) / 2
	if c.Movement+costEpsilon < cost {
		s.logf(LogError, "%s does not have enough movement to stand up.", b(c.Name))
		return false
	}
	c.RemoveCondition(condition.Prone)
	c.SpendMovement(cost)
	s.logf(LogInfo, "%s stands up.", b(c.Name))
	return true
}

func (e *Engine) fallProne(s *State, c *character.Character) {
	if c.AddCondition(condition.Prone) {
		s.logf(LogInfo, "%s drops prone.", b(c.Name))
	}
}

// usePotion drinks the first healing potion and asks for the healing dice.
func (e *Engine) usePotion(s *State, c *character.Character) bool {
	i, ok := c.HealingPotion()
	switch {
	case c.Actions < 1:
		s.reject("No actions left!", c.Pos)
		return false
	case !ok:
		s.reject("No potions!", c.Pos)
		return false
	}
	c.RemoveItem(i)
	c.Actions--
	s.Highlighted = nil
	s.Phase = PhaseRollingHeal
	s.Roll = &DiceRoll{Count: potionHealing.Count, Sides: potionHealing.Sides}
	s.PendingRoll = &RollRequest{Kind: RollHeal, ActorID: c.ID, Count: potionHealing.Count, Sides: potionHealing.Sides}
	s.logf(LogInfo, "%s drinks a potion. Roll %s.", b(c.Name), potionHealing.Raw)
	return true
}

// resolveHealingRoll heals the drinker; dice left out are rolled internally.
func (e *Engine) resolveHealingRoll(s *State, values []int) {
	c := s.Active()
	rolls := append([]int(nil), values...)
	for len(rolls) < potionHealing.Count {
		rolls = append(rolls, e.roller.Roll(potionHealing.WithCount(1)).Dice[0])
	}
	amount := sum(rolls) + potionHealing.Modifier
	healed := c.Heal(amount)
	s.float("+"+strconv.Itoa(healed), c.Pos, TextHeal, 0)
	s.logf(LogHeal, "%s recovers <b>%d</b> HP. (%s) %+d", b(c.Name), healed, joinInts(rolls, " + "), potionHealing.Modifier)
	s.Phase = PhaseIdle
	s.Roll, s.PendingRoll = nil, nil
}

// BeginTargeting arms a targeting mode for the active player. Arming the mode
// already active returns to IDLE.
func (e *Engine) BeginTargeting(ctx context.Context, mode TargetMode) (*State, error) {
	phase, ok := targetPhases[mode]
	if !ok {
		return e.Snapshot(), fmt.Errorf("combat: unknown targeting mode %q", mode)
	}
	return e.command(ctx, "BeginTargeting", func(s *State, actor *character.Character) {
		if !canTarget(s.Phase) {
			return
		}
		if s.Phase == phase {
			s.Phase = PhaseIdle
			s.Highlighted = nil
			s.TargetingSpell = ""
			return
		}
		s.Phase = phase
		s.TargetingSpell = ""
		switch mode {
		case TargetMove:
			s.Highlighted = e.reachableCells(s, actor)
		case TargetAttack:
			s.Highlighted = e.targetsInRange(s, actor, actor.Primary.Range)
		case TargetShove:
			s.Highlighted = e.targetsInRange(s, actor, 1)
		case TargetSpell:
			s.Highlighted = nil
			if len(actor.Spells) > 0 {
				sp := actor.Spells[0]
				s.TargetingSpell = sp.ID
				s.Highlighted = e.targetsInRange(s, actor, max(sp.Range, 1))
			}
		}
	})
}

// SelectCell routes a click on cell according to the current phase, like a
// pointer on the battle map.
func (e *Engine) SelectCell(ctx context.Context, cell grid.Position) (*State, error) {
	s := e.Snapshot()
	if s == nil {
		return nil, ErrNoBattle
	}
	occupant := s.LivingAt(cell)
	id := ""
	if occupant != nil {
		id = occupant.ID
	}
	switch s.Phase {
	case PhaseAwaitingMoveTarget:
		return e.SelectMoveTarget(ctx, cell)
	case PhaseAwaitingAttackTarget, PhaseAwaitingExtraAttack:
		if occupant != nil {
			return e.SelectAttackTarget(ctx, id)
		}
	case PhaseAwaitingSpellTarget:
		if occupant != nil {
			return e.SelectSpellTarget(ctx, id, "")
		}
	case PhaseAwaitingShoveTarget:
		if occupant != nil {
			return e.PerformAction(ctx, ActionShove, id)
		}
	}
	return e.InspectCell(ctx, cell)
}
