package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// advanceTurn moves to the next living combatant in the turn order, opening a
// new round when the order wraps. A round beyond the configured cap ends the
// battle in a stalemate.
//
// Precondition: TurnOrder is non-empty.
func (e *Engine) advanceTurn(s *State) {
	if s.Ended() || e.checkBattleEnd(s) {
		return
	}
	n := len(s.TurnOrder)
	if n == 0 {
		panic("combat: advancing turn without a turn order")
	}
	for hop := 0; hop < 2*n; hop++ {
		next := (s.TurnIndex + 1) % n
		if s.TurnIndex == -1 || next <= s.TurnIndex {
			if s.Round >= e.cfg.MaxRounds {
				s.logf(LogInfo, "The round limit of %d has been reached.", e.cfg.MaxRounds)
				e.endBattle(s, OutcomeStalemate)
				return
			}
			s.Round++
			s.logf(LogTurnStart, "Round %d begins.", s.Round)
		}
		s.TurnIndex = next
		c := s.Character(s.TurnOrder[next])
		if c == nil {
			panic(fmt.Sprintf("combat: turn order names unknown combatant %q", s.TurnOrder[next]))
		}
		if !c.Alive() {
			continue
		}
		if e.startTurn(s, c) {
			return
		}
		if e.checkBattleEnd(s) {
			return
		}
	}
	panic("combat: no living combatant in turn order")
}

// startTurn prepares c's turn and reports whether c survived its start.
func (e *Engine) startTurn(s *State, c *character.Character) bool {
	for _, o := range s.Characters {
		o.RemoveEffectsFromCaster(c.ID)
	}
	s.ActiveID = c.ID
	c.ResetForNewTurn()
	e.updateTerrainConditions(s, c)
	s.AttacksMade = 0
	s.Highlighted = nil
	s.Attack, s.Roll, s.Save = nil, nil, nil
	s.TargetingSpell = ""
	s.logf(LogTurnStart, "It is %s's turn.", b(c.Name))
	e.inspect(s, c.Pos)
	if !e.applyHazard(s, c) {
		return false
	}
	s.Phase = e.turnPhase(s)
	return true
}

// applyHazard deals the damage of a hazardous area c starts its turn in and
// reports whether c is still alive.
func (e *Engine) applyHazard(s *State, c *character.Character) bool {
	for _, eff := range s.Grid().EffectsAt(c.Pos) {
		if eff.Type != grid.HazardousArea || eff.Hazard == nil {
			continue
		}
		expr, err := dice.Parse(eff.Hazard.DamageDice)
		if err != nil {
			e.lg().Error("bad hazard dice", zap.String("dice", eff.Hazard.DamageDice), zap.Error(err))
			return c.Alive()
		}
		roll := e.roller.Roll(expr)
		s.logf(LogDamage, "%s starts the turn in a hazardous area.", b(c.Name))
		e.damage(s, c, roll.Total(), eff.Hazard.DamageType, roll.String())
		return c.Alive()
	}
	return c.Alive()
}

// checkBattleEnd ends the battle once a faction has no living members.
func (e *Engine) checkBattleEnd(s *State) bool {
	if s.Ended() {
		return true
	}
	switch {
	case len(s.Living(character.FactionPlayer)) == 0:
		e.endBattle(s, OutcomeDefeat)
	case len(s.Living(character.FactionEnemy)) == 0:
		e.endBattle(s, OutcomeVictory)
	default:
		return false
	}
	return true
}

func (e *Engine) endBattle(s *State, o Outcome) {
	s.Phase = PhaseBattleEnded
	s.Outcome = o
	s.PendingRoll = nil
	s.Highlighted = nil
	s.OpportunityAttacks = nil
	s.Attack, s.Roll, s.Save = nil, nil, nil
	switch o {
	case OutcomeVictory:
		s.logf(LogSuccess, "Victory! All enemies have been defeated.")
	case OutcomeDefeat:
		s.logf(LogError, "Defeat! All heroes have fallen.")
	default:
		s.logf(LogInfo, "Stalemate. The battle ends without a victor.")
	}
	e.lg().Info("battle ended", zap.String("outcome", string(o)), zap.Int("round", s.Round))
}

// kill starts c's death fade.
func (e *Engine) kill(s *State, c *character.Character) {
	c.Anim.Path = nil
	c.Anim.Dying = true
	c.Anim.FadeElapsed = 0
	if e.cfg.DeathFadeDuration <= 0 {
		c.Anim.Dying, c.Anim.Faded = false, true
	}
	s.logf(LogDamage, "%s has been defeated!", b(c.Name))
}
