package combat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// damageTextDelay holds damage numbers back until the hit text has shown.
const damageTextDelay = 250 * time.Millisecond

// strike is the resolved profile of one weapon attack or spell cast.
type strike struct {
	name       string
	source     character.SourceKind
	spell      *character.Spell
	modifier   int
	dice       dice.Expression
	damageType string
	rng        int
}

func (st strike) ranged() bool { return st.rng > 1 }

// strikeFor resolves c's primary attack, or the named spell when spellID is set.
func strikeFor(c *character.Character, spellID string) (strike, bool) {
	if spellID == "" && c.Primary.Source == character.SourceWeapon {
		expr, err := dice.Parse(c.Primary.DamageDice)
		if err != nil {
			expr = dice.Expression{Raw: "0d0"}
		}
		return strike{
			name:       c.Primary.Name,
			source:     character.SourceWeapon,
			modifier:   c.Primary.AttackModifier,
			dice:       expr,
			damageType: c.Primary.DamageType,
			rng:        c.Primary.Range,
		}, true
	}
	if spellID == "" {
		spellID = c.Primary.SpellID
	}
	sp, ok := c.Spell(spellID)
	if !ok {
		return strike{}, false
	}
	st := strike{name: sp.Name, source: character.SourceSpell, spell: &sp, rng: max(sp.Range, 1), dice: dice.Expression{Raw: "0d0"}}
	if sp.Resolution == character.ResolveAttackRoll {
		st.modifier = c.SpellAttackModifier(sp)
	}
	if dmg, ok := sp.DamageEffect(); ok {
		if expr, err := dice.Parse(dmg.Dice); err == nil {
			st.dice = expr
		}
		st.damageType = dmg.DamageType
	}
	return st, true
}

// SelectAttackTarget starts the active player's attack on targetID. The first
// attack of a turn spends the action; extra attacks are free.
func (e *Engine) SelectAttackTarget(ctx context.Context, targetID string) (*State, error) {
	return e.command(ctx, "SelectAttackTarget", func(s *State, actor *character.Character) {
		switch s.Phase {
		case PhaseIdle, PhaseAwaitingAttackTarget, PhaseAwaitingExtraAttack:
		default:
			return
		}
		e.selectAttackTarget(s, actor, s.Character(targetID))
	})
}

// SelectSpellTarget casts spellID from the active player at targetID. An empty
// spellID selects the spell armed by BeginTargeting, then the primary spell.
func (e *Engine) SelectSpellTarget(ctx context.Context, targetID, spellID string) (*State, error) {
	return e.command(ctx, "SelectSpellTarget", func(s *State, actor *character.Character) {
		switch s.Phase {
		case PhaseIdle, PhaseAwaitingSpellTarget, PhaseAwaitingAttackTarget:
		default:
			return
		}
		if spellID == "" {
			spellID = s.TargetingSpell
		}
		if spellID == "" {
			spellID = actor.Primary.SpellID
		}
		e.selectSpellTarget(s, actor, s.Character(targetID), spellID)
	})
}

func validTarget(s *State, actor, target *character.Character) bool {
	if target == nil || !target.Alive() || !target.Faction.Opposes(actor.Faction) {
		if target != nil {
			s.reject("Invalid target!", target.Pos)
		}
		return false
	}
	return true
}

func (e *Engine) selectAttackTarget(s *State, actor, target *character.Character) {
	if !validTarget(s, actor, target) {
		return
	}
	if actor.Primary.Source == character.SourceSpell {
		e.selectSpellTarget(s, actor, target, actor.Primary.SpellID)
		return
	}
	st, _ := strikeFor(actor, "")
	if grid.Chebyshev(actor.Pos, target.Pos) > st.rng {
		s.reject("Out of range!", target.Pos)
		return
	}
	if s.AttacksMade == 0 {
		if actor.Actions < 1 {
			s.reject("No actions left!", actor.Pos)
			return
		}
		actor.Actions--
	}
	edge := e.attackEdge(s, actor, target, st.ranged())
	s.logf(LogInfo, "%s attacks %s with %s. Roll a d20.", b(actor.Name), b(target.Name), st.name)
	e.armAttackRoll(s, actor, target, edge, st)
}

func (e *Engine) selectSpellTarget(s *State, actor, target *character.Character, spellID string) {
	if !validTarget(s, actor, target) {
		return
	}
	st, ok := strikeFor(actor, spellID)
	if !ok || st.spell == nil {
		s.reject("Unknown spell!", actor.Pos)
		return
	}
	sp := *st.spell
	if grid.Chebyshev(actor.Pos, target.Pos) > st.rng {
		s.reject("Out of range!", target.Pos)
		return
	}
	if actor.Actions < 1 {
		s.reject("No actions left!", actor.Pos)
		return
	}
	actor.Actions--
	s.TargetingSpell = ""
	s.Highlighted = nil

	if sp.Resolution == character.ResolveSavingThrow {
		dc := actor.SpellSaveDC(sp)
		s.logf(LogInfo, "%s casts %s on %s (DC %d %s saving throw).", b(actor.Name), b(sp.Name), b(target.Name), dc, sp.SaveStat)
		e.savingThrow(s, actor, target, sp, dc, e.roller.D20())
		s.Phase = PhaseIdle
		e.checkBattleEnd(s)
		return
	}
	edge := e.attackEdge(s, actor, target, st.ranged())
	s.logf(LogInfo, "%s casts %s on %s. Roll a d20.", b(actor.Name), b(sp.Name), b(target.Name))
	e.armAttackRoll(s, actor, target, edge, st)
}

// armAttackRoll publishes the request for the player's attack d20s.
func (e *Engine) armAttackRoll(s *State, actor, target *character.Character, edge condition.Edge, st strike) {
	if actor.ConsumeEffect(condition.DisadvantageOnNextAttack) {
		s.logf(LogInfo, "(Disadvantage from an earlier effect.)")
	}
	s.Attack = &AttackContext{AttackerID: actor.ID, TargetID: target.ID, Edge: edge, Source: st.source}
	if st.spell != nil {
		s.Attack.SpellID = st.spell.ID
	}
	n := diceFor(edge)
	if n > 1 {
		s.logf(LogInfo, "Rolling with %s: roll two d20s.", edgeName(edge))
	}
	s.Highlighted = nil
	s.Phase = PhaseRollingAttack
	s.Roll = &DiceRoll{Count: n, Sides: 20}
	s.PendingRoll = &RollRequest{Kind: RollAttack, ActorID: actor.ID, Count: n, Sides: 20}
}

// resolveAttackRoll settles the player's d20s. Dice the player left out of an
// advantage roll are rolled internally.
func (e *Engine) resolveAttackRoll(s *State, values []int) {
	a := s.Attack
	att, tgt := s.Character(a.AttackerID), s.Character(a.TargetID)
	s.PendingRoll = nil
	rolls := append([]int(nil), values...)
	for len(rolls) < diceFor(a.Edge) {
		rolls = append(rolls, e.roller.D20())
	}
	st, _ := strikeFor(att, a.SpellID)
	hit, crit := e.rollToHit(s, att, tgt, st, a.Edge, rolls)
	if !hit {
		e.completeAttack(s)
		return
	}
	expr := e.damageDice(s, att, st, crit)
	if expr.Count == 0 {
		e.applyHit(s, att, tgt, st, nil)
		e.completeAttack(s)
		return
	}
	a.Critical = crit
	s.Phase = PhaseAwaitingDamageRoll
	s.Roll = &DiceRoll{Count: expr.Count, Sides: expr.Sides}
	s.PendingRoll = &RollRequest{Kind: RollDamage, ActorID: att.ID, Count: expr.Count, Sides: expr.Sides}
	s.logf(LogInfo, "Roll %dd%d for damage.", expr.Count, expr.Sides)
}

// resolveDamageRoll accumulates damage dice until the roll is complete.
func (e *Engine) resolveDamageRoll(s *State, values []int) {
	r := s.Roll
	for _, v := range values {
		s.logf(LogInfo, "Rolled d%d: <b>%d</b>", r.Sides, v)
	}
	r.Results = append(r.Results, values...)
	if left := r.Remaining(); left > 0 {
		s.PendingRoll.Count = left
		return
	}
	a := s.Attack
	att, tgt := s.Character(a.AttackerID), s.Character(a.TargetID)
	st, _ := strikeFor(att, a.SpellID)
	e.applyHit(s, att, tgt, st, r.Results)
	e.completeAttack(s)
}

// completeAttack clears the in-flight attack and decides whether an extra
// attack is available.
func (e *Engine) completeAttack(s *State) {
	spell := s.Attack != nil && s.Attack.Source == character.SourceSpell
	att := s.Active()
	s.Attack, s.Roll, s.PendingRoll = nil, nil, nil
	s.Highlighted = nil
	if e.checkBattleEnd(s) {
		return
	}
	s.Phase = PhaseIdle
	if att == nil || !att.Alive() || spell {
		s.AttacksMade = 0
		return
	}
	s.AttacksMade++
	if att.HasFeature(character.FeatureExtraAttack) && s.AttacksMade < att.AttacksPerAction() {
		s.Phase = PhaseAwaitingExtraAttack
		s.Highlighted = e.targetsInRange(s, att, att.Primary.Range)
		s.logf(LogInfo, "You can make an extra attack.")
		return
	}
	s.AttacksMade = 0
}

// rollToHit compares the kept d20 plus modifier to AC plus cover. A natural 1
// always misses; a natural 20 always hits and is critical.
func (e *Engine) rollToHit(s *State, att, tgt *character.Character, st strike, edge condition.Edge, rolls []int) (hit, crit bool) {
	nat := pickDie(edge, rolls)
	if edge != condition.NoEdge {
		s.logf(LogInfo, "Rolling with %s: %s -> uses <b>%d</b>", edgeName(edge), joinInts(rolls, ", "), nat)
	}
	cover := s.Grid().CoverBonus(att.Pos, tgt.Pos)
	ac := tgt.AC + cover
	total := nat + st.modifier
	acText := fmt.Sprintf("vs AC <b>%d</b>", ac)
	if cover > 0 {
		acText = fmt.Sprintf("vs AC <b>%d</b> (%d + %d cover)", ac, tgt.AC, cover)
	}
	s.logf(LogInfo, "Attack roll: %d %+d = <b>%d</b> %s", nat, st.modifier, total, acText)

	crit = nat == 20
	hit = nat != 1 && (crit || total >= ac)
	if !hit {
		if nat == 1 {
			s.logf(LogCriticalMiss, "CRITICAL MISS!")
		} else {
			s.logf(LogCriticalMiss, "Miss!")
		}
		s.float("MISS", tgt.Pos, TextMiss, 0)
		return false, false
	}
	if crit {
		s.logf(LogCriticalHit, "CRITICAL HIT!")
	} else {
		s.logf(LogCriticalHit, "Hit!")
	}
	s.float("HIT", tgt.Pos, TextDamage, 0)
	return true, crit
}

// damageDice doubles the dice on a critical hit; savage attacks add one more
// die to critical weapon hits.
func (e *Engine) damageDice(s *State, att *character.Character, st strike, crit bool) dice.Expression {
	n := st.dice.Count
	if crit {
		n *= 2
		if st.source == character.SourceWeapon && att.HasFeature(character.FeatureSavageAttacks) && n > 0 {
			n++
			s.logf(LogInfo, "Savage Attacks: %s rolls an extra damage die!", b(att.Name))
		}
	}
	return st.dice.WithCount(n)
}

// applyHit delivers a landed strike. rolls are the damage dice; nil lets spell
// damage roll internally.
func (e *Engine) applyHit(s *State, att, tgt *character.Character, st strike, rolls []int) {
	if st.spell != nil {
		e.applySpellEffects(s, att, tgt, *st.spell, rolls)
		return
	}
	total := sum(rolls) + st.dice.Modifier + att.Primary.DamageModifier
	detail := fmt.Sprintf("(%s) %+d = %d", joinInts(rolls, " + "), st.dice.Modifier+att.Primary.DamageModifier, total)
	e.damage(s, tgt, total, st.damageType, detail)
}

// applySpellEffects applies every on-hit effect of sp. The first damage effect
// uses rolls when given; anything else rolls internally.
func (e *Engine) applySpellEffects(s *State, caster, tgt *character.Character, sp character.Spell, rolls []int) {
	for _, eff := range sp.Effects {
		switch eff.Type {
		case character.EffectDamage:
			expr, err := dice.Parse(eff.Dice)
			if err != nil {
				continue
			}
			if rolls == nil {
				rolls = e.roller.Roll(expr).Dice
			}
			total := sum(rolls) + expr.Modifier
			e.damage(s, tgt, total, eff.DamageType, fmt.Sprintf("(%s)", joinInts(rolls, " + ")))
			rolls = nil
		case character.EffectSpeedReduction:
			if tgt.Alive() {
				tgt.AddEffect(condition.NewEffect(condition.SpeedReduction, caster.ID, eff.ReductionCells))
				s.logf(LogInfo, "%s's speed is reduced!", b(tgt.Name))
			}
		case character.EffectDisadvantageOnNextAttack:
			if tgt.Alive() {
				tgt.AddEffect(condition.NewEffect(condition.DisadvantageOnNextAttack, caster.ID, 0))
				s.logf(LogInfo, "%s has disadvantage on the next attack!", b(tgt.Name))
			}
		}
	}
}

// savingThrow resolves tgt's save against sp and applies the spell on a failure.
func (e *Engine) savingThrow(s *State, caster, tgt *character.Character, sp character.Spell, dc, roll int) bool {
	mod := tgt.SaveModifier(sp.SaveStat)
	total := roll + mod
	s.logf(LogInfo, "%s rolls %d (%d %+d) vs DC %d.", b(tgt.Name), total, roll, mod, dc)
	if total < dc {
		s.logf(LogError, "Saving throw failed!")
		e.applySpellEffects(s, caster, tgt, sp, nil)
		return false
	}
	s.logf(LogSuccess, "Saving throw succeeded!")
	s.float("SAVED!", tgt.Pos, TextSuccess, 0)
	return true
}

// damage runs amount through tgt's defenses and reports the result.
func (e *Engine) damage(s *State, tgt *character.Character, amount int, damageType, detail string) {
	res := tgt.TakeDamage(amount, damageType)
	switch res.Category {
	case character.CategoryImmune:
		s.logf(LogInfo, "%s is immune to %s damage!", b(tgt.Name), damageType)
		s.float("IMMUNE", tgt.Pos, TextInfo, damageTextDelay)
	default:
		if res.Applied > 0 {
			kind := LogDamage
			switch res.Category {
			case character.CategoryResistance:
				kind = LogResistance
			case character.CategoryVulnerability:
				kind = LogVulnerability
			}
			s.float("-"+strconv.Itoa(res.Applied), tgt.Pos, TextDamage, damageTextDelay)
			s.logf(kind, "%s takes <b>%d</b> %s damage. %s", b(tgt.Name), res.Applied, damageType, detail)
		}
		switch res.Category {
		case character.CategoryResistance:
			s.logf(LogResistance, "(Damage halved by resistance to %s.)", damageType)
		case character.CategoryVulnerability:
			s.logf(LogVulnerability, "(Damage doubled by vulnerability to %s.)", damageType)
		}
	}
	if res.DeathPrevented {
		s.logf(LogHeal, "%s endures with Relentless Endurance and stays at 1 HP!", b(tgt.Name))
	}
	if !tgt.Alive() && !tgt.Anim.Dying && !tgt.Anim.Faded {
		e.kill(s, tgt)
	}
}

// aiAttack resolves one engine-driven attack entirely with internal dice,
// except a saving throw the human player must roll.
func (e *Engine) aiAttack(ctx context.Context, attackerID, targetID string, opportunity bool) error {
	s := e.Snapshot()
	att, tgt := s.Character(attackerID), s.Character(targetID)
	if att == nil || tgt == nil || !att.Alive() || !tgt.Alive() {
		return nil
	}
	if opportunity {
		if att.Reactions <= 0 {
			e.update(func(s *State) {
				s.logf(LogInfo, "%s has no reaction left for an opportunity attack.", b(att.Name))
			})
			return nil
		}
		e.update(func(s *State) {
			s.Character(attackerID).Reactions--
			s.logf(LogOpportunity, "%s uses its reaction for an opportunity attack!", b(att.Name))
		})
	} else {
		e.update(func(s *State) {
			s.logf(LogInfo, "%s attacks %s with %s!", b(att.Name), b(tgt.Name), b(att.Primary.Name))
		})
	}
	if err := e.pacer.Pause(ctx); err != nil {
		return err
	}

	s = e.Snapshot()
	att, tgt = s.Character(attackerID), s.Character(targetID)
	if !att.Alive() || !tgt.Alive() {
		return nil
	}
	st, ok := strikeFor(att, "")
	if !ok {
		return nil
	}
	if st.spell != nil && st.spell.Resolution == character.ResolveSavingThrow {
		if err := e.aiSavingThrow(ctx, att, tgt, *st.spell); err != nil {
			return err
		}
		return e.awaitIdle(ctx, targetID)
	}

	e.update(func(s *State) {
		att, tgt := s.Character(attackerID), s.Character(targetID)
		edge := e.attackEdge(s, att, tgt, st.ranged())
		rolls := []int{e.roller.D20()}
		if edge != condition.NoEdge {
			rolls = append(rolls, e.roller.D20())
		}
		if att.ConsumeEffect(condition.DisadvantageOnNextAttack) {
			s.logf(LogInfo, "(Disadvantage from an earlier effect.)")
		}
		hit, crit := e.rollToHit(s, att, tgt, st, edge, rolls)
		if !hit {
			return
		}
		expr := e.damageDice(s, att, st, crit)
		s.logf(LogInfo, "Rolling %s for damage.", expr.Raw)
		e.applyHit(s, att, tgt, st, e.roller.Roll(expr).Dice)
		e.checkBattleEnd(s)
	})
	return e.awaitIdle(ctx, targetID)
}

func (e *Engine) aiSavingThrow(ctx context.Context, caster, tgt *character.Character, sp character.Spell) error {
	dc := caster.SpellSaveDC(sp)
	if !e.human(tgt) {
		e.update(func(s *State) {
			c, t := s.Character(caster.ID), s.Character(tgt.ID)
			s.logf(LogInfo, "%s must make a DC %d %s saving throw.", b(t.Name), dc, sp.SaveStat)
			e.savingThrow(s, c, t, sp, dc, e.roller.D20())
			e.checkBattleEnd(s)
		})
		return nil
	}
	values, err := e.requestRoll(ctx, RollRequest{Kind: RollSavingThrow, ActorID: tgt.ID, Count: 1, Sides: 20}, func(s *State) {
		s.Save = &SaveContext{TargetID: tgt.ID, CasterID: caster.ID, SpellID: sp.ID, Stat: sp.SaveStat, DC: dc, Resume: s.Phase}
		s.Phase = PhaseAwaitingSavingThrow
		s.logf(LogInfo, "%s must make a DC %d %s saving throw. Roll a d20.", b(tgt.Name), dc, sp.SaveStat)
	})
	if err != nil {
		return err
	}
	e.update(func(s *State) {
		sv := s.Save
		s.Save = nil
		if sv == nil {
			return
		}
		c, t := s.Character(sv.CasterID), s.Character(sv.TargetID)
		e.savingThrow(s, c, t, sp, sv.DC, values[0])
		s.Phase = sv.Resume
		e.checkBattleEnd(s)
	})
	return nil
}

// targetsInRange lists the cells of living opponents of c within rng.
func (e *Engine) targetsInRange(s *State, c *character.Character, rng int) []grid.Position {
	var out []grid.Position
	for _, o := range s.Opponents(c) {
		if grid.Chebyshev(c.Pos, o.Pos) <= rng {
			out = append(out, o.Pos)
		}
	}
	return out
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func joinInts(xs []int, sep string) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, sep)
}
