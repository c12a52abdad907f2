package character

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// SourceKind says whether the primary attack is a weapon or a spell.
type SourceKind string

const (
	SourceWeapon SourceKind = "weapon"
	SourceSpell  SourceKind = "spell"
)

// PrimaryAttack is the attack profile the engine uses for the combatant.
type PrimaryAttack struct {
	Name    string     `json:"name"`
	Source  SourceKind `json:"source"`
	SpellID string     `json:"spell_id,omitempty"`
	// Resolution is empty for weapons.
	Resolution     Resolution `json:"resolution,omitempty"`
	DamageDice     string     `json:"damage_dice"`
	DamageType     string     `json:"damage_type,omitempty"`
	AttackModifier int        `json:"attack_modifier"`
	DamageModifier int        `json:"damage_modifier"`
	Range          int        `json:"range"`
	SaveDC         int        `json:"save_dc,omitempty"`
	SaveStat       Stat       `json:"save_stat,omitempty"`
}

// MeleeOnly reports whether the attack can only reach adjacent cells, which is
// what qualifies a combatant to make opportunity attacks.
func (p PrimaryAttack) MeleeOnly() bool { return p.Range <= 1 }

// Unarmed is the fallback attack of a combatant with no weapon or spell.
var Unarmed = PrimaryAttack{Name: "Unarmed", Source: SourceWeapon, DamageDice: "0d0", AttackModifier: -5, Range: 1}

// New builds a Character from its sheet, deriving modifiers and the primary attack.
//
// Precondition: sheet has passed Validate.
// Postcondition: HP is StartingHP when set, otherwise MaxHP; resources are full.
func New(sheet Sheet) *Character {
	c := &Character{
		Sheet:       sheet,
		Pos:         sheet.Start,
		HP:          sheet.MaxHP,
		FeatureUses: make(map[string]int),
	}
	if sheet.StartingHP > 0 && sheet.StartingHP < sheet.MaxHP {
		c.HP = sheet.StartingHP
	}
	for _, id := range sheet.InitialConditions {
		c.AddCondition(id)
	}
	c.Primary = derivePrimary(c)
	c.Actions, c.Reactions = 1, 1
	c.Movement = float64(c.SpeedCells())
	return c
}

func derivePrimary(c *Character) PrimaryAttack {
	if len(c.Attacks) > 0 {
		a := c.Attacks[0]
		rng := a.Range
		if rng <= 0 {
			rng = 1
		}
		return PrimaryAttack{
			Name:           a.Name,
			Source:         SourceWeapon,
			DamageDice:     a.DamageDice,
			DamageType:     a.DamageType,
			AttackModifier: c.Mod(a.AttackStat) + c.ProficiencyBonus,
			DamageModifier: c.Mod(a.DamageStat),
			Range:          rng,
		}
	}
	if len(c.Spells) > 0 {
		s := c.Spells[0]
		p := PrimaryAttack{
			Name:       s.Name,
			Source:     SourceSpell,
			SpellID:    s.ID,
			Resolution: s.Resolution,
			DamageDice: "0d0",
			Range:      max(s.Range, 1),
		}
		if dmg, ok := s.DamageEffect(); ok {
			p.DamageDice, p.DamageType = dmg.Dice, dmg.DamageType
		}
		switch s.Resolution {
		case ResolveAttackRoll:
			p.AttackModifier = c.Mod(s.AttackStat) + c.ProficiencyBonus
		case ResolveSavingThrow:
			p.SaveStat = s.SaveStat
			p.SaveDC = 8 + c.ProficiencyBonus + c.Mod(s.GoverningStat())
		}
		return p
	}
	return Unarmed
}

// Spell returns the spell with the given id.
func (c *Character) Spell(id string) (Spell, bool) {
	for _, s := range c.Spells {
		if s.ID == id {
			return s, true
		}
	}
	return Spell{}, false
}

// SpellAttackModifier returns the to-hit bonus for an attack-roll spell.
func (c *Character) SpellAttackModifier(s Spell) int {
	return c.Mod(s.AttackStat) + c.ProficiencyBonus
}

// SpellSaveDC returns 8 + proficiency + the governing stat modifier.
func (c *Character) SpellSaveDC(s Spell) int {
	return 8 + c.ProficiencyBonus + c.Mod(s.GoverningStat())
}

// Clone returns a deep copy safe to mutate independently of c. Static sheet
// slices that are never mutated are shared.
func (c *Character) Clone() *Character {
	cp := *c
	cp.Inventory = append([]Item(nil), c.Inventory...)
	cp.FeatureUses = make(map[string]int, len(c.FeatureUses))
	for k, v := range c.FeatureUses {
		cp.FeatureUses[k] = v
	}
	cp.Conditions = c.Conditions.Clone()
	cp.Effects = c.Effects.Clone()
	cp.Anim.Path = append([]grid.Position(nil), c.Anim.Path...)
	return &cp
}

// Validate checks the sheet for structural problems, reporting all of them.
func (s Sheet) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if s.Name == "" {
		errs = append(errs, fmt.Errorf("%s: name is required", s.ID))
	}
	if s.Faction != FactionPlayer && s.Faction != FactionEnemy {
		errs = append(errs, fmt.Errorf("%s: faction must be player or enemy, got %q", s.ID, s.Faction))
	}
	if s.MaxHP < 1 {
		errs = append(errs, fmt.Errorf("%s: hp_max must be >= 1", s.ID))
	}
	if s.Speed < 0 {
		errs = append(errs, fmt.Errorf("%s: speed must not be negative", s.ID))
	}
	if !s.Profile.Valid() {
		errs = append(errs, fmt.Errorf("%s: unknown ai_profile %q", s.ID, s.Profile))
	}
	for _, a := range s.Attacks {
		if _, err := dice.Parse(a.DamageDice); err != nil {
			errs = append(errs, fmt.Errorf("%s: attack %q: %w", s.ID, a.Name, err))
		}
		if !a.AttackStat.Valid() || !a.DamageStat.Valid() {
			errs = append(errs, fmt.Errorf("%s: attack %q: attack and damage stats must be ability names", s.ID, a.Name))
		}
	}
	for _, sp := range s.Spells {
		errs = append(errs, validateSpell(s.ID, sp)...)
	}
	for _, st := range s.SaveProficiencies {
		if !st.Valid() {
			errs = append(errs, fmt.Errorf("%s: unknown saving throw %q", s.ID, st))
		}
	}
	for _, sk := range s.SkillProficiencies {
		if _, ok := SkillStats[sk]; !ok {
			errs = append(errs, fmt.Errorf("%s: unknown skill %q", s.ID, sk))
		}
	}
	for _, id := range s.InitialConditions {
		if !condition.Known(id) {
			errs = append(errs, fmt.Errorf("%s: unknown condition %q", s.ID, id))
		}
	}
	return errors.Join(errs...)
}

func validateSpell(owner string, sp Spell) []error {
	var errs []error
	if sp.ID == "" {
		errs = append(errs, fmt.Errorf("%s: spell %q has no id", owner, sp.Name))
	}
	switch sp.Resolution {
	case ResolveAttackRoll:
		if !sp.AttackStat.Valid() {
			errs = append(errs, fmt.Errorf("%s: spell %q: attack_roll needs attack_source_stat", owner, sp.ID))
		}
	case ResolveSavingThrow:
		if !sp.SaveStat.Valid() {
			errs = append(errs, fmt.Errorf("%s: spell %q: saving_throw needs saving_throw_ability", owner, sp.ID))
		}
	default:
		errs = append(errs, fmt.Errorf("%s: spell %q: unknown resolution %q", owner, sp.ID, sp.Resolution))
	}
	for _, e := range sp.Effects {
		switch e.Type {
		case EffectDamage:
			if _, err := dice.Parse(e.Dice); err != nil {
				errs = append(errs, fmt.Errorf("%s: spell %q: %w", owner, sp.ID, err))
			}
		case EffectSpeedReduction, EffectDisadvantageOnNextAttack:
		default:
			errs = append(errs, fmt.Errorf("%s: spell %q: unknown effect %q", owner, sp.ID, e.Type))
		}
	}
	return errs
}
