// Package character defines the combatant model: stats, derived modifiers,
// per-turn resources, conditions and the damage pipeline.
package character

import (
	"strings"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// FeetPerCell converts speed in feet to grid cells.
const FeetPerCell = 1.5

// Well-known feature ids the rules engine reacts to.
const (
	FeatureExtraAttack         = "extra_attack"
	FeatureSavageAttacks       = "savage_attacks"
	FeatureRelentlessEndurance = "relentless_endurance"
	FeatureDarkvision          = "darkvision"
)

// Faction is the side a combatant fights for.
type Faction string

const (
	FactionPlayer Faction = "player"
	FactionEnemy  Faction = "enemy"
)

// Opposes reports whether f and o are hostile to each other.
func (f Faction) Opposes(o Faction) bool { return f != o }

// Stat names one of the six ability scores.
type Stat string

const (
	Strength     Stat = "strength"
	Dexterity    Stat = "dexterity"
	Constitution Stat = "constitution"
	Intelligence Stat = "intelligence"
	Wisdom       Stat = "wisdom"
	Charisma     Stat = "charisma"
)

// Valid reports whether s is one of the six ability scores.
func (s Stat) Valid() bool {
	switch s {
	case Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma:
		return true
	}
	return false
}

// Stats holds the six ability scores.
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Score returns the raw score for stat; unknown stats score 10.
func (s Stats) Score(stat Stat) int {
	switch stat {
	case Strength:
		return s.Strength
	case Dexterity:
		return s.Dexterity
	case Constitution:
		return s.Constitution
	case Intelligence:
		return s.Intelligence
	case Wisdom:
		return s.Wisdom
	case Charisma:
		return s.Charisma
	}
	return 10
}

// Modifier returns floor((score - 10) / 2).
//
// Postcondition: Modifier(9) == -1, Modifier(10) == 0, Modifier(11) == 0.
func Modifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// AIProfile selects the behavior used when the engine controls a combatant.
type AIProfile string

const (
	ProfileStill    AIProfile = "still"
	ProfileBrute    AIProfile = "brute"
	ProfileRanged   AIProfile = "ranged"
	ProfileDefender AIProfile = "defender"
)

// Valid reports whether p is a known profile. The empty profile is valid and
// means brute.
func (p AIProfile) Valid() bool {
	switch p {
	case "", ProfileStill, ProfileBrute, ProfileRanged, ProfileDefender:
		return true
	}
	return false
}

// Profiles lists every named profile.
func Profiles() []AIProfile {
	return []AIProfile{ProfileStill, ProfileBrute, ProfileRanged, ProfileDefender}
}

// Attack is a weapon entry.
type Attack struct {
	Name string `json:"name"`
	// Kind is "melee" or "ranged".
	Kind       string `json:"kind"`
	Range      int    `json:"range"`
	AttackStat Stat   `json:"attack_stat"`
	DamageStat Stat   `json:"damage_stat"`
	DamageDice string `json:"damage_dice"`
	DamageType string `json:"damage_type"`
}

// Resolution is how a spell decides whether it lands.
type Resolution string

const (
	ResolveAttackRoll  Resolution = "attack_roll"
	ResolveSavingThrow Resolution = "saving_throw"
)

// SpellEffectType is the closed set of on-hit spell effects.
type SpellEffectType string

const (
	EffectDamage                   SpellEffectType = "damage"
	EffectSpeedReduction           SpellEffectType = "speed_reduction"
	EffectDisadvantageOnNextAttack SpellEffectType = "disadvantage_on_next_attack"
)

// SpellEffect is one on-hit effect.
type SpellEffect struct {
	Type           SpellEffectType `json:"type"`
	Dice           string          `json:"dice,omitempty"`
	DamageType     string          `json:"damage_type,omitempty"`
	ReductionCells int             `json:"reduction_cells,omitempty"`
	DurationTurns  int             `json:"duration_turns,omitempty"`
}

// Spell is a castable spell entry.
type Spell struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Level      int        `json:"level"`
	Range      int        `json:"range"`
	Resolution Resolution `json:"resolution"`
	AttackStat Stat       `json:"attack_stat,omitempty"`
	SaveStat   Stat       `json:"save_stat,omitempty"`
	// CastingStat governs the save DC; it falls back to AttackStat, then SaveStat.
	CastingStat Stat          `json:"casting_stat,omitempty"`
	Effects     []SpellEffect `json:"effects"`
}

// DamageEffect returns the first damage effect of the spell.
func (s Spell) DamageEffect() (SpellEffect, bool) {
	for _, e := range s.Effects {
		if e.Type == EffectDamage {
			return e, true
		}
	}
	return SpellEffect{}, false
}

// GoverningStat returns the stat that sets the spell's save DC.
func (s Spell) GoverningStat() Stat {
	switch {
	case s.CastingStat != "":
		return s.CastingStat
	case s.AttackStat != "":
		return s.AttackStat
	}
	return s.SaveStat
}

// Feature is a passive or limited-use trait. MaxUses == 0 means unlimited.
type Feature struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Source  string `json:"source,omitempty"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// Item is an inventory entry.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Kind is "healing_potion" for usable potions.
	Kind string `json:"kind,omitempty"`
}

// IsHealingPotion reports whether the item can be drunk for healing.
func (i Item) IsHealingPotion() bool {
	if i.Kind == "healing_potion" {
		return true
	}
	n := strings.ToLower(i.Name)
	return strings.Contains(n, "potion") && strings.Contains(n, "healing")
}

// Defenses are damage-type and condition modifiers.
type Defenses struct {
	Resistances      []string       `json:"resistances,omitempty"`
	Vulnerabilities  []string       `json:"vulnerabilities,omitempty"`
	ImmuneDamage     []string       `json:"immune_damage,omitempty"`
	ImmuneConditions []condition.ID `json:"immune_conditions,omitempty"`
}

func contains[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Sheet is the declarative definition a combatant is built from.
type Sheet struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Faction            Faction        `json:"faction"`
	Race               string         `json:"race,omitempty"`
	Class              string         `json:"class,omitempty"`
	Level              int            `json:"level,omitempty"`
	Start              grid.Position  `json:"start"`
	ProficiencyBonus   int            `json:"proficiency_bonus"`
	Stats              Stats          `json:"stats"`
	MaxHP              int            `json:"hp_max"`
	StartingHP         int            `json:"hp_start,omitempty"`
	AC                 int            `json:"ac"`
	Speed              int            `json:"speed"`
	SaveProficiencies  []Stat         `json:"save_proficiencies,omitempty"`
	SkillProficiencies []Skill        `json:"skill_proficiencies,omitempty"`
	Attacks            []Attack       `json:"attacks,omitempty"`
	Spells             []Spell        `json:"spells,omitempty"`
	Features           []Feature      `json:"features,omitempty"`
	Inventory          []Item         `json:"inventory,omitempty"`
	Defenses           Defenses       `json:"defenses"`
	InitialConditions  []condition.ID `json:"initial_conditions,omitempty"`
	Profile            AIProfile      `json:"ai_profile,omitempty"`
	DefenseArea        *grid.Rect     `json:"defense_area,omitempty"`
}

// Animation is presentation-only state advanced by the engine's tick.
type Animation struct {
	// Path is the cell sequence being walked, start included; empty when idle.
	Path    []grid.Position `json:"path,omitempty"`
	Elapsed time.Duration   `json:"elapsed,omitempty"`
	// Forced moves (shove pushes) never provoke opportunity attacks.
	Forced bool `json:"forced,omitempty"`
	// Dying is set while the death fade plays; Faded once it has finished.
	Dying       bool          `json:"dying,omitempty"`
	FadeElapsed time.Duration `json:"fade_elapsed,omitempty"`
	Faded       bool          `json:"faded,omitempty"`
}

// Moving reports whether a move animation is in flight.
func (a Animation) Moving() bool { return len(a.Path) > 0 }

// Busy reports whether any gameplay-blocking animation is in flight.
func (a Animation) Busy() bool { return a.Moving() || a.Dying }

// Character is a combatant in a battle.
//
// Invariant: 0 <= HP <= MaxHP; Actions and Reactions are 0 or 1; Movement >= 0.
type Character struct {
	Sheet

	Pos       grid.Position `json:"position"`
	HP        int           `json:"hp"`
	Movement  float64       `json:"movement_remaining"`
	Actions   int           `json:"actions_remaining"`
	Reactions int           `json:"reactions_remaining"`
	// Primary is derived once at construction and never recomputed.
	Primary     PrimaryAttack     `json:"primary"`
	FeatureUses map[string]int    `json:"feature_uses,omitempty"`
	Conditions  condition.Set     `json:"conditions"`
	Effects     condition.Effects `json:"temporary_effects,omitempty"`
	Disengaging bool              `json:"disengaging,omitempty"`
	Dodging     bool              `json:"dodging,omitempty"`
	Initiative  int               `json:"initiative"`
	Anim        Animation         `json:"animation"`
}

// Alive reports whether the combatant has hit points left.
func (c *Character) Alive() bool { return c.HP > 0 }

// IsPlayer reports whether the combatant belongs to the player faction.
func (c *Character) IsPlayer() bool { return c.Faction == FactionPlayer }

// Mod returns the ability modifier for stat.
func (c *Character) Mod(stat Stat) int { return Modifier(c.Stats.Score(stat)) }

// SpeedCells returns speed converted to whole grid cells.
func (c *Character) SpeedCells() int { return int(float64(c.Speed) / FeetPerCell) }

// AttacksPerAction is 2 with extra attack, otherwise 1.
func (c *Character) AttacksPerAction() int {
	if c.HasFeature(FeatureExtraAttack) {
		return 2
	}
	return 1
}

// SaveModifier returns the saving-throw bonus for stat.
func (c *Character) SaveModifier(stat Stat) int {
	m := c.Mod(stat)
	if contains(c.SaveProficiencies, stat) {
		m += c.ProficiencyBonus
	}
	return m
}

// IsInsideArea reports whether the combatant stands inside r.
func (c *Character) IsInsideArea(r grid.Rect) bool { return r.Contains(c.Pos) }

// Body returns the grid's view of the combatant.
func (c *Character) Body() grid.Body { return grid.Body{ID: c.ID, Pos: c.Pos} }
