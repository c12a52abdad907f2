// Package scenario decodes and validates declarative battle documents and
// turns them into grid features and combatants.
package scenario

import (
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// Document is a battle description as authored.
type Document struct {
	BattleID               string           `json:"battle_id" yaml:"battle_id"`
	GridSize               GridSize         `json:"grid_size" yaml:"grid_size"`
	EnvironmentDescription string           `json:"environment_description" yaml:"environment_description"`
	TerrainFeatures        []TerrainFeature `json:"terrain_features" yaml:"terrain_features"`
	PlayerCharacters       []CombatantDef   `json:"player_characters" yaml:"player_characters"`
	Enemies                []CombatantDef   `json:"enemies" yaml:"enemies"`
}

// GridSize is the map dimension in cells.
type GridSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Cell is an [x, y] pair.
type Cell []int

func (c Cell) pos() grid.Position {
	if len(c) != 2 {
		return grid.Position{X: -1, Y: -1}
	}
	return grid.Position{X: c[0], Y: c[1]}
}

// TerrainFeature is a named set of cells sharing effects.
type TerrainFeature struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Color     string          `json:"color" yaml:"color"`
	Positions []Cell          `json:"positions" yaml:"positions"`
	Effects   []TerrainEffect `json:"effects" yaml:"effects"`
}

// TerrainEffect is one effect descriptor; Rules carries hazard parameters.
type TerrainEffect struct {
	Type        string       `json:"type" yaml:"type"`
	Description string       `json:"description" yaml:"description"`
	Rules       *HazardRules `json:"rules" yaml:"rules"`
}

// HazardRules parameterise a hazardous area.
type HazardRules struct {
	DamageDice string `json:"damage_dice" yaml:"damage_dice"`
	DamageType string `json:"damage_type" yaml:"damage_type"`
}

// CombatantDef is a full combatant definition.
type CombatantDef struct {
	ID                       string         `json:"id" yaml:"id"`
	Name                     string         `json:"name" yaml:"name"`
	Type                     string         `json:"type" yaml:"type"`
	Race                     string         `json:"race" yaml:"race"`
	Class                    string         `json:"class" yaml:"class"`
	Level                    int            `json:"level" yaml:"level"`
	Position                 Cell           `json:"position" yaml:"position"`
	ProficiencyBonus         int            `json:"proficiency_bonus" yaml:"proficiency_bonus"`
	Stats                    StatsDef       `json:"stats" yaml:"stats"`
	HPMax                    int            `json:"hp_max" yaml:"hp_max"`
	HPCurrent                int            `json:"hp_current" yaml:"hp_current"`
	AC                       int            `json:"ac" yaml:"ac"`
	Speed                    int            `json:"speed" yaml:"speed"`
	SavingThrowProficiencies []string       `json:"saving_throw_proficiencies" yaml:"saving_throw_proficiencies"`
	SkillProficiencies       []string       `json:"skill_proficiencies" yaml:"skill_proficiencies"`
	Conditions               []string       `json:"conditions" yaml:"conditions"`
	Attacks                  []AttackDef    `json:"attacks" yaml:"attacks"`
	Spells                   []SpellDef     `json:"spells" yaml:"spells"`
	Features                 []FeatureDef   `json:"features" yaml:"features"`
	Defenses                 DefensesDef    `json:"defenses" yaml:"defenses"`
	Inventory                []ItemDef      `json:"inventory" yaml:"inventory"`
	AIProfile                string         `json:"ai_profile" yaml:"ai_profile"`
	DefenseArea              []int          `json:"defense_area" yaml:"defense_area"`
}

// StatsDef holds the six ability scores.
type StatsDef struct {
	Strength     int `json:"strength" yaml:"strength"`
	Dexterity    int `json:"dexterity" yaml:"dexterity"`
	Constitution int `json:"constitution" yaml:"constitution"`
	Intelligence int `json:"intelligence" yaml:"intelligence"`
	Wisdom       int `json:"wisdom" yaml:"wisdom"`
	Charisma     int `json:"charisma" yaml:"charisma"`
}

// AttackDef is a weapon entry.
type AttackDef struct {
	Name             string `json:"name" yaml:"name"`
	Type             string `json:"type" yaml:"type"`
	Range            int    `json:"range" yaml:"range"`
	AttackSourceStat string `json:"attack_source_stat" yaml:"attack_source_stat"`
	DamageSourceStat string `json:"damage_source_stat" yaml:"damage_source_stat"`
	DamageDice       string `json:"damage_dice" yaml:"damage_dice"`
	DamageType       string `json:"damage_type" yaml:"damage_type"`
}

// SpellDef is a spell entry.
type SpellDef struct {
	ID                 string           `json:"id" yaml:"id"`
	Name               string           `json:"name" yaml:"name"`
	Level              int              `json:"level" yaml:"level"`
	Range              int              `json:"range" yaml:"range"`
	Resolution         string           `json:"resolution" yaml:"resolution"`
	AttackSourceStat   string           `json:"attack_source_stat" yaml:"attack_source_stat"`
	SavingThrowAbility string           `json:"saving_throw_ability" yaml:"saving_throw_ability"`
	SpellcastingStat   string           `json:"spellcasting_stat" yaml:"spellcasting_stat"`
	EffectsOnHit       []SpellEffectDef `json:"effects_on_hit" yaml:"effects_on_hit"`
}

// SpellEffectDef is one on-hit spell effect.
type SpellEffectDef struct {
	Type           string `json:"type" yaml:"type"`
	Dice           string `json:"dice" yaml:"dice"`
	DamageType     string `json:"damage_type" yaml:"damage_type"`
	ReductionCells int    `json:"reduction_cells" yaml:"reduction_cells"`
	DurationTurns  int    `json:"duration_turns" yaml:"duration_turns"`
}

// FeatureDef is a feature; a nil Cost means unlimited.
type FeatureDef struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Source string   `json:"source" yaml:"source"`
	Cost   *CostDef `json:"cost" yaml:"cost"`
}

// CostDef caps a feature's uses.
type CostDef struct {
	Type    string `json:"type" yaml:"type"`
	MaxUses int    `json:"max_uses" yaml:"max_uses"`
}

// DefensesDef lists damage and condition modifiers.
type DefensesDef struct {
	Resistances     []string      `json:"resistances" yaml:"resistances"`
	Vulnerabilities []string      `json:"vulnerabilities" yaml:"vulnerabilities"`
	Immunities      ImmunitiesDef `json:"immunities" yaml:"immunities"`
}

// ImmunitiesDef lists immunities.
type ImmunitiesDef struct {
	DamageTypes []string `json:"damage_types" yaml:"damage_types"`
	Conditions  []string `json:"conditions" yaml:"conditions"`
}

// ItemDef is an inventory entry.
type ItemDef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
}

// Sheet converts the definition into a character sheet.
func (d CombatantDef) Sheet(faction character.Faction) character.Sheet {
	s := character.Sheet{
		ID:               d.ID,
		Name:             d.Name,
		Faction:          faction,
		Race:             d.Race,
		Class:            d.Class,
		Level:            d.Level,
		Start:            d.Position.pos(),
		ProficiencyBonus: d.ProficiencyBonus,
		Stats: character.Stats{
			Strength: d.Stats.Strength, Dexterity: d.Stats.Dexterity, Constitution: d.Stats.Constitution,
			Intelligence: d.Stats.Intelligence, Wisdom: d.Stats.Wisdom, Charisma: d.Stats.Charisma,
		},
		MaxHP:      d.HPMax,
		StartingHP: d.HPCurrent,
		AC:         d.AC,
		Speed:      d.Speed,
		Profile:    character.AIProfile(d.AIProfile),
		Defenses: character.Defenses{
			Resistances:     d.Defenses.Resistances,
			Vulnerabilities: d.Defenses.Vulnerabilities,
			ImmuneDamage:    d.Defenses.Immunities.DamageTypes,
		},
	}
	for _, st := range d.SavingThrowProficiencies {
		s.SaveProficiencies = append(s.SaveProficiencies, character.Stat(st))
	}
	for _, sk := range d.SkillProficiencies {
		s.SkillProficiencies = append(s.SkillProficiencies, character.Skill(sk))
	}
	for _, c := range d.Conditions {
		s.InitialConditions = append(s.InitialConditions, condition.ID(c))
	}
	for _, c := range d.Defenses.Immunities.Conditions {
		s.Defenses.ImmuneConditions = append(s.Defenses.ImmuneConditions, condition.ID(c))
	}
	for _, a := range d.Attacks {
		s.Attacks = append(s.Attacks, character.Attack{
			Name: a.Name, Kind: a.Type, Range: a.Range,
			AttackStat: character.Stat(a.AttackSourceStat), DamageStat: character.Stat(a.DamageSourceStat),
			DamageDice: a.DamageDice, DamageType: a.DamageType,
		})
	}
	for _, sp := range d.Spells {
		spell := character.Spell{
			ID: sp.ID, Name: sp.Name, Level: sp.Level, Range: sp.Range,
			Resolution:  character.Resolution(sp.Resolution),
			AttackStat:  character.Stat(sp.AttackSourceStat),
			SaveStat:    character.Stat(sp.SavingThrowAbility),
			CastingStat: character.Stat(sp.SpellcastingStat),
		}
		for _, e := range sp.EffectsOnHit {
			spell.Effects = append(spell.Effects, character.SpellEffect{
				Type: character.SpellEffectType(e.Type), Dice: e.Dice, DamageType: e.DamageType,
				ReductionCells: e.ReductionCells, DurationTurns: e.DurationTurns,
			})
		}
		s.Spells = append(s.Spells, spell)
	}
	for _, f := range d.Features {
		feat := character.Feature{ID: f.ID, Name: f.Name, Source: f.Source}
		if f.Cost != nil && f.Cost.Type == "uses" {
			feat.MaxUses = f.Cost.MaxUses
		}
		s.Features = append(s.Features, feat)
	}
	for _, it := range d.Inventory {
		s.Inventory = append(s.Inventory, character.Item{ID: it.ID, Name: it.Name, Kind: it.Kind})
	}
	if len(d.DefenseArea) == 4 {
		r := grid.NewRect(d.DefenseArea[0], d.DefenseArea[1], d.DefenseArea[2], d.DefenseArea[3])
		s.DefenseArea = &r
	}
	return s
}
