package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

func fighter() character.Sheet {
	return character.Sheet{
		ID:               "pc-1",
		Name:             "Garanzia",
		Faction:          character.FactionPlayer,
		ProficiencyBonus: 3,
		Stats:            character.Stats{Strength: 10, Dexterity: 16, Constitution: 14, Intelligence: 8, Wisdom: 15, Charisma: 12},
		MaxHP:            40,
		AC:               15,
		Speed:            12,
		Attacks: []character.Attack{{
			Name: "Unarmed Strike", Kind: "melee",
			AttackStat: character.Dexterity, DamageStat: character.Dexterity,
			DamageDice: "1d6", DamageType: "bludgeoning",
		}},
		Features: []character.Feature{
			{ID: character.FeatureRelentlessEndurance, Name: "Relentless Endurance", MaxUses: 1},
			{ID: character.FeatureSavageAttacks, Name: "Savage Attacks"},
		},
	}
}

func TestModifier_FloorDivision(t *testing.T) {
	cases := map[int]int{1: -5, 8: -1, 9: -1, 10: 0, 11: 0, 12: 1, 15: 2, 16: 3, 20: 5}
	for score, want := range cases {
		assert.Equal(t, want, character.Modifier(score), "score %d", score)
	}
}

func TestNew_DerivesWeaponPrimary(t *testing.T) {
	c := character.New(fighter())
	assert.Equal(t, 40, c.HP)
	assert.Equal(t, 8, c.SpeedCells())
	assert.Equal(t, 8.0, c.Movement)
	assert.Equal(t, character.SourceWeapon, c.Primary.Source)
	assert.Equal(t, 6, c.Primary.AttackModifier, "dex 3 + proficiency 3")
	assert.Equal(t, 3, c.Primary.DamageModifier)
	assert.Equal(t, 1, c.Primary.Range, "range defaults to 1")
	assert.True(t, c.Primary.MeleeOnly())
	assert.Equal(t, 1, c.AttacksPerAction())
}

func TestNew_DerivesSpellPrimary(t *testing.T) {
	s := fighter()
	s.Attacks = nil
	s.Spells = []character.Spell{{
		ID: "frostbite", Name: "Frostbite", Range: 12, Resolution: character.ResolveSavingThrow,
		SaveStat: character.Constitution, CastingStat: character.Wisdom,
		Effects: []character.SpellEffect{{Type: character.EffectDamage, Dice: "1d6", DamageType: "cold"}},
	}}
	c := character.New(s)
	assert.Equal(t, character.SourceSpell, c.Primary.Source)
	assert.Equal(t, 13, c.Primary.SaveDC, "8 + proficiency 3 + wisdom 2")
	assert.Equal(t, "1d6", c.Primary.DamageDice)
	assert.Equal(t, 0, c.Primary.DamageModifier)
	assert.False(t, c.Primary.MeleeOnly())

	s.Spells[0] = character.Spell{ID: "ray", Name: "Ray", Range: 12, Resolution: character.ResolveAttackRoll, AttackStat: character.Intelligence,
		Effects: []character.SpellEffect{{Type: character.EffectDamage, Dice: "1d8", DamageType: "cold"}}}
	c = character.New(s)
	assert.Equal(t, 2, c.Primary.AttackModifier, "int -1 + proficiency 3")
}

func TestNew_UnarmedFallback(t *testing.T) {
	s := fighter()
	s.Attacks = nil
	c := character.New(s)
	assert.Equal(t, character.Unarmed, c.Primary)
}

func TestNew_PrimaryIsNotRecomputed(t *testing.T) {
	c := character.New(fighter())
	c.Stats.Dexterity = 20
	assert.Equal(t, 6, c.Primary.AttackModifier)
}

func TestTakeDamage_Categories(t *testing.T) {
	s := fighter()
	s.Features = nil
	s.Defenses = character.Defenses{
		Resistances:     []string{"fire", "cold"},
		Vulnerabilities: []string{"radiant", "cold"},
		ImmuneDamage:    []string{"poison", "fire"},
	}

	c := character.New(s)
	res := c.TakeDamage(9, "poison")
	assert.Equal(t, character.DamageResult{Category: character.CategoryImmune}, res)

	res = c.TakeDamage(9, "fire")
	assert.Equal(t, character.CategoryImmune, res.Category, "immunity short-circuits resistance")

	s.Defenses.ImmuneDamage = nil
	c = character.New(s)
	res = c.TakeDamage(9, "fire")
	assert.Equal(t, 4, res.Applied)
	assert.Equal(t, character.CategoryResistance, res.Category)

	res = c.TakeDamage(5, "radiant")
	assert.Equal(t, 10, res.Applied)
	assert.Equal(t, character.CategoryVulnerability, res.Category)

	res = c.TakeDamage(5, "cold")
	assert.Equal(t, 4, res.Applied, "halved then doubled")
	assert.Equal(t, 40-4-10-4, c.HP)
}

func TestTakeDamage_Property_Clamped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := fighter()
		s.Features = nil
		s.MaxHP = rapid.IntRange(1, 100).Draw(rt, "hp")
		c := character.New(s)
		for _, hit := range rapid.SliceOf(rapid.IntRange(-5, 60)).Draw(rt, "hits") {
			before := c.HP
			res := c.TakeDamage(hit, "slashing")
			assert.GreaterOrEqual(rt, c.HP, 0)
			assert.Equal(rt, before-c.HP, res.Applied)
		}
		c.Heal(rapid.IntRange(0, 500).Draw(rt, "heal"))
		assert.LessOrEqual(rt, c.HP, c.MaxHP)
	})
}

func TestTakeDamage_Property_ResistanceHalvesFloor(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		amount := rapid.IntRange(0, 30).Draw(rt, "amount")
		s := fighter()
		s.Features = nil
		s.MaxHP = 100
		s.Defenses.Resistances = []string{"fire"}
		c := character.New(s)
		assert.Equal(rt, amount/2, c.TakeDamage(amount, "fire").Applied)

		s.Defenses = character.Defenses{Vulnerabilities: []string{"fire"}}
		c = character.New(s)
		assert.Equal(rt, amount*2, c.TakeDamage(amount, "fire").Applied)
	})
}

func TestTakeDamage_RelentlessEnduranceOnce(t *testing.T) {
	c := character.New(fighter())
	res := c.TakeDamage(100, "slashing")
	assert.True(t, res.DeathPrevented)
	assert.Equal(t, 1, c.HP)
	assert.Equal(t, 39, res.Applied)
	assert.False(t, c.CanUseFeature(character.FeatureRelentlessEndurance))

	res = c.TakeDamage(100, "slashing")
	assert.False(t, res.DeathPrevented, "a spent feature must allow dropping to 0")
	assert.Equal(t, 0, c.HP)
	assert.False(t, c.Alive())
}

func TestHeal_ClampsToMax(t *testing.T) {
	c := character.New(fighter())
	c.HP = 35
	assert.Equal(t, 5, c.Heal(7))
	assert.Equal(t, 40, c.HP)
	assert.Equal(t, 0, c.Heal(-3))
}

func TestFeatures(t *testing.T) {
	c := character.New(fighter())
	assert.True(t, c.HasFeature(character.FeatureSavageAttacks))
	assert.True(t, c.UseFeature(character.FeatureSavageAttacks), "unlimited features are always usable")
	assert.True(t, c.UseFeature(character.FeatureSavageAttacks))
	assert.False(t, c.UseFeature("missing"))
	assert.True(t, c.UseFeature(character.FeatureRelentlessEndurance))
	assert.False(t, c.UseFeature(character.FeatureRelentlessEndurance))
}

func TestConditions_IdempotentAndImmunity(t *testing.T) {
	s := fighter()
	s.Defenses.ImmuneConditions = []condition.ID{condition.Blinded}
	c := character.New(s)

	assert.True(t, c.AddCondition(condition.Prone))
	assert.False(t, c.AddCondition(condition.Prone))
	assert.False(t, c.AddCondition(condition.Blinded))
	assert.False(t, c.HasCondition(condition.Blinded))
	assert.True(t, c.RemoveCondition(condition.Prone))
	assert.False(t, c.RemoveCondition(condition.Prone))
}

func TestResetForNewTurn(t *testing.T) {
	c := character.New(fighter())
	c.Actions, c.Reactions, c.Movement = 0, 0, 0
	c.Disengaging, c.Dodging = true, true
	c.AddEffect(condition.NewEffect(condition.SpeedReduction, "mage", 2))

	c.ResetForNewTurn()
	assert.Equal(t, 1, c.Actions)
	assert.Equal(t, 1, c.Reactions)
	assert.Equal(t, 6.0, c.Movement)
	assert.False(t, c.Disengaging)
	assert.False(t, c.Dodging)

	c.AddEffect(condition.NewEffect(condition.SpeedReduction, "mage", 20))
	c.ResetForNewTurn()
	assert.Equal(t, 0.0, c.Movement, "movement floors at zero")

	c.HP = 0
	c.Actions = 0
	c.ResetForNewTurn()
	assert.Equal(t, 0, c.Actions, "dead combatants are not reset")
}

func TestEffects_RemoveFromCasterAndConsume(t *testing.T) {
	c := character.New(fighter())
	c.AddEffect(condition.NewEffect(condition.SpeedReduction, "mage", 2))
	c.AddEffect(condition.NewEffect(condition.DisadvantageOnNextAttack, "mage", 0))
	c.RemoveEffectsFromCaster("mage")
	require.Len(t, c.Effects, 1)
	assert.True(t, c.ConsumeEffect(condition.DisadvantageOnNextAttack))
	assert.False(t, c.ConsumeEffect(condition.DisadvantageOnNextAttack))
}

func TestClone_DoesNotAlias(t *testing.T) {
	s := fighter()
	s.Inventory = []character.Item{{ID: "p1", Name: "Potion of Healing"}}
	c := character.New(s)
	c.Anim.Path = []grid.Position{{X: 1, Y: 1}}
	c.AddEffect(condition.NewEffect(condition.SpeedReduction, "x", 1))

	cp := c.Clone()
	cp.RemoveItem(0)
	cp.UseFeature(character.FeatureRelentlessEndurance)
	cp.AddCondition(condition.Prone)
	cp.Effects[0].Value = 5
	cp.Anim.Path[0] = grid.Position{X: 9, Y: 9}
	cp.HP = 1

	assert.Len(t, c.Inventory, 1)
	assert.True(t, c.CanUseFeature(character.FeatureRelentlessEndurance))
	assert.False(t, c.HasCondition(condition.Prone))
	assert.Equal(t, 1, c.Effects[0].Value)
	assert.Equal(t, grid.Position{X: 1, Y: 1}, c.Anim.Path[0])
	assert.Equal(t, 40, c.HP)
}

func TestHealingPotion(t *testing.T) {
	s := fighter()
	s.Inventory = []character.Item{{ID: "rope", Name: "Rope"}, {ID: "p", Name: "Greater Healing Potion"}}
	c := character.New(s)
	i, ok := c.HealingPotion()
	require.True(t, ok)
	assert.Equal(t, 1, i)
	c.RemoveItem(i)
	_, ok = c.HealingPotion()
	assert.False(t, ok)
	assert.True(t, character.Item{Kind: "healing_potion"}.IsHealingPotion())
}

func TestSaveAndSkillModifiers(t *testing.T) {
	s := fighter()
	s.SaveProficiencies = []character.Stat{character.Dexterity}
	s.SkillProficiencies = []character.Skill{"stealth"}
	c := character.New(s)
	assert.Equal(t, 6, c.SaveModifier(character.Dexterity))
	assert.Equal(t, 2, c.SaveModifier(character.Constitution))
	assert.Equal(t, 6, c.SkillModifier("stealth"))
	assert.Equal(t, 2, c.SkillModifier("perception"))
	assert.Equal(t, 0, c.SkillModifier("juggling"))
}

func TestIsInsideArea(t *testing.T) {
	c := character.New(fighter())
	c.Pos = grid.Position{X: 15, Y: 7}
	assert.True(t, c.IsInsideArea(grid.NewRect(12, 4, 18, 10)))
	assert.False(t, c.IsInsideArea(grid.NewRect(0, 0, 3, 3)))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, fighter().Validate())

	bad := fighter()
	bad.Faction = "neutral"
	bad.MaxHP = 0
	bad.Profile = "berserk"
	bad.Attacks[0].DamageDice = "lots"
	bad.InitialConditions = []condition.ID{"poisoned"}
	err := bad.Validate()
	require.Error(t, err)
	for _, frag := range []string{"faction", "hp_max", "ai_profile", "lots", "poisoned"} {
		assert.Contains(t, err.Error(), frag)
	}

	spell := fighter()
	spell.Spells = []character.Spell{{ID: "x", Resolution: "vibes"}}
	assert.Error(t, spell.Validate())
}
