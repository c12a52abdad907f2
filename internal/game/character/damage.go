package character

import (
	"github.com/cory-johannsen/skirmish/internal/game/condition"
)

// DamageCategory records which defense shaped a hit.
type DamageCategory string

const (
	CategoryDamage        DamageCategory = "damage"
	CategoryResistance    DamageCategory = "resistance"
	CategoryVulnerability DamageCategory = "vulnerability"
	CategoryImmune        DamageCategory = "immune"
)

// DamageResult is the outcome of TakeDamage.
type DamageResult struct {
	Applied        int
	Category       DamageCategory
	DeathPrevented bool
}

// IsImmune reports whether damageType is ignored entirely.
func (c *Character) IsImmune(damageType string) bool {
	return contains(c.Defenses.ImmuneDamage, damageType)
}

// TakeDamage applies amount of damageType through the defense pipeline.
//
// Immunity zeroes the hit and short-circuits. Otherwise resistance halves
// (floor) and then vulnerability doubles. A killing blow against a combatant
// with an unused relentless-endurance use leaves it at 1 HP and spends the use.
//
// Postcondition: 0 <= HP <= MaxHP; Applied == HP before - HP after.
func (c *Character) TakeDamage(amount int, damageType string) DamageResult {
	if amount < 0 {
		amount = 0
	}
	if c.IsImmune(damageType) {
		return DamageResult{Category: CategoryImmune}
	}
	res := DamageResult{Category: CategoryDamage}
	if contains(c.Defenses.Resistances, damageType) {
		amount /= 2
		res.Category = CategoryResistance
	}
	if contains(c.Defenses.Vulnerabilities, damageType) {
		amount *= 2
		res.Category = CategoryVulnerability
	}
	if c.Alive() && c.HP-amount <= 0 && c.UseFeature(FeatureRelentlessEndurance) {
		amount = c.HP - 1
		res.DeathPrevented = true
	}
	amount = min(amount, c.HP)
	c.HP -= amount
	res.Applied = amount
	return res
}

// Heal restores up to amount hit points and returns how many were restored.
//
// Postcondition: HP <= MaxHP.
func (c *Character) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.HP
	c.HP = min(c.MaxHP, c.HP+amount)
	return c.HP - before
}

// HasFeature reports whether the combatant has the feature, used up or not.
func (c *Character) HasFeature(id string) bool {
	_, ok := c.feature(id)
	return ok
}

func (c *Character) feature(id string) (Feature, bool) {
	for _, f := range c.Features {
		if f.ID == id {
			return f, true
		}
	}
	return Feature{}, false
}

// CanUseFeature reports whether the feature exists and has uses left.
func (c *Character) CanUseFeature(id string) bool {
	f, ok := c.feature(id)
	if !ok {
		return false
	}
	return f.MaxUses == 0 || c.FeatureUses[id] < f.MaxUses
}

// UseFeature spends one use of a limited feature.
//
// Postcondition: returns false and changes nothing when CanUseFeature is false.
func (c *Character) UseFeature(id string) bool {
	if !c.CanUseFeature(id) {
		return false
	}
	f, _ := c.feature(id)
	if f.MaxUses > 0 {
		if c.FeatureUses == nil {
			c.FeatureUses = make(map[string]int)
		}
		c.FeatureUses[id]++
	}
	return true
}

// AddCondition activates id unless the combatant is immune to it.
//
// Postcondition: returns true only when the condition was newly added.
func (c *Character) AddCondition(id condition.ID) bool {
	if contains(c.Defenses.ImmuneConditions, id) {
		return false
	}
	return c.Conditions.Add(id)
}

// RemoveCondition deactivates id; removing an inactive condition is a no-op.
func (c *Character) RemoveCondition(id condition.ID) bool {
	return c.Conditions.Remove(id)
}

// HasCondition reports whether id is active.
func (c *Character) HasCondition(id condition.ID) bool {
	return c.Conditions.Has(id)
}

// AddEffect attaches a temporary effect; duplicates by id are ignored.
func (c *Character) AddEffect(e condition.Effect) {
	c.Effects = c.Effects.Add(e)
}

// RemoveEffect detaches the effect with id; unknown ids are a no-op.
func (c *Character) RemoveEffect(id string) {
	c.Effects = c.Effects.Remove(id)
}

// RemoveEffectsFromCaster drops the non-persistent effects casterID applied.
func (c *Character) RemoveEffectsFromCaster(casterID string) {
	c.Effects = c.Effects.RemoveFromCaster(casterID)
}

// ConsumeEffect removes the first effect of kind and reports whether one existed.
func (c *Character) ConsumeEffect(kind condition.EffectKind) bool {
	e, ok := c.Effects.First(kind)
	if ok {
		c.RemoveEffect(e.ID)
	}
	return ok
}

// ResetForNewTurn restores per-turn resources. Dead combatants are untouched.
//
// Postcondition: Actions == 1, Reactions == 1, Movement == max(0, SpeedCells -
// active speed reduction), stances cleared.
func (c *Character) ResetForNewTurn() {
	if !c.Alive() {
		return
	}
	c.Actions, c.Reactions = 1, 1
	c.Movement = float64(max(0, c.SpeedCells()-c.Effects.Total(condition.SpeedReduction)))
	c.Disengaging, c.Dodging = false, false
}

// SpendMovement deducts cost from remaining movement, never going negative.
func (c *Character) SpendMovement(cost float64) {
	c.Movement = max(0, c.Movement-cost)
}

// HealingPotion returns the index of the first healing potion in the inventory.
func (c *Character) HealingPotion() (int, bool) {
	for i, it := range c.Inventory {
		if it.IsHealingPotion() {
			return i, true
		}
	}
	return -1, false
}

// RemoveItem drops the inventory entry at index i.
func (c *Character) RemoveItem(i int) {
	if i < 0 || i >= len(c.Inventory) {
		return
	}
	c.Inventory = append(c.Inventory[:i:i], c.Inventory[i+1:]...)
}
