package character

// Skill names a trained skill.
type Skill string

// SkillStats maps every skill to its governing ability.
var SkillStats = map[Skill]Stat{
	"acrobatics":      Dexterity,
	"animal_handling": Wisdom,
	"arcana":          Intelligence,
	"athletics":       Strength,
	"deception":       Charisma,
	"history":         Intelligence,
	"insight":         Wisdom,
	"intimidation":    Charisma,
	"investigation":   Intelligence,
	"medicine":        Wisdom,
	"nature":          Intelligence,
	"perception":      Wisdom,
	"performance":     Charisma,
	"persuasion":      Charisma,
	"religion":        Intelligence,
	"sleight_of_hand": Dexterity,
	"stealth":         Dexterity,
	"survival":        Wisdom,
}

// SkillModifier returns the check bonus for skill: the governing ability
// modifier plus proficiency when trained. Unknown skills use no ability.
func (c *Character) SkillModifier(skill Skill) int {
	stat, ok := SkillStats[skill]
	if !ok {
		return 0
	}
	m := c.Mod(stat)
	if contains(c.SkillProficiencies, skill) {
		m += c.ProficiencyBonus
	}
	return m
}
