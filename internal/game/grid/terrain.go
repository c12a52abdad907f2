package grid

// EffectType is the closed set of terrain effect descriptors.
type EffectType string

const (
	Obstacle           EffectType = "obstacle"
	DifficultTerrain   EffectType = "difficult_terrain"
	HalfCover          EffectType = "half_cover"
	ThreeQuartersCover EffectType = "three_quarters_cover"
	HazardousArea      EffectType = "hazardous_area"
	Darkness           EffectType = "darkness"
)

// Valid reports whether t is a known effect type.
func (t EffectType) Valid() bool {
	switch t {
	case Obstacle, DifficultTerrain, HalfCover, ThreeQuartersCover, HazardousArea, Darkness:
		return true
	}
	return false
}

// BlocksMovement reports whether cells with this effect cannot be entered.
func (t EffectType) BlocksMovement() bool {
	return t == Obstacle || t == HalfCover || t == ThreeQuartersCover
}

// Hazard is the damage dealt by a hazardous area at turn start.
type Hazard struct {
	DamageDice string `json:"damage_dice"`
	DamageType string `json:"damage_type"`
}

// Effect is one terrain effect descriptor.
type Effect struct {
	Type        EffectType `json:"type"`
	Description string     `json:"description,omitempty"`
	// Hazard is set only for HazardousArea.
	Hazard *Hazard `json:"hazard,omitempty"`
}

// Feature is a named set of cells sharing terrain effects.
type Feature struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Color   string     `json:"color,omitempty"`
	Cells   []Position `json:"cells"`
	Effects []Effect   `json:"effects"`
}
