// Package grid answers geometric questions about a battle map: occupancy,
// terrain effects, movement cost, pathfinding, line of sight and cover.
//
// A Grid is an immutable view built from map dimensions, terrain features and
// the positions of the living combatants at one instant. Callers rebuild it
// whenever occupancy changes.
package grid

import "fmt"

// Position is an integer grid cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String renders the position as "(x,y)".
func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Add returns p offset by d.
func (p Position) Add(d Position) Position { return Position{X: p.X + d.X, Y: p.Y + d.Y} }

// Directions lists the 8 neighbour offsets, orthogonal first.
var Directions = []Position{
	{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0},
	{X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

// Chebyshev returns the king-move distance between a and b, the distance used
// for weapon range and adjacency.
func Chebyshev(a, b Position) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

// Manhattan returns |dx| + |dy|.
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Sign returns -1, 0 or 1.
func Sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Rect is an inclusive rectangular area such as a defender's zone.
type Rect struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// NewRect builds a Rect from two corners in any order.
func NewRect(x1, y1, x2, y2 int) Rect {
	return Rect{MinX: min(x1, x2), MinY: min(y1, y2), MaxX: max(x1, x2), MaxY: max(y1, y2)}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Position) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Body is a living combatant as seen by the grid.
type Body struct {
	ID  string
	Pos Position
}

// Grid is an immutable query view over one battle map.
type Grid struct {
	width, height int
	features      []Feature
	effects       map[Position][]Effect
	topFeature    map[Position]int
	bodies        map[Position]string
}

// New builds a Grid.
//
// Precondition: width > 0 and height > 0.
// Postcondition: features are indexed per cell; later features shadow earlier
// ones for FeatureAt, while EffectsAt returns the effects of every feature.
func New(width, height int, features []Feature, bodies []Body) *Grid {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("grid: invalid dimensions %dx%d", width, height))
	}
	g := &Grid{
		width:      width,
		height:     height,
		features:   features,
		effects:    make(map[Position][]Effect),
		topFeature: make(map[Position]int),
		bodies:     make(map[Position]string, len(bodies)),
	}
	for i, f := range features {
		for _, c := range f.Cells {
			g.effects[c] = append(g.effects[c], f.Effects...)
			g.topFeature[c] = i
		}
	}
	for _, b := range bodies {
		g.bodies[b.Pos] = b.ID
	}
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies on the map.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// EffectsAt returns every terrain effect covering p.
func (g *Grid) EffectsAt(p Position) []Effect {
	return g.effects[p]
}

// HasEffect reports whether any feature covering p carries t.
func (g *Grid) HasEffect(p Position, t EffectType) bool {
	for _, e := range g.effects[p] {
		if e.Type == t {
			return true
		}
	}
	return false
}

// FeatureAt returns the last-defined terrain feature covering p.
func (g *Grid) FeatureAt(p Position) (Feature, bool) {
	i, ok := g.topFeature[p]
	if !ok {
		return Feature{}, false
	}
	return g.features[i], true
}

// OccupantAt returns the id of the living combatant on p.
func (g *Grid) OccupantAt(p Position) (string, bool) {
	id, ok := g.bodies[p]
	return id, ok
}

// IsOccupied reports whether a living combatant other than ignoreID stands on p.
func (g *Grid) IsOccupied(p Position, ignoreID string) bool {
	id, ok := g.bodies[p]
	return ok && id != ignoreID
}

// IsObstacle reports whether p blocks passage. Cover-granting terrain blocks
// passage as well as granting cover.
func (g *Grid) IsObstacle(p Position) bool {
	for _, e := range g.effects[p] {
		if e.Type.BlocksMovement() {
			return true
		}
	}
	return false
}

// Passable reports whether a mover may end a step on p.
func (g *Grid) Passable(p Position, moverID string) bool {
	return g.InBounds(p) && !g.IsObstacle(p) && !g.IsOccupied(p, moverID)
}

// MovementCost returns the cost of stepping onto p.
//
// Postcondition: base is 1 orthogonal or 1.5 diagonal; difficult terrain doubles
// it; crawling adds base once more (additive with difficult terrain).
func (g *Grid) MovementCost(p Position, diagonal, crawling bool) float64 {
	base := 1.0
	if diagonal {
		base = 1.5
	}
	cost := base
	if g.HasEffect(p, DifficultTerrain) {
		cost *= 2
	}
	if crawling {
		cost += base
	}
	return cost
}

// StepCost returns the cost of moving from a to the adjacent cell b.
func (g *Grid) StepCost(a, b Position, crawling bool) float64 {
	return g.MovementCost(b, a.X != b.X && a.Y != b.Y, crawling)
}

// ClosestEmptyAdjacent scans the neighbours of target in the order produced by
// shuffle and returns the first passable one for moverID. A nil shuffle keeps
// the fixed Directions order.
func (g *Grid) ClosestEmptyAdjacent(target Position, moverID string, shuffle func(n int, swap func(i, j int))) (Position, bool) {
	dirs := make([]Position, len(Directions))
	copy(dirs, Directions)
	if shuffle != nil {
		shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
	}
	for _, d := range dirs {
		p := target.Add(d)
		if g.Passable(p, moverID) {
			return p, true
		}
	}
	return Position{}, false
}
