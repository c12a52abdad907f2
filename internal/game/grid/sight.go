package grid

// Line returns the Bresenham line from a to b, endpoints included.
func Line(a, b Position) []Position {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := Sign(b.X-a.X), Sign(b.Y-a.Y)
	e := dx + dy
	out := []Position{a}
	for p := a; p != b; {
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
		out = append(out, p)
	}
	return out
}

func between(a, b Position) []Position {
	l := Line(a, b)
	if len(l) <= 2 {
		return nil
	}
	return l[1 : len(l)-1]
}

// HasLineOfSight reports whether no intermediate cell between a and b carries
// an obstacle. Creatures never block sight; they grant cover instead.
func (g *Grid) HasLineOfSight(a, b Position) bool {
	for _, p := range between(a, b) {
		if g.HasEffect(p, Obstacle) {
			return false
		}
	}
	return true
}

// Cover bonuses.
const (
	CreatureCover      = 2
	HalfCoverBonus     = 2
	ThreeQuartersBonus = 5
)

// CoverBonus returns the AC bonus a target at to enjoys against an attacker at
// from. Sources do not stack; the largest wins.
func (g *Grid) CoverBonus(from, to Position) int {
	attackerID, _ := g.OccupantAt(from)
	targetID, _ := g.OccupantAt(to)
	bonus := 0
	for _, p := range between(from, to) {
		if id, ok := g.OccupantAt(p); ok && id != attackerID && id != targetID {
			bonus = max(bonus, CreatureCover)
		}
		if g.HasEffect(p, HalfCover) {
			bonus = max(bonus, HalfCoverBonus)
		}
		if g.HasEffect(p, ThreeQuartersCover) {
			bonus = max(bonus, ThreeQuartersBonus)
		}
	}
	return bonus
}
