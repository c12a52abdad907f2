package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

func pos(x, y int) grid.Position { return grid.Position{X: x, Y: y} }

func feature(id string, t grid.EffectType, cells ...grid.Position) grid.Feature {
	return grid.Feature{ID: id, Name: id, Cells: cells, Effects: []grid.Effect{{Type: t}}}
}

func TestMovementCost(t *testing.T) {
	g := grid.New(5, 5, []grid.Feature{feature("mud", grid.DifficultTerrain, pos(1, 1))}, nil)

	assert.Equal(t, 1.0, g.MovementCost(pos(0, 0), false, false))
	assert.Equal(t, 1.5, g.MovementCost(pos(0, 0), true, false))
	assert.Equal(t, 2.0, g.MovementCost(pos(1, 1), false, false))
	assert.Equal(t, 3.0, g.MovementCost(pos(1, 1), true, false))
	assert.Equal(t, 2.0, g.MovementCost(pos(0, 0), false, true), "crawling adds the base cost")
	assert.Equal(t, 3.0, g.MovementCost(pos(1, 1), false, true), "crawling is additive with difficult terrain")
	assert.Equal(t, 4.5, g.MovementCost(pos(1, 1), true, true))
}

func TestIsObstacle_CoverBlocksPassage(t *testing.T) {
	g := grid.New(5, 5, []grid.Feature{
		feature("wall", grid.Obstacle, pos(0, 0)),
		feature("crate", grid.HalfCover, pos(1, 0)),
		feature("pillar", grid.ThreeQuartersCover, pos(2, 0)),
		feature("mud", grid.DifficultTerrain, pos(3, 0)),
	}, nil)
	assert.True(t, g.IsObstacle(pos(0, 0)))
	assert.True(t, g.IsObstacle(pos(1, 0)))
	assert.True(t, g.IsObstacle(pos(2, 0)))
	assert.False(t, g.IsObstacle(pos(3, 0)))
}

func TestEffectsAndFeatureAt(t *testing.T) {
	pool := grid.Feature{ID: "pool", Name: "Pool", Cells: []grid.Position{pos(2, 2)}, Effects: []grid.Effect{
		{Type: grid.HazardousArea, Hazard: &grid.Hazard{DamageDice: "1d4", DamageType: "poison"}},
	}}
	dark := feature("dark", grid.Darkness, pos(2, 2))
	g := grid.New(5, 5, []grid.Feature{pool, dark}, nil)

	assert.Len(t, g.EffectsAt(pos(2, 2)), 2, "effects of every covering feature are collected")
	f, ok := g.FeatureAt(pos(2, 2))
	require.True(t, ok)
	assert.Equal(t, "dark", f.ID, "the last defined feature wins")
	_, ok = g.FeatureAt(pos(0, 0))
	assert.False(t, ok)
}

func TestIsOccupied_IgnoresSelf(t *testing.T) {
	g := grid.New(5, 5, nil, []grid.Body{{ID: "a", Pos: pos(1, 1)}})
	assert.True(t, g.IsOccupied(pos(1, 1), ""))
	assert.False(t, g.IsOccupied(pos(1, 1), "a"))
	assert.False(t, g.IsOccupied(pos(2, 2), ""))
}

func TestFindPath_Straight(t *testing.T) {
	g := grid.New(10, 10, nil, nil)
	p, ok := g.FindPath(pos(0, 0), pos(3, 0), "m", false)
	require.True(t, ok)
	assert.Equal(t, pos(0, 0), p.Steps[0])
	assert.Equal(t, pos(3, 0), p.Steps[len(p.Steps)-1])
	assert.Equal(t, 3.0, p.Cost)
	assert.Equal(t, 3, p.Len())
}

func TestFindPath_SameCell(t *testing.T) {
	g := grid.New(3, 3, nil, nil)
	p, ok := g.FindPath(pos(1, 1), pos(1, 1), "m", false)
	require.True(t, ok)
	assert.Equal(t, 0.0, p.Cost)
	assert.Equal(t, 0, p.Len())
}

func TestFindPath_AroundWall(t *testing.T) {
	g := grid.New(5, 5, []grid.Feature{feature("wall", grid.Obstacle, pos(2, 0), pos(2, 1), pos(2, 2), pos(2, 3))}, nil)
	p, ok := g.FindPath(pos(0, 0), pos(4, 0), "m", false)
	require.True(t, ok)
	for _, s := range p.Steps {
		assert.False(t, g.IsObstacle(s), "path crosses obstacle at %v", s)
	}
	assert.Contains(t, p.Steps, pos(2, 4))
}

func TestFindPath_NoPath(t *testing.T) {
	g := grid.New(5, 5, []grid.Feature{feature("wall", grid.Obstacle, pos(2, 0), pos(2, 1), pos(2, 2), pos(2, 3), pos(2, 4))}, nil)
	_, ok := g.FindPath(pos(0, 0), pos(4, 0), "m", false)
	assert.False(t, ok)

	occupied := grid.New(5, 5, nil, []grid.Body{{ID: "x", Pos: pos(4, 4)}})
	_, ok = occupied.FindPath(pos(0, 0), pos(4, 4), "m", false)
	assert.False(t, ok, "occupied destination is unreachable")
}

func TestFindPath_Property_CostIsSumOfSteps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.IntRange(3, 12).Draw(rt, "w")
		h := rapid.IntRange(3, 12).Draw(rt, "h")
		var walls, mud []grid.Position
		nwalls := rapid.IntRange(0, 10).Draw(rt, "nwalls")
		nmud := rapid.IntRange(0, 10).Draw(rt, "nmud")
		for i := 0; i < nwalls; i++ {
			walls = append(walls, pos(rapid.IntRange(0, w-1).Draw(rt, "wx"), rapid.IntRange(0, h-1).Draw(rt, "wy")))
		}
		for i := 0; i < nmud; i++ {
			mud = append(mud, pos(rapid.IntRange(0, w-1).Draw(rt, "mx"), rapid.IntRange(0, h-1).Draw(rt, "my")))
		}
		g := grid.New(w, h, []grid.Feature{
			feature("mud", grid.DifficultTerrain, mud...),
			feature("wall", grid.Obstacle, walls...),
		}, nil)
		start := pos(rapid.IntRange(0, w-1).Draw(rt, "sx"), rapid.IntRange(0, h-1).Draw(rt, "sy"))
		end := pos(rapid.IntRange(0, w-1).Draw(rt, "ex"), rapid.IntRange(0, h-1).Draw(rt, "ey"))
		crawling := rapid.Bool().Draw(rt, "crawl")

		p, ok := g.FindPath(start, end, "m", crawling)
		if !ok {
			return
		}
		sum := 0.0
		for i := 1; i < len(p.Steps); i++ {
			require.Equal(rt, 1, grid.Chebyshev(p.Steps[i-1], p.Steps[i]), "steps must be adjacent")
			sum += g.StepCost(p.Steps[i-1], p.Steps[i], crawling)
		}
		assert.Equal(rt, sum, p.Cost)
		assert.GreaterOrEqual(rt, p.Cost, float64(p.Len()))
	})
}

func TestReachable_BudgetAndExclusions(t *testing.T) {
	g := grid.New(10, 10, []grid.Feature{feature("wall", grid.Obstacle, pos(6, 5))}, []grid.Body{{ID: "o", Pos: pos(4, 5)}})
	cells := g.Reachable(pos(5, 5), 1, "m", false)

	assert.NotContains(t, cells, pos(5, 5), "start is excluded")
	assert.NotContains(t, cells, pos(6, 5), "obstacles are excluded")
	assert.NotContains(t, cells, pos(4, 5), "occupied cells are excluded")
	assert.NotContains(t, cells, pos(6, 6), "diagonal costs 1.5")
	assert.Contains(t, cells, pos(5, 4))
	assert.Len(t, cells, 2)
}

func TestReachable_Property_CostsWithinBudget(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		budget := float64(rapid.IntRange(0, 12).Draw(rt, "budget"))
		g := grid.New(15, 15, nil, nil)
		for c, cost := range g.Reachable(pos(7, 7), budget, "m", false) {
			assert.LessOrEqual(rt, cost, budget)
			p, ok := g.FindPath(pos(7, 7), c, "m", false)
			require.True(rt, ok)
			assert.GreaterOrEqual(rt, p.Cost, cost, "flood fill returns the cheapest cost")
		}
	})
}

func TestLine_Endpoints(t *testing.T) {
	l := grid.Line(pos(0, 0), pos(4, 2))
	assert.Equal(t, pos(0, 0), l[0])
	assert.Equal(t, pos(4, 2), l[len(l)-1])
	assert.Len(t, l, 5)
}

func TestHasLineOfSight(t *testing.T) {
	g := grid.New(10, 10, []grid.Feature{
		feature("wall", grid.Obstacle, pos(3, 0)),
		feature("crate", grid.HalfCover, pos(3, 2)),
	}, []grid.Body{{ID: "x", Pos: pos(3, 4)}})

	assert.False(t, g.HasLineOfSight(pos(0, 0), pos(6, 0)), "obstacles block sight")
	assert.True(t, g.HasLineOfSight(pos(0, 2), pos(6, 2)), "cover does not block sight")
	assert.True(t, g.HasLineOfSight(pos(0, 4), pos(6, 4)), "creatures do not block sight")
	assert.True(t, g.HasLineOfSight(pos(0, 0), pos(1, 0)))
}

func TestCoverBonus_MaxNotSum(t *testing.T) {
	g := grid.New(10, 10, []grid.Feature{feature("pillar", grid.ThreeQuartersCover, pos(1, 0))}, []grid.Body{
		{ID: "attacker", Pos: pos(0, 0)},
		{ID: "bystander", Pos: pos(2, 0)},
		{ID: "target", Pos: pos(3, 0)},
	})
	assert.Equal(t, 5, g.CoverBonus(pos(0, 0), pos(3, 0)))
}

func TestCoverBonus_Sources(t *testing.T) {
	creature := grid.New(10, 10, nil, []grid.Body{{ID: "a", Pos: pos(0, 0)}, {ID: "b", Pos: pos(1, 0)}, {ID: "t", Pos: pos(2, 0)}})
	assert.Equal(t, 2, creature.CoverBonus(pos(0, 0), pos(2, 0)))

	half := grid.New(10, 10, []grid.Feature{feature("crate", grid.HalfCover, pos(1, 0))}, nil)
	assert.Equal(t, 2, half.CoverBonus(pos(0, 0), pos(2, 0)))

	adjacent := grid.New(10, 10, nil, nil)
	assert.Equal(t, 0, adjacent.CoverBonus(pos(0, 0), pos(1, 0)))
}

func TestClosestEmptyAdjacent(t *testing.T) {
	var bodies []grid.Body
	for _, d := range grid.Directions[:7] {
		bodies = append(bodies, grid.Body{ID: "x" + d.String(), Pos: pos(5, 5).Add(d)})
	}
	g := grid.New(10, 10, nil, bodies)
	p, ok := g.ClosestEmptyAdjacent(pos(5, 5), "m", nil)
	require.True(t, ok)
	assert.Equal(t, pos(5, 5).Add(grid.Directions[7]), p)

	full := grid.New(1, 1, nil, nil)
	_, ok = full.ClosestEmptyAdjacent(pos(0, 0), "m", nil)
	assert.False(t, ok)
}

func TestRect_Contains(t *testing.T) {
	r := grid.NewRect(18, 10, 12, 4)
	assert.True(t, r.Contains(pos(12, 4)))
	assert.True(t, r.Contains(pos(18, 10)))
	assert.True(t, r.Contains(pos(15, 7)))
	assert.False(t, r.Contains(pos(11, 7)))
}

func TestChebyshevAndManhattan(t *testing.T) {
	assert.Equal(t, 3, grid.Chebyshev(pos(0, 0), pos(3, 2)))
	assert.Equal(t, 5, grid.Manhattan(pos(0, 0), pos(3, 2)))
	assert.Equal(t, -1, grid.Sign(-7))
}

func TestNew_PanicsOnBadDimensions(t *testing.T) {
	assert.Panics(t, func() { grid.New(0, 5, nil, nil) })
}
