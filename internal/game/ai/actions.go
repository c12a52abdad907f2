package ai

import (
	"context"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// Action executes a primitive operator on the live turn.
type Action func(ctx context.Context, t *combat.Turn, ws *WorldState) error

var actions = map[string]Action{
	"pass": func(ctx context.Context, t *combat.Turn, _ *WorldState) error { return t.Beat(ctx) },
	"stand_up": func(ctx context.Context, t *combat.Turn, _ *WorldState) error {
		if t.StandUp() {
			return t.Beat(ctx)
		}
		return nil
	},
	"approach": approach,
	"shove": func(ctx context.Context, t *combat.Turn, ws *WorldState) error {
		return t.Shove(ctx, ws.TargetID)
	},
	"attack": func(ctx context.Context, t *combat.Turn, ws *WorldState) error {
		return t.AttackSequence(ctx, ws.TargetID)
	},
	"disengage": func(_ context.Context, t *combat.Turn, _ *WorldState) error {
		t.Disengage()
		return nil
	},
	"dodge": func(_ context.Context, t *combat.Turn, _ *WorldState) error {
		t.Dodge()
		return nil
	},
	"flee": flee,
	"kite": kite,
}

const costEpsilon = 1e-9

// approach walks toward an empty cell next to the target, as far along the
// cheapest path as the remaining movement allows.
func approach(ctx context.Context, t *combat.Turn, ws *WorldState) error {
	tgt := ws.Target()
	if tgt == nil {
		return nil
	}
	g := ws.State.Grid()
	dest, ok := g.ClosestEmptyAdjacent(tgt.Pos, ws.Self.ID, t.Shuffle)
	if !ok {
		return nil
	}
	crawling := t.Crawling()
	path, ok := g.FindPath(ws.Self.Pos, dest, ws.Self.ID, crawling)
	if !ok || path.Len() == 0 {
		return nil
	}
	stop, spent := 0, 0.0
	for i := 1; i < len(path.Steps); i++ {
		c := g.StepCost(path.Steps[i-1], path.Steps[i], crawling)
		if spent+c > ws.Self.Movement+costEpsilon {
			break
		}
		spent += c
		stop = i
	}
	if stop == 0 {
		return nil
	}
	_, err := t.Move(ctx, path.Steps[stop])
	return err
}

// flee moves to the reachable cell farthest from the nearest threat.
func flee(ctx context.Context, t *combat.Turn, ws *WorldState) error {
	threat := ws.NearestEnemy()
	if threat == nil {
		return nil
	}
	cells := sortedCells(t.Reachable(0))
	best, bestDist := ws.Self.Pos, grid.Chebyshev(ws.Self.Pos, threat.Pos)
	for _, c := range cells {
		if d := grid.Chebyshev(c.pos, threat.Pos); d > bestDist {
			best, bestDist = c.pos, d
		}
	}
	if best == ws.Self.Pos {
		return nil
	}
	_, err := t.Move(ctx, best)
	return err
}

// kite moves to the spot with a clear shot that is farthest from the target.
// The dash budget is only considered when no such spot is reachable with the
// movement left.
func kite(ctx context.Context, t *combat.Turn, ws *WorldState) error {
	spot, ok := bestShootingSpot(t, ws, 0)
	if !ok && ws.Self.Actions > 0 {
		spot, ok = bestShootingSpot(t, ws, float64(ws.Self.SpeedCells()))
	}
	if !ok || spot.pos == ws.Self.Pos {
		return nil
	}
	if spot.cost > ws.Self.Movement+costEpsilon {
		t.Say("%s lacks the movement and dashes.", ws.Self.Name)
		if !t.Dash() {
			return nil
		}
	}
	_, err := t.Move(ctx, spot.pos)
	return err
}

type cell struct {
	pos  grid.Position
	cost float64
}

// sortedCells lists costs in row-major order.
func sortedCells(costs map[grid.Position]float64) []cell {
	out := make([]cell, 0, len(costs))
	for p, c := range costs {
		out = append(out, cell{pos: p, cost: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].pos.Y != out[j].pos.Y {
			return out[i].pos.Y < out[j].pos.Y
		}
		return out[i].pos.X < out[j].pos.X
	})
	return out
}

// bestShootingSpot picks, among the cells reachable with extra movement plus
// staying put, the one with a clear shot maximizing distance to the target,
// ties broken by lower cost.
func bestShootingSpot(t *combat.Turn, ws *WorldState, extra float64) (cell, bool) {
	tgt := ws.Target()
	if tgt == nil {
		return cell{}, false
	}
	costs := t.Reachable(extra)
	costs[ws.Self.Pos] = 0
	var (
		best  cell
		dist  = -1
		found bool
	)
	for _, c := range sortedCells(costs) {
		if !ws.ClearShot(c.pos) {
			continue
		}
		d := grid.Chebyshev(c.pos, tgt.Pos)
		if d > dist || (d == dist && c.cost < best.cost) {
			best, dist, found = c, d, true
		}
	}
	return best, found
}
