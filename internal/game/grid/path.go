package grid

import "container/heap"

// Path is a walkable route. Steps includes the start cell.
//
// Invariant: Cost == sum of StepCost over consecutive Steps.
type Path struct {
	Steps []Position
	Cost  float64
}

// Len returns the number of cells moved, excluding the start.
func (p Path) Len() int {
	if len(p.Steps) == 0 {
		return 0
	}
	return len(p.Steps) - 1
}

type node struct {
	pos Position
	g   float64
	f   float64
	seq int
}

type openSet []node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(node)) }
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

// FindPath runs A* over 8-neighbour adjacency with a Manhattan heuristic.
// Obstacles and cells held by living combatants other than moverID block.
//
// Postcondition: ok is false when end is unreachable; otherwise Steps runs from
// start to end and Cost is the sum of per-step movement costs.
func (g *Grid) FindPath(start, end Position, moverID string, crawling bool) (Path, bool) {
	if start == end {
		return Path{Steps: []Position{start}}, true
	}
	if !g.Passable(end, moverID) {
		return Path{}, false
	}

	gScore := map[Position]float64{start: 0}
	parent := map[Position]Position{}
	closed := map[Position]bool{}
	open := &openSet{{pos: start, f: float64(Manhattan(start, end))}}
	seq := 0

	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if closed[cur.pos] {
			continue
		}
		if cur.pos == end {
			return g.rebuild(parent, start, end, crawling), true
		}
		closed[cur.pos] = true

		for _, d := range Directions {
			next := cur.pos.Add(d)
			if closed[next] || !g.Passable(next, moverID) {
				continue
			}
			tentative := cur.g + g.StepCost(cur.pos, next, crawling)
			if old, seen := gScore[next]; seen && tentative >= old {
				continue
			}
			gScore[next] = tentative
			parent[next] = cur.pos
			seq++
			heap.Push(open, node{pos: next, g: tentative, f: tentative + float64(Manhattan(next, end)), seq: seq})
		}
	}
	return Path{}, false
}

func (g *Grid) rebuild(parent map[Position]Position, start, end Position, crawling bool) Path {
	var rev []Position
	for p := end; p != start; p = parent[p] {
		rev = append(rev, p)
	}
	rev = append(rev, start)
	steps := make([]Position, len(rev))
	for i, p := range rev {
		steps[len(rev)-1-i] = p
	}
	return Path{Steps: steps, Cost: g.PathCost(steps, crawling)}
}

// PathCost sums the step costs along steps.
func (g *Grid) PathCost(steps []Position, crawling bool) float64 {
	cost := 0.0
	for i := 1; i < len(steps); i++ {
		cost += g.StepCost(steps[i-1], steps[i], crawling)
	}
	return cost
}

// Reachable floods outward from start and returns every cell enterable within
// budget together with its cheapest cost. The start cell is excluded.
func (g *Grid) Reachable(start Position, budget float64, moverID string, crawling bool) map[Position]float64 {
	best := map[Position]float64{start: 0}
	open := &openSet{{pos: start}}
	seq := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if cur.g > best[cur.pos] {
			continue
		}
		for _, d := range Directions {
			next := cur.pos.Add(d)
			if !g.Passable(next, moverID) {
				continue
			}
			cost := cur.g + g.StepCost(cur.pos, next, crawling)
			if cost > budget {
				continue
			}
			if old, seen := best[next]; seen && cost >= old {
				continue
			}
			best[next] = cost
			seq++
			heap.Push(open, node{pos: next, g: cost, f: cost, seq: seq})
		}
	}
	delete(best, start)
	return best
}
