package pathfind_test

import (
	"container/heap"
	"math/rand"
	"testing"

	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/world"
)

type distEntry struct {
	idx, dist int
}

type distQueue []distEntry

func (q distQueue) Len() int           { return len(q) }
func (q distQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q distQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)        { *q = append(*q, x.(distEntry)) }
func (q *distQueue) Pop() any {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

// dijkstra is the reference cost of the cheapest path, -1 when unreachable.
func dijkstra(t *testing.T, m *world.Map, req pathfind.Request, coster pathfind.ObstacleCoster) int {
	t.Helper()
	w, h := m.Size()
	policy := req.Policy
	if policy.MoveCardinal == 0 {
		policy.MoveCardinal = pathfind.DefaultMoveCardinal
	}
	if policy.MoveDiagonal == 0 {
		policy.MoveDiagonal = pathfind.DefaultMoveDiagonal
	}
	if policy.AvoidWeight == 0 {
		policy.AvoidWeight = pathfind.DefaultAvoidWeight
	}
	eval := pathfind.NewEvaluator(m, &policy, coster)
	dest := req.Dest
	if req.EndMode == pathfind.EndModeTouch {
		dest = dest.ExpandedBy(1)
	}

	dist := make([]int, w*h)
	for i := range dist {
		dist[i] = -1
	}
	start := req.Start.Z*w + req.Start.X
	dist[start] = 0
	q := &distQueue{{idx: start}}
	for q.Len() > 0 {
		e := heap.Pop(q).(distEntry)
		if e.dist != dist[e.idx] {
			continue
		}
		c := pathfind.Cell{X: e.idx % w, Z: e.idx / w}
		if dest.Contains(c) {
			return e.dist
		}
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				n := pathfind.Cell{X: c.X + dx, Z: c.Z + dz}
				step := eval.StepCost(c, n)
				if step >= pathfind.Impassable {
					continue
				}
				ni := n.Z*w + n.X
				if nd := e.dist + step; dist[ni] < 0 || nd < dist[ni] {
					dist[ni] = nd
					heap.Push(q, distEntry{idx: ni, dist: nd})
				}
			}
		}
	}
	return -1
}

// randomMap scatters walls, doors, traps and terrain costs over an open map.
func randomMap(rng *rand.Rand, w, h int) *world.Map {
	m := world.New(w, h)
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			switch r := rng.Float64(); {
			case r < 0.2:
				m.SetWall(x, z, rng.Intn(2)*400)
			case r < 0.23:
				m.SetDoor(x, z, pathfind.Obstacle{OpenCost: rng.Intn(40), Locked: rng.Intn(4) == 0})
			case r < 0.24:
				m.SetStructure(x, z, 800)
			default:
				m.SetTerrain(x, z, rng.Intn(3)*rng.Intn(15))
			}
		}
	}
	m.Rebuild()
	return m
}

func randomOpenCell(rng *rand.Rand, m *world.Map) pathfind.Cell {
	w, h := m.Size()
	for {
		x, z := rng.Intn(w), rng.Intn(h)
		if m.Walkable(m.Index(x, z)) && m.ObstacleAt(m.Index(x, z)) == nil {
			return pathfind.Cell{X: x, Z: z}
		}
	}
}

// checkPath verifies that consecutive cells are legal moves and that their
// costs add up to the reported total.
func checkPath(t *testing.T, m *world.Map, req pathfind.Request, coster pathfind.ObstacleCoster, p *pathfind.Path) {
	t.Helper()
	policy := req.Policy
	if policy.MoveCardinal == 0 {
		policy.MoveCardinal = pathfind.DefaultMoveCardinal
	}
	if policy.MoveDiagonal == 0 {
		policy.MoveDiagonal = pathfind.DefaultMoveDiagonal
	}
	if policy.AvoidWeight == 0 {
		policy.AvoidWeight = pathfind.DefaultAvoidWeight
	}
	eval := pathfind.NewEvaluator(m, &policy, coster)
	if len(p.Cells) == 0 || p.Cells[0] != req.Start {
		t.Fatalf("path %v does not begin at %v", p.Cells, req.Start)
	}
	total := 0
	for i := 1; i < len(p.Cells); i++ {
		step := eval.StepCost(p.Cells[i-1], p.Cells[i])
		if step >= pathfind.Impassable {
			t.Fatalf("illegal move %v -> %v", p.Cells[i-1], p.Cells[i])
		}
		total += step
	}
	if total != p.Cost {
		t.Fatalf("steps add up to %d, path reports %d", total, p.Cost)
	}
}
