package pathfind

import "testing"

// stripGrid is a 16×4 strip cut into four 4-wide regions. The first three
// are chained by links, the last one is sealed off.
type stripGrid struct {
	regions []*Region
	terrain []int
}

func newStripGrid() *stripGrid {
	g := &stripGrid{terrain: make([]int, 16*4)}
	for i := 0; i < 4; i++ {
		g.regions = append(g.regions, &Region{
			ID:     i,
			Bounds: Rect{MinX: i * 4, MinZ: 0, MaxX: i*4 + 3, MaxZ: 3},
		})
	}
	for i := 0; i < 2; i++ {
		a, b := g.regions[i], g.regions[i+1]
		l := &Link{
			Span:   EdgeSpan{Root: Cell{X: i*4 + 3, Z: 0}, Dir: SpanNorth, Length: 4},
			Bounds: Rect{MinX: i*4 + 3, MinZ: 0, MaxX: i*4 + 4, MaxZ: 3},
			A:      a,
			B:      b,
		}
		a.Links = append(a.Links, l)
		b.Links = append(b.Links, l)
	}
	for i := range g.terrain {
		g.terrain[i] = i % 5
	}
	return g
}

func (g *stripGrid) Size() (int, int)         { return 16, 4 }
func (g *stripGrid) Walkable(int) bool        { return true }
func (g *stripGrid) TerrainCost(idx int) int  { return g.terrain[idx] }
func (g *stripGrid) ObstacleAt(int) *Obstacle { return nil }
func (g *stripGrid) RegionAt(idx int) *Region { return g.regions[(idx%16)/4] }

func newTestHeuristic(g *stripGrid, dest Rect, start Cell, strict bool) *regionHeuristic {
	policy := Policy{}.withDefaults()
	eval := NewEvaluator(g, &policy, nil)
	costs := newRegionCoster(g, 0)
	costs.reset(strict)
	roots := []*Region{g.RegionAt(dest.MinZ*16 + dest.MinX)}
	return newRegionHeuristic(g, eval, costs, roots, dest, start, strict)
}

func TestRegionHeuristicThroughLinks(t *testing.T) {
	g := newStripGrid()
	dest := SingleCell(Cell{X: 10, Z: 1})
	h := newTestHeuristic(g, dest, Cell{X: 0, Z: 1}, false)

	inRoot := h.estimate(1*16 + 9)
	if inRoot != h.octileEstimate.estimate(1*16+9) {
		t.Fatalf("root region estimate = %d, want the octile distance", inRoot)
	}
	far := h.estimate(1*16 + 0)
	near := h.estimate(1*16 + 6)
	if far <= near || near <= 0 {
		t.Fatalf("estimates far=%d near=%d, want far > near > 0", far, near)
	}
	if got := h.estimate(1*16 + 13); got != unreachableEstimate {
		t.Fatalf("sealed region estimate = %d, want %d", got, unreachableEstimate)
	}
	pops, skipped, stale := h.stats()
	if pops == 0 || skipped != 0 || stale != 0 {
		t.Fatalf("stats pops=%d skipped=%d stale=%d", pops, skipped, stale)
	}
}

func TestRegionHeuristicUnreachable(t *testing.T) {
	g := newStripGrid()
	h := newTestHeuristic(g, SingleCell(Cell{X: 1, Z: 1}), Cell{X: 14, Z: 1}, false)
	if got := h.estimate(2*16 + 14); got != unreachableEstimate {
		t.Fatalf("sealed region estimate = %d, want %d", got, unreachableEstimate)
	}
}

func TestRegionHeuristicSkipsInvalidRegions(t *testing.T) {
	g := newStripGrid()
	g.regions[1].Invalid = true
	h := newTestHeuristic(g, SingleCell(Cell{X: 10, Z: 1}), Cell{X: 0, Z: 1}, false)
	idx := 1*16 + 5
	if got, want := h.estimate(idx), h.octileEstimate.estimate(idx); got != want {
		t.Fatalf("invalid region estimate = %d, want octile %d", got, want)
	}
	// region 0 can only be reached through the invalid region
	if got := h.estimate(1*16 + 0); got != unreachableEstimate {
		t.Fatalf("estimate behind invalid region = %d, want %d", got, unreachableEstimate)
	}
	if _, skipped, _ := h.stats(); skipped == 0 {
		t.Fatal("skipped regions were not counted")
	}
}

func TestStrictHeuristicIsLowerBound(t *testing.T) {
	g := newStripGrid()
	dest := SingleCell(Cell{X: 10, Z: 1})
	h := newTestHeuristic(g, dest, Cell{X: 0, Z: 1}, true)
	policy := Policy{}.withDefaults()
	for z := 0; z < 4; z++ {
		for x := 0; x < 8; x++ {
			// the straight route costs at most the octile distance plus the
			// dearest terrain on every step
			dx, dz := abs(dest.MinX-x), abs(dest.MinZ-z)
			bound := policy.octile(dx, dz) + 4*max(dx, dz)
			if got := h.estimate(z*16 + x); got > bound {
				t.Fatalf("strict estimate at (%d,%d) = %d exceeds %d", x, z, got, bound)
			}
		}
	}
}

func TestRegionCostSamplingIsDeterministic(t *testing.T) {
	g := newStripGrid()
	rc := newRegionCoster(g, 12)
	rc.reset(false)
	r := g.regions[1]
	first := rc.cost(r)
	rc.reset(false)
	if second := rc.cost(r); second != first {
		t.Fatalf("sampled cost changed between searches: %d then %d", first, second)
	}
	if first < 0 || first > 4 {
		t.Fatalf("sampled cost %d outside the terrain range", first)
	}
	rc.reset(true)
	if got := rc.cost(r); got != 0 {
		t.Fatalf("exact minimum = %d, want 0", got)
	}
}
