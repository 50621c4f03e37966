package pathfind

import (
	"math/rand"
	"sort"
)

const DefaultRegionCostSamples = 12

// regionCoster estimates the per-cell terrain cost inside a region.
// Results are memoised until reset is called at the start of the next search.
type regionCoster struct {
	grid    Grid
	width   int
	samples int
	exact   bool
	memo    map[*Region]int
	buf     []int
}

func newRegionCoster(grid Grid, samples int) *regionCoster {
	if samples <= 0 {
		samples = DefaultRegionCostSamples
	}
	w, _ := grid.Size()
	return &regionCoster{
		grid:    grid,
		width:   w,
		samples: samples,
		memo:    make(map[*Region]int),
		buf:     make([]int, 0, samples),
	}
}

func (rc *regionCoster) reset(exact bool) {
	clear(rc.memo)
	rc.exact = exact
}

func (rc *regionCoster) cost(r *Region) int {
	if c, ok := rc.memo[r]; ok {
		return c
	}
	var c int
	if rc.exact {
		c = rc.minimum(r)
	} else {
		c = rc.sample(r)
	}
	rc.memo[r] = c
	return c
}

func regionSeed(id int) int64 {
	return int64(id)*2654435761 + 0x5bd1e995
}

// sample draws member cells at random and returns the value just below the middle.
func (rc *regionCoster) sample(r *Region) int {
	b := r.Bounds
	if b.Empty() {
		return 0
	}
	rng := rand.New(rand.NewSource(regionSeed(r.ID)))
	vals := rc.buf[:0]
	for tries := 0; len(vals) < rc.samples && tries < rc.samples*8; tries++ {
		x := b.MinX + rng.Intn(b.Width())
		z := b.MinZ + rng.Intn(b.Height())
		idx := z*rc.width + x
		if rc.grid.RegionAt(idx) != r {
			continue
		}
		vals = append(vals, rc.grid.TerrainCost(idx))
	}
	rc.buf = vals
	if len(vals) == 0 {
		return 0
	}
	sort.Ints(vals)
	return vals[max(len(vals)/2-1, 0)]
}

func (rc *regionCoster) minimum(r *Region) int {
	best := -1
	b := r.Bounds
	for z := b.MinZ; z <= b.MaxZ; z++ {
		for x := b.MinX; x <= b.MaxX; x++ {
			idx := z*rc.width + x
			if rc.grid.RegionAt(idx) != r {
				continue
			}
			if c := rc.grid.TerrainCost(idx); best < 0 || c < best {
				best = c
			}
		}
	}
	return clamp(best, 0, Impassable-1)
}
