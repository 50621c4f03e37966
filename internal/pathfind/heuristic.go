package pathfind

const (
	unreachableEstimate = 1000000

	// regions narrower than this use only their best link
	secondLinkMinExtent = 4
)

type estimator interface {
	estimate(idx int) int
}

// octileEstimate is the admissible straight-line estimate to the destination rect.
type octileEstimate struct {
	dest   Rect
	policy *Policy
	width  int
}

func (o *octileEstimate) estimate(idx int) int {
	dx, dz := o.dest.GapTo(Cell{X: idx % o.width, Z: idx / o.width})
	return o.policy.octile(dx, dz)
}

// regionHeuristic estimates the remaining cost through the region graph.
// The coarse search is started on the first query that needs it.
type regionHeuristic struct {
	octileEstimate
	grid   Grid
	eval   *Evaluator
	costs  *regionCoster
	roots  map[*Region]bool
	start  Cell
	strict bool

	links *linkDijkstra

	last         *Region
	best, second *Link

	skipped int
}

func newRegionHeuristic(grid Grid, eval *Evaluator, costs *regionCoster, roots []*Region, dest Rect, start Cell, strict bool) *regionHeuristic {
	w, _ := grid.Size()
	h := &regionHeuristic{
		octileEstimate: octileEstimate{dest: dest, policy: eval.policy, width: w},
		grid:           grid,
		eval:           eval,
		costs:          costs,
		roots:          make(map[*Region]bool, len(roots)),
		start:          start,
		strict:         strict,
	}
	for _, r := range roots {
		h.roots[r] = true
	}
	return h
}

func (h *regionHeuristic) estimate(idx int) int {
	r := h.grid.RegionAt(idx)
	if !r.usable() {
		h.skipped++
		return h.octileEstimate.estimate(idx)
	}
	if h.roots[r] {
		return h.octileEstimate.estimate(idx)
	}
	if h.links == nil {
		roots := make([]*Region, 0, len(h.roots))
		for root := range h.roots {
			roots = append(roots, root)
		}
		sortRegions(roots)
		h.links = newLinkDijkstra(roots, h.dest, h.start, h.costs, h.eval, h.strict)
	}
	c := Cell{X: idx % h.width, Z: idx / h.width}
	if h.strict {
		return h.strictEstimate(r, c)
	}
	if r != h.last {
		h.best, h.second = h.links.regionLinks(r)
		h.last = r
	}
	if h.best == nil {
		return unreachableEstimate
	}
	rc := h.costs.cost(r)
	est := h.links.dist[h.best] + h.toLink(c, h.best, rc)
	if h.second != nil && (r.Bounds.Width() >= secondLinkMinExtent || r.Bounds.Height() >= secondLinkMinExtent) {
		est = min(est, h.links.dist[h.second]+h.toLink(c, h.second, rc))
	}
	return est
}

func (h *regionHeuristic) toLink(c Cell, l *Link, regionCost int) int {
	p := l.Span.Closest(c)
	dx, dz := abs(p.X-c.X), abs(p.Z-c.Z)
	return h.policy.octile(dx, dz) + regionCost*max(dx, dz)
}

// strictEstimate never overestimates: every term is a lower bound on the
// matching part of any real path.
func (h *regionHeuristic) strictEstimate(r *Region, c Cell) int {
	h.links.runToEnd()
	rc := h.costs.cost(r)
	best := unreachableEstimate
	for _, l := range r.Links {
		d, ok := h.links.dist[l]
		if !ok {
			continue
		}
		dx, dz := l.Bounds.ExpandedBy(1).GapTo(c)
		best = min(best, d+h.policy.octile(dx, dz)+rc*max(dx, dz))
	}
	return best
}

func (h *regionHeuristic) stats() (pops, skipped, staleBelow int) {
	if h.links != nil {
		pops, staleBelow = h.links.pops, h.links.staleBelow
		skipped = h.links.skipped
	}
	return pops, skipped + h.skipped, staleBelow
}
