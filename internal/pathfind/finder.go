package pathfind

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const DefaultClosedCellLimit = 160000

// HeuristicMode picks the estimate used by the search.
type HeuristicMode uint8

const (
	HeuristicRegion HeuristicMode = iota
	HeuristicOctile
)

func (h HeuristicMode) String() string {
	if h == HeuristicOctile {
		return "octile"
	}
	return "region"
}

// Options configure a Finder. The zero value is the production setup.
type Options struct {
	Heuristic       HeuristicMode
	ClosedCellLimit int

	DisableBPMX             bool
	DisableWeighting        bool
	DisableReopenHysteresis bool

	// StrictLowerBound makes the region heuristic admissible at the price of
	// running the coarse search to completion.
	StrictLowerBound bool

	RegionCostSamples int

	// Obstacles prices doors, walls and structures. Nil means StandardObstacles.
	Obstacles ObstacleCoster
}

// EndMode decides when the destination counts as reached.
type EndMode uint8

const (
	EndModeOnCell EndMode = iota // stand on a cell of the rect
	EndModeTouch                 // stand on or next to the rect
)

type Request struct {
	Start   Cell
	Dest    Rect
	EndMode EndMode
	Policy  Policy
}

// Stats describe the work done by one search.
type Stats struct {
	Heuristic      HeuristicMode
	Popped         int
	Opened         int
	Reopened       int
	Closed         int
	RegionPops     int
	SkippedRegions int
	// StaleLinksBelow counts coarse entries found cheaper than their link's
	// recorded distance. It stays zero while the coarse search is consistent.
	StaleLinksBelow int
}

type Path struct {
	Cells []Cell
	Cost  int
	Stats Stats
}

// Finder runs searches over one grid. It reuses its buffers between calls
// and must not be used from more than one goroutine at a time.
type Finder struct {
	grid          Grid
	width, height int
	opts          Options
	log           *zap.Logger

	nodes        []nodeState
	open         *openList
	statusOpen   uint16
	statusClosed uint16

	costs *regionCoster
	stats Stats
}

func NewFinder(grid Grid, opts Options, log *zap.Logger) *Finder {
	if opts.ClosedCellLimit <= 0 {
		opts.ClosedCellLimit = DefaultClosedCellLimit
	}
	if opts.Obstacles == nil {
		opts.Obstacles = StandardObstacles{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	w, h := grid.Size()
	return &Finder{
		grid:         grid,
		width:        w,
		height:       h,
		opts:         opts,
		log:          log,
		nodes:        make([]nodeState, w*h),
		open:         newOpenList(w * h),
		statusOpen:   1,
		statusClosed: 2,
		costs:        newRegionCoster(grid, opts.RegionCostSamples),
	}
}

// LastStats returns the counters of the most recent search.
func (f *Finder) LastStats() Stats { return f.stats }

func (f *Finder) Options() Options { return f.opts }

// search holds everything that lives for one FindPath call.
type search struct {
	eval       *Evaluator
	policy     *Policy
	dest       Rect
	heur       estimator
	region     *regionHeuristic
	regionMode bool
	bpmx       bool
	weights    curve
	neigh      [8]int
}

// FindPath searches from req.Start to req.Dest.
func (f *Finder) FindPath(req Request) (*Path, error) {
	policy := req.Policy.withDefaults()
	if err := policy.validate(f.width * f.height); err != nil {
		return nil, err
	}
	start := req.Start
	if start.X < 0 || start.Z < 0 || start.X >= f.width || start.Z >= f.height {
		return nil, fmt.Errorf("%w: %v outside %dx%d grid", ErrInvalidStart, start, f.width, f.height)
	}
	if req.Dest.Empty() {
		return nil, fmt.Errorf("%w: empty rect %+v", ErrInvalidDestination, req.Dest)
	}
	dest := req.Dest
	if req.EndMode == EndModeTouch {
		dest = dest.ExpandedBy(1)
	}
	dest, ok := dest.ClipTo(f.width, f.height)
	if !ok {
		return nil, fmt.Errorf("%w: %+v outside %dx%d grid", ErrInvalidDestination, req.Dest, f.width, f.height)
	}

	f.stats = Stats{}
	f.nextGeneration()
	f.open.Clear()

	s := f.newSearch(&policy, dest, start)
	path, err := f.run(s, start)
	if s.region != nil {
		f.stats.RegionPops, f.stats.SkippedRegions, f.stats.StaleLinksBelow = s.region.stats()
	}
	if path != nil {
		path.Stats = f.stats
	}
	return path, err
}

func (f *Finder) newSearch(policy *Policy, dest Rect, start Cell) *search {
	s := &search{
		eval:   NewEvaluator(f.grid, policy, f.opts.Obstacles),
		policy: policy,
		dest:   dest,
	}
	octile := &octileEstimate{dest: dest, policy: policy, width: f.width}
	s.heur = octile
	f.stats.Heuristic = HeuristicOctile

	if f.opts.Heuristic != HeuristicRegion || policy.Mode == ModePassAnything {
		return s
	}
	roots := f.destinationRegions(dest)
	if len(roots) == 0 {
		f.log.Warn("no region at destination, using octile estimate",
			zap.Any("dest", dest), zap.Any("start", start))
		return s
	}
	strict := f.opts.StrictLowerBound
	f.costs.reset(strict)
	s.region = newRegionHeuristic(f.grid, s.eval, f.costs, roots, dest, start, strict)
	s.heur = s.region
	s.regionMode = true
	s.bpmx = !f.opts.DisableBPMX
	f.stats.Heuristic = HeuristicRegion
	if !f.opts.DisableWeighting {
		s.weights = newWeightCurve(s.region.estimate(f.index(start)))
	}
	return s
}

// destinationRegions returns the usable regions under dest, or failing that
// the regions around it.
func (f *Finder) destinationRegions(dest Rect) []*Region {
	seen := make(map[*Region]bool)
	var roots []*Region
	add := func(r *Region) {
		if r.usable() && !seen[r] {
			seen[r] = true
			roots = append(roots, r)
		}
	}
	for z := dest.MinZ; z <= dest.MaxZ; z++ {
		for x := dest.MinX; x <= dest.MaxX; x++ {
			add(f.grid.RegionAt(z*f.width + x))
		}
	}
	if len(roots) == 0 {
		if idx, ok := f.grid.(RegionIndex); ok {
			for _, r := range idx.RegionsIntersecting(dest.ExpandedBy(1)) {
				add(r)
			}
		}
	}
	sortRegions(roots)
	return roots
}

func sortRegions(rs []*Region) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}

func (f *Finder) index(c Cell) int { return c.Z*f.width + c.X }

func (f *Finder) cell(idx int) Cell { return Cell{X: idx % f.width, Z: idx / f.width} }

func (f *Finder) run(s *search, start Cell) (*Path, error) {
	si := f.index(start)
	n := &f.nodes[si]
	*n = nodeState{parent: int32(si), status: f.statusOpen}
	f.open.Push(costNode{index: int32(si)})

	for {
		top, ok := f.open.Pop()
		if !ok {
			return nil, ErrNotFound
		}
		f.stats.Popped++
		cur := int(top.index)
		cn := &f.nodes[cur]
		if cn.status == f.statusClosed {
			continue
		}
		c := f.cell(cur)
		if s.dest.Contains(c) {
			return f.finalize(s, cur), nil
		}
		if f.stats.Closed > f.opts.ClosedCellLimit {
			f.log.Warn("closed cell limit reached",
				zap.Any("start", start), zap.Any("dest", s.dest),
				zap.Int("closed", f.stats.Closed), zap.Stringer("heuristic", f.stats.Heuristic))
			return nil, ErrSearchExhausted
		}
		f.expand(s, cur, c)
		cn.status = f.statusClosed
		f.stats.Closed++
	}
}

// expand relaxes the neighbours of the popped cell cur.
func (f *Finder) expand(s *search, cur int, c Cell) {
	open, closed := f.statusOpen, f.statusClosed
	for i := 0; i < 8; i++ {
		s.neigh[i] = -1
		nx, nz := c.X+dirX[i], c.Z+dirZ[i]
		if nx < 0 || nz < 0 || nx >= f.width || nz >= f.height {
			continue
		}
		if i > 3 && (!s.eval.walkable(nx, c.Z) || !s.eval.walkable(c.X, nz)) {
			continue
		}
		ni := nz*f.width + nx
		nn := &f.nodes[ni]
		if nn.status != open && nn.status != closed {
			edge := s.eval.EdgeCost(ni)
			if edge >= Impassable {
				continue
			}
			h := s.heur.estimate(ni)
			nn.edgeCost = int32(edge)
			nn.heuristicCost = h
			nn.originalHeuristic = h
		}
		s.neigh[i] = ni
	}

	cn := &f.nodes[cur]
	bestH := cn.heuristicCost
	if s.bpmx {
		for i, ni := range s.neigh {
			if ni < 0 {
				continue
			}
			nn := &f.nodes[ni]
			if v := nn.heuristicCost - s.eval.stepCost(int(nn.edgeCost), i > 3); v > bestH {
				bestH = v
			}
		}
		cn.heuristicCost = bestH
	}

	for i, ni := range s.neigh {
		if ni < 0 {
			continue
		}
		nn := &f.nodes[ni]
		if nn.status == closed && !s.regionMode {
			continue
		}
		step := s.eval.stepCost(int(nn.edgeCost), i > 3)
		g := cn.knownCost + step
		nodeH := nn.heuristicCost
		if s.bpmx && bestH-step > nodeH {
			nodeH = bestH - step
		}
		if nn.status == open || nn.status == closed {
			grew := false
			margin := 0
			if nn.status == open {
				grew = nodeH > nn.heuristicCost
			} else {
				margin = f.reopenMargin(s, ni)
			}
			nn.heuristicCost = nodeH
			if g+margin >= nn.knownCost {
				if grew {
					f.open.PushOrUpdate(s.entry(ni, nn))
				}
				continue
			}
			if nn.status == closed {
				f.stats.Reopened++
			}
		}
		nn.parent = int32(cur)
		nn.knownCost = g
		nn.heuristicCost = nodeH
		nn.status = open
		f.open.PushOrUpdate(s.entry(ni, nn))
		f.stats.Opened++
	}
}

func (f *Finder) reopenMargin(s *search, idx int) int {
	if f.opts.DisableReopenHysteresis {
		return 0
	}
	if !s.policy.allowedAt(idx) {
		return s.policy.MoveCardinal * areaPenaltyFactor
	}
	return s.policy.MoveCardinal
}

func (s *search) entry(idx int, n *nodeState) costNode {
	return costNode{
		index: int32(idx),
		cost:  n.knownCost + s.weights.weigh(n.heuristicCost),
		tie:   n.knownCost + n.originalHeuristic,
	}
}

// finalize walks parent links back to the start. The cost is summed over the
// returned cells: a closed cell keeps its old g when an ancestor is reopened
// cheaper, so knownCost of the goal can overstate the route.
func (f *Finder) finalize(s *search, goal int) *Path {
	cells := make([]Cell, 0, 32)
	cost := 0
	for idx, steps := goal, 0; steps <= len(f.nodes); steps++ {
		c := f.cell(idx)
		cells = append(cells, c)
		p := int(f.nodes[idx].parent)
		if p == idx {
			break
		}
		pc := f.cell(p)
		cost += s.eval.stepCost(int(f.nodes[idx].edgeCost), pc.X != c.X && pc.Z != c.Z)
		idx = p
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return &Path{Cells: cells, Cost: cost}
}
