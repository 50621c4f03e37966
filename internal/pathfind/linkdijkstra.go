package pathfind

import "container/heap"

// linkEntry is a tentative distance from a link to the destination. from is the
// region the link was reached through.
type linkEntry struct {
	from     *Region
	link     *Link
	cost     int
	priority int
}

type linkQueue []linkEntry

func (q linkQueue) Len() int { return len(q) }
func (q linkQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].cost < q[j].cost
}
func (q linkQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *linkQueue) Push(x any)   { *q = append(*q, x.(linkEntry)) }
func (q *linkQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// settledLinks holds the first two links that settled a region.
type settledLinks struct {
	best, second *Link
}

// linkDijkstra searches the coarse graph of region links backwards from the
// destination. In default mode it is ordered toward the start cell and runs
// only as far as queries need. In strict mode it is a plain undirected
// Dijkstra over lower-bound costs and runs to completion.
type linkDijkstra struct {
	queue   linkQueue
	dist    map[*Link]int
	settled map[*Region]*settledLinks
	costs   *regionCoster
	eval    *Evaluator
	policy  *Policy
	start   Cell
	strict  bool
	done    bool

	pops       int
	staleBelow int
	skipped    int
}

func newLinkDijkstra(roots []*Region, dest Rect, start Cell, costs *regionCoster, eval *Evaluator, strict bool) *linkDijkstra {
	d := &linkDijkstra{
		dist:    make(map[*Link]int),
		settled: make(map[*Region]*settledLinks),
		costs:   costs,
		eval:    eval,
		policy:  eval.policy,
		start:   start,
		strict:  strict,
	}
	for _, r := range roots {
		for _, l := range r.Links {
			d.offer(r, l, d.seedCost(dest, r, l))
		}
	}
	return d
}

func (d *linkDijkstra) seedCost(dest Rect, root *Region, l *Link) int {
	if d.strict {
		return d.policy.octile(dest.Gap(l.Bounds.ExpandedBy(1)))
	}
	dx, dz := dest.GapTo(l.Span.Center())
	return d.policy.octile(dx, dz) + d.costs.cost(root)*max(dx, dz)
}

// remaining orders the queue toward the start cell.
func (d *linkDijkstra) remaining(l *Link) int {
	if d.strict {
		return 0
	}
	c := l.Span.Center()
	return d.policy.octile(abs(c.X-d.start.X), abs(c.Z-d.start.Z))
}

func (d *linkDijkstra) offer(from *Region, l *Link, cost int) {
	if old, ok := d.dist[l]; ok && cost >= old {
		return
	}
	d.dist[l] = cost
	heap.Push(&d.queue, linkEntry{from: from, link: l, cost: cost, priority: cost + d.remaining(l)})
}

// crossCost is the estimated cost of walking through r from one link to another.
func (d *linkDijkstra) crossCost(r *Region, from, to *Link) int {
	var dx, dz int
	if d.strict {
		dx, dz = from.Bounds.ExpandedBy(1).Gap(to.Bounds.ExpandedBy(1))
	} else {
		a, b := from.Span.Center(), to.Span.Center()
		dx, dz = abs(a.X-b.X), abs(a.Z-b.Z)
	}
	return d.policy.octile(dx, dz) + d.costs.cost(r)*max(dx, dz)
}

// expand relaxes every other link of r, reached through via at cost.
func (d *linkDijkstra) expand(r *Region, via *Link, cost int) {
	portal := 0
	if r.Portal != nil {
		pc, ok := d.eval.portalCost(r.Portal)
		if !ok {
			return
		}
		portal = pc
	}
	for _, next := range r.Links {
		if next == via || !next.Other(r).usable() {
			continue
		}
		d.offer(r, next, cost+d.crossCost(r, via, next)+portal)
	}
}

// step pops one entry. It returns false once the queue is empty.
func (d *linkDijkstra) step() bool {
	if d.queue.Len() == 0 {
		d.done = true
		return false
	}
	e := heap.Pop(&d.queue).(linkEntry)
	d.pops++
	if known := d.dist[e.link]; e.cost != known {
		if e.cost < known {
			d.staleBelow++
		}
		return true
	}
	if d.strict {
		for _, side := range [2]*Region{e.link.A, e.link.B} {
			if side.usable() {
				d.expand(side, e.link, e.cost)
			}
		}
		return true
	}
	into := e.link.Other(e.from)
	if !into.usable() {
		d.skipped++
		return true
	}
	d.settle(into, e.link)
	d.expand(into, e.link, e.cost)
	return true
}

func (d *linkDijkstra) settle(r *Region, l *Link) {
	s := d.settled[r]
	switch {
	case s == nil:
		d.settled[r] = &settledLinks{best: l}
	case s.second == nil && s.best != l:
		s.second = l
	}
}

func (d *linkDijkstra) runToEnd() {
	for !d.done {
		d.step()
	}
}

// regionLinks advances the search until r is settled and returns its best link
// and a second candidate. best is nil when r cannot reach the destination.
func (d *linkDijkstra) regionLinks(r *Region) (best, second *Link) {
	for d.settled[r] == nil && d.step() {
	}
	s := d.settled[r]
	if s == nil {
		return nil, nil
	}
	if s.second != nil {
		return s.best, s.second
	}
	bestDist := -1
	for _, l := range r.Links {
		if l == s.best {
			continue
		}
		if c, ok := d.dist[l]; ok && (bestDist < 0 || c < bestDist) {
			second, bestDist = l, c
		}
	}
	return s.best, second
}
