package world

import (
	"github.com/l1jgo/pathfinder/internal/pathfind"
)

// Regions never cross chunk borders, so a local edit only disturbs the
// regions of one chunk.
const ChunkSize = 12

type chunkKey struct {
	cx, cz int
}

func chunkOf(x, z int) chunkKey {
	return chunkKey{cx: x / ChunkSize, cz: z / ChunkSize}
}

// Rebuild recomputes regions, links and the region index.
func (m *Map) Rebuild() {
	clear(m.regionAt)
	m.regions = m.regions[:0]

	var queue []int
	for z := 0; z < m.height; z++ {
		for x := 0; x < m.width; x++ {
			idx := m.Index(x, z)
			if m.regionAt[idx] != nil || !m.Walkable(idx) {
				continue
			}
			r := &pathfind.Region{ID: len(m.regions), Bounds: pathfind.SingleCell(pathfind.Cell{X: x, Z: z})}
			m.regions = append(m.regions, r)
			m.regionAt[idx] = r
			if ob := m.obstacles[idx]; ob != nil && ob.Kind == pathfind.ObstacleDoor {
				r.Portal = ob
				continue
			}
			queue = m.fill(r, x, z, queue[:0])
		}
	}

	m.buildLinks()
	m.buildIndex()
	m.dirty = false
}

// fill floods r over the walkable, non-door cells of its chunk.
func (m *Map) fill(r *pathfind.Region, x, z int, queue []int) []int {
	home := chunkOf(x, z)
	queue = append(queue, m.Index(x, z))
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		cx, cz := idx%m.width, idx/m.width
		for d := 0; d < 4; d++ {
			nx, nz := cx+cardX[d], cz+cardZ[d]
			if !m.InBounds(nx, nz) || chunkOf(nx, nz) != home {
				continue
			}
			ni := m.Index(nx, nz)
			if m.regionAt[ni] != nil || !m.Walkable(ni) {
				continue
			}
			if ob := m.obstacles[ni]; ob != nil && ob.Kind == pathfind.ObstacleDoor {
				continue
			}
			m.regionAt[ni] = r
			grow(&r.Bounds, nx, nz)
			queue = append(queue, ni)
		}
	}
	return queue
}

var (
	cardX = [4]int{0, 1, 0, -1}
	cardZ = [4]int{-1, 0, 1, 0}
)

func grow(b *pathfind.Rect, x, z int) {
	b.MinX = min(b.MinX, x)
	b.MinZ = min(b.MinZ, z)
	b.MaxX = max(b.MaxX, x)
	b.MaxZ = max(b.MaxZ, z)
}

// linkRun accumulates consecutive boundary cells between the same two regions.
type linkRun struct {
	a, b   *pathfind.Region
	span   pathfind.EdgeSpan
	bounds pathfind.Rect
}

func (m *Map) buildLinks() {
	// east-facing boundaries, runs go north
	for x := 0; x+1 < m.width; x++ {
		var run *linkRun
		for z := 0; z < m.height; z++ {
			a, b := m.regionAt[m.Index(x, z)], m.regionAt[m.Index(x+1, z)]
			run = m.extendRun(run, a, b, pathfind.Cell{X: x, Z: z}, pathfind.SpanNorth,
				pathfind.Rect{MinX: x, MinZ: z, MaxX: x + 1, MaxZ: z})
		}
		m.closeRun(run)
	}
	// north-facing boundaries, runs go east
	for z := 0; z+1 < m.height; z++ {
		var run *linkRun
		for x := 0; x < m.width; x++ {
			a, b := m.regionAt[m.Index(x, z)], m.regionAt[m.Index(x, z+1)]
			run = m.extendRun(run, a, b, pathfind.Cell{X: x, Z: z}, pathfind.SpanEast,
				pathfind.Rect{MinX: x, MinZ: z, MaxX: x, MaxZ: z + 1})
		}
		m.closeRun(run)
	}
	m.buildCornerLinks()
}

func (m *Map) extendRun(run *linkRun, a, b *pathfind.Region, at pathfind.Cell, dir pathfind.SpanDir, cells pathfind.Rect) *linkRun {
	if a == nil || b == nil || a == b {
		m.closeRun(run)
		return nil
	}
	if run != nil && run.a == a && run.b == b {
		run.span.Length++
		run.bounds.MaxX = max(run.bounds.MaxX, cells.MaxX)
		run.bounds.MaxZ = max(run.bounds.MaxZ, cells.MaxZ)
		return run
	}
	m.closeRun(run)
	return &linkRun{a: a, b: b, span: pathfind.EdgeSpan{Root: at, Dir: dir, Length: 1}, bounds: cells}
}

func (m *Map) closeRun(run *linkRun) {
	if run == nil {
		return
	}
	m.addLink(&pathfind.Link{Span: run.span, Bounds: run.bounds, A: run.a, B: run.b})
}

func (m *Map) addLink(l *pathfind.Link) {
	l.A.Links = append(l.A.Links, l)
	l.B.Links = append(l.B.Links, l)
}

// buildCornerLinks connects regions that only touch diagonally, where a
// diagonal step between them never crosses a cell of either region.
func (m *Map) buildCornerLinks() {
	for z := 0; z < m.height; z++ {
		for x := 0; x+1 < m.width; x++ {
			for _, dz := range [2]int{-1, 1} {
				nz := z + dz
				if nz < 0 || nz >= m.height {
					continue
				}
				a, b := m.regionAt[m.Index(x, z)], m.regionAt[m.Index(x+1, nz)]
				if a == nil || b == nil || a == b {
					continue
				}
				f1, f2 := m.regionAt[m.Index(x+1, z)], m.regionAt[m.Index(x, nz)]
				if f1 == nil || f2 == nil || f1 == a || f1 == b || f2 == a || f2 == b {
					continue
				}
				m.addLink(&pathfind.Link{
					Span: pathfind.EdgeSpan{Root: pathfind.Cell{X: x, Z: z}, Dir: pathfind.SpanEast, Length: 1},
					Bounds: pathfind.Rect{
						MinX: x, MinZ: min(z, nz),
						MaxX: x + 1, MaxZ: max(z, nz),
					},
					A: a, B: b,
				})
			}
		}
	}
}
