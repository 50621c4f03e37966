package world

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/l1jgo/pathfinder/internal/pathfind"
)

// regionEntry wraps a region for R-tree storage.
type regionEntry struct {
	region *pathfind.Region
	bbox   rtreego.Rect
}

func (e *regionEntry) Bounds() rtreego.Rect { return e.bbox }

// cellBox covers the cells of r as unit squares.
func cellBox(r pathfind.Rect) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{float64(r.MinX), float64(r.MinZ)},
		[]float64{float64(r.Width()), float64(r.Height())},
	)
}

func (m *Map) buildIndex() {
	m.tree = rtreego.NewTree(2, 25, 50)
	for _, r := range m.regions {
		bbox, err := cellBox(r.Bounds)
		if err != nil {
			continue
		}
		m.tree.Insert(&regionEntry{region: r, bbox: bbox})
	}
}

// RegionsIntersecting returns the regions whose bounds overlap rect, ordered by id.
func (m *Map) RegionsIntersecting(rect pathfind.Rect) []*pathfind.Region {
	if m.tree == nil || rect.Empty() {
		return nil
	}
	bbox, err := cellBox(rect)
	if err != nil {
		return nil
	}
	hits := m.tree.SearchIntersect(bbox)
	out := make([]*pathfind.Region, 0, len(hits))
	for _, h := range hits {
		r := h.(*regionEntry).region
		// touching unit squares count as intersecting in the tree
		if r.Bounds.Intersects(rect) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
