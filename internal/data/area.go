package data

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// polygons converts the YAML rings of an area into orb polygons.
// Rings with fewer than three vertices are dropped.
func (a AreaInfo) polygons() []orb.Polygon {
	out := make([]orb.Polygon, 0, len(a.Polygons))
	for _, rings := range a.Polygons {
		var poly orb.Polygon
		for _, ring := range rings {
			if len(ring) < 3 {
				continue
			}
			r := make(orb.Ring, 0, len(ring)+1)
			for _, v := range ring {
				r = append(r, orb.Point{v[0], v[1]})
			}
			if !r.Closed() {
				r = append(r, r[0])
			}
			poly = append(poly, r)
		}
		if len(poly) > 0 {
			out = append(out, poly)
		}
	}
	return out
}

// RasterizeArea marks every cell whose centre lies inside one of the area's
// polygons. The mask is indexed like the map's grid.
func RasterizeArea(info *MapInfo, area AreaInfo) []bool {
	w, h := info.Width(), info.Height()
	mask := make([]bool, w*h)
	for _, poly := range area.polygons() {
		b := poly.Bound()
		minX := max(int(math.Floor(b.Min[0]))-int(info.StartX), 0)
		minY := max(int(math.Floor(b.Min[1]))-int(info.StartY), 0)
		maxX := min(int(math.Ceil(b.Max[0]))-int(info.StartX), w-1)
		maxY := min(int(math.Ceil(b.Max[1]))-int(info.StartY), h-1)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				centre := orb.Point{float64(x) + float64(info.StartX) + 0.5, float64(y) + float64(info.StartY) + 0.5}
				if planar.PolygonContains(poly, centre) {
					mask[y*w+x] = true
				}
			}
		}
	}
	return mask
}
