package pathfind

// Cell is a grid coordinate. X grows east, Z grows north.
type Cell struct {
	X, Z int
}

// Rect is an inclusive rectangle of cells.
type Rect struct {
	MinX, MinZ int
	MaxX, MaxZ int
}

// SingleCell returns the 1×1 rect holding c.
func SingleCell(c Cell) Rect {
	return Rect{MinX: c.X, MinZ: c.Z, MaxX: c.X, MaxZ: c.Z}
}

func (r Rect) Width() int  { return r.MaxX - r.MinX + 1 }
func (r Rect) Height() int { return r.MaxZ - r.MinZ + 1 }

// Empty reports whether the rect holds no cells.
func (r Rect) Empty() bool { return r.MaxX < r.MinX || r.MaxZ < r.MinZ }

func (r Rect) Contains(c Cell) bool {
	return c.X >= r.MinX && c.X <= r.MaxX && c.Z >= r.MinZ && c.Z <= r.MaxZ
}

// Center returns the centre cell, rounding toward the min corner.
func (r Rect) Center() Cell {
	return Cell{X: r.MinX + (r.MaxX-r.MinX)/2, Z: r.MinZ + (r.MaxZ-r.MinZ)/2}
}

// ExpandedBy grows the rect by n cells on every side.
func (r Rect) ExpandedBy(n int) Rect {
	return Rect{MinX: r.MinX - n, MinZ: r.MinZ - n, MaxX: r.MaxX + n, MaxZ: r.MaxZ + n}
}

// Intersects reports whether the two rects share at least one cell.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX && r.MinZ <= o.MaxZ && o.MinZ <= r.MaxZ
}

// ClipTo clips the rect to a width×height grid. ok is false when nothing is left.
func (r Rect) ClipTo(width, height int) (clipped Rect, ok bool) {
	clipped = Rect{
		MinX: max(r.MinX, 0),
		MinZ: max(r.MinZ, 0),
		MaxX: min(r.MaxX, width-1),
		MaxZ: min(r.MaxZ, height-1),
	}
	return clipped, !clipped.Empty()
}

// GapTo returns the per-axis distance from c to the nearest cell of r.
func (r Rect) GapTo(c Cell) (dx, dz int) {
	return axisGap(r.MinX, r.MaxX, c.X, c.X), axisGap(r.MinZ, r.MaxZ, c.Z, c.Z)
}

// Gap returns the per-axis distance between the nearest cells of r and o.
func (r Rect) Gap(o Rect) (dx, dz int) {
	return axisGap(r.MinX, r.MaxX, o.MinX, o.MaxX), axisGap(r.MinZ, r.MaxZ, o.MinZ, o.MaxZ)
}

func axisGap(lo1, hi1, lo2, hi2 int) int {
	switch {
	case hi1 < lo2:
		return lo2 - hi1
	case hi2 < lo1:
		return lo1 - hi2
	}
	return 0
}

// Grid is the host world a Finder searches. Cells are addressed by index z*width+x.
type Grid interface {
	Size() (width, height int)
	Walkable(idx int) bool
	TerrainCost(idx int) int
	// ObstacleAt returns nil when the cell holds no obstacle.
	ObstacleAt(idx int) *Obstacle
	// RegionAt returns nil for cells outside every region.
	RegionAt(idx int) *Region
}

// RegionIndex is implemented by grids that can look regions up by area.
type RegionIndex interface {
	RegionsIntersecting(r Rect) []*Region
}

// DangerGrid is implemented by grids that carry a per-cell danger level.
type DangerGrid interface {
	DangerAt(idx int) Danger
}

// neighbour offsets: 4 cardinal, then 4 diagonal.
var (
	dirX = [8]int{0, 1, 0, -1, 1, 1, -1, -1}
	dirZ = [8]int{-1, 0, 1, 0, -1, 1, 1, -1}
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
