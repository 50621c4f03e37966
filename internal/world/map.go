package world

import (
	"github.com/dhconnelly/rtreego"

	"github.com/l1jgo/pathfinder/internal/pathfind"
)

// Map is a single navigation layer: terrain costs, obstacles, danger and the
// region graph built over them. Setters only touch cell data; call Rebuild
// before searching again. Searches may read a Map concurrently as long as no
// setter or Rebuild runs at the same time.
type Map struct {
	width, height int

	terrain   []int32
	obstacles []*pathfind.Obstacle
	danger    []pathfind.Danger

	regionAt []*pathfind.Region
	regions  []*pathfind.Region
	tree     *rtreego.Rtree
	dirty    bool
}

// New returns an open map of the given size with zero terrain cost.
func New(width, height int) *Map {
	n := width * height
	return &Map{
		width:     width,
		height:    height,
		terrain:   make([]int32, n),
		obstacles: make([]*pathfind.Obstacle, n),
		danger:    make([]pathfind.Danger, n),
		regionAt:  make([]*pathfind.Region, n),
		dirty:     true,
	}
}

func (m *Map) Size() (int, int) { return m.width, m.height }

func (m *Map) InBounds(x, z int) bool {
	return x >= 0 && z >= 0 && x < m.width && z < m.height
}

func (m *Map) Index(x, z int) int { return z*m.width + x }

// Dirty reports whether cell data changed since the last Rebuild.
func (m *Map) Dirty() bool { return m.dirty }

func (m *Map) SetTerrain(x, z, cost int) {
	if !m.InBounds(x, z) {
		return
	}
	m.terrain[m.Index(x, z)] = int32(cost)
	m.dirty = true
}

// SetObstacle places ob on the cell; nil clears it.
func (m *Map) SetObstacle(x, z int, ob *pathfind.Obstacle) {
	if !m.InBounds(x, z) {
		return
	}
	m.obstacles[m.Index(x, z)] = ob
	m.dirty = true
}

// SetWall blocks the cell. hitPoints > 0 makes it bashable in pass-anything mode.
func (m *Map) SetWall(x, z, hitPoints int) {
	m.SetObstacle(x, z, &pathfind.Obstacle{Kind: pathfind.ObstacleWall, HitPoints: hitPoints})
}

func (m *Map) SetDoor(x, z int, door pathfind.Obstacle) {
	door.Kind = pathfind.ObstacleDoor
	m.SetObstacle(x, z, &door)
}

func (m *Map) SetStructure(x, z, pathCost int) {
	m.SetObstacle(x, z, &pathfind.Obstacle{Kind: pathfind.ObstacleStructure, PathCost: pathCost})
}

func (m *Map) SetDanger(x, z int, d pathfind.Danger) {
	if !m.InBounds(x, z) {
		return
	}
	m.danger[m.Index(x, z)] = d
}

// pathfind.Grid

func (m *Map) Walkable(idx int) bool {
	ob := m.obstacles[idx]
	return ob == nil || ob.Kind != pathfind.ObstacleWall
}

func (m *Map) TerrainCost(idx int) int { return int(m.terrain[idx]) }

func (m *Map) ObstacleAt(idx int) *pathfind.Obstacle { return m.obstacles[idx] }

func (m *Map) RegionAt(idx int) *pathfind.Region { return m.regionAt[idx] }

func (m *Map) DangerAt(idx int) pathfind.Danger { return m.danger[idx] }

// Regions returns every region of the last Rebuild, ordered by id.
func (m *Map) Regions() []*pathfind.Region { return m.regions }

// Invalidate marks the region under the cell as stale until the next Rebuild.
func (m *Map) Invalidate(x, z int) {
	if !m.InBounds(x, z) {
		return
	}
	if r := m.regionAt[m.Index(x, z)]; r != nil {
		r.Invalid = true
	}
}
