package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/world"
)

// MapInfo holds metadata for a single map, loaded from map_list.yaml.
// Coordinates in the file are map coordinates; cell (0,0) is (StartX, StartY).
type MapInfo struct {
	MapID         int16           `yaml:"map_id"`
	Name          string          `yaml:"name"`
	StartX        int32           `yaml:"start_x"`
	EndX          int32           `yaml:"end_x"`
	StartY        int32           `yaml:"start_y"`
	EndY          int32           `yaml:"end_y"`
	TileFormat    string          `yaml:"tile_format"` // "cost" (default) or "l1j"
	WallHitPoints int             `yaml:"wall_hit_points"`
	Doors         []DoorInfo      `yaml:"doors"`
	Structures    []StructureInfo `yaml:"structures"`
	DangerZones   []ZoneInfo      `yaml:"danger_zones"`
	Areas         []AreaInfo      `yaml:"areas"`
}

type DoorInfo struct {
	X         int32 `yaml:"x"`
	Y         int32 `yaml:"y"`
	OpenCost  int   `yaml:"open_cost"`
	Open      bool  `yaml:"open"`
	Locked    bool  `yaml:"locked"`
	Forbidden bool  `yaml:"forbidden"`
	HitPoints int   `yaml:"hit_points"`
}

type StructureInfo struct {
	X        int32 `yaml:"x"`
	Y        int32 `yaml:"y"`
	PathCost int   `yaml:"path_cost"`
}

type ZoneInfo struct {
	StartX int32  `yaml:"start_x"`
	EndX   int32  `yaml:"end_x"`
	StartY int32  `yaml:"start_y"`
	EndY   int32  `yaml:"end_y"`
	Danger string `yaml:"danger"`
}

// AreaInfo is a named allowed area made of one or more polygons.
// Each polygon is a list of [x, y] vertices; holes follow the outer ring.
type AreaInfo struct {
	Name     string           `yaml:"name"`
	Polygons [][][][2]float64 `yaml:"polygons"`
}

func (m *MapInfo) Width() int  { return int(m.EndX - m.StartX + 1) }
func (m *MapInfo) Height() int { return int(m.EndY - m.StartY + 1) }

// Local converts map coordinates to a grid cell.
func (m *MapInfo) Local(x, y int32) pathfind.Cell {
	return pathfind.Cell{X: int(x - m.StartX), Z: int(y - m.StartY)}
}

// IsInMap checks if map coordinates are within the map bounds.
func (m *MapInfo) IsInMap(x, y int32) bool {
	return m.StartX <= x && x <= m.EndX && m.StartY <= y && y <= m.EndY
}

// mapEntry stores the navigation grid + metadata for one map.
type mapEntry struct {
	info  MapInfo
	grid  *world.Map
	areas map[string][]bool
}

// MapDataTable provides navigation grids and metadata lookups.
type MapDataTable struct {
	maps map[int16]*mapEntry
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapData loads map metadata from YAML and terrain from text files.
// yamlPath: path to map_list.yaml
// tileDir: directory containing {mapid}.txt tile files
func LoadMapData(yamlPath, tileDir string) (*MapDataTable, error) {
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	table := &MapDataTable{
		maps: make(map[int16]*mapEntry, len(file.Maps)),
	}

	for _, info := range file.Maps {
		width, height := info.Width(), info.Height()
		if width <= 0 || height <= 0 {
			continue
		}

		grid, err := loadTileFile(tileDir, &info)
		if os.IsNotExist(err) {
			// Map file missing is non-fatal, the map is just not navigable
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("map %d: %w", info.MapID, err)
		}
		if err := placeObjects(grid, &info); err != nil {
			return nil, fmt.Errorf("map %d: %w", info.MapID, err)
		}
		grid.Rebuild()

		areas := make(map[string][]bool, len(info.Areas))
		for _, a := range info.Areas {
			areas[a.Name] = RasterizeArea(&info, a)
		}
		table.maps[info.MapID] = &mapEntry{info: info, grid: grid, areas: areas}
	}

	return table, nil
}

// loadTileFile reads a CSV tile file: each line is a row of comma-separated values.
// File rows = Y lines, columns = X values.
func loadTileFile(dir string, info *MapInfo) (*world.Map, error) {
	path := filepath.Join(dir, strconv.Itoa(int(info.MapID))+".txt")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l1j := strings.EqualFold(info.TileFormat, "l1j")
	xSize, ySize := info.Width(), info.Height()
	grid := world.New(xSize, ySize)

	scanner := bufio.NewScanner(f)
	// Increase scanner buffer for large maps (map 4 is 1856 wide × 2 chars ≈ 5KB per line)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	y := 0
	for scanner.Scan() && y < ySize {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		x := 0
		for _, tok := range strings.Split(line, ",") {
			if x >= xSize {
				break
			}
			val, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %d: %w", path, y+1, x+1, err)
			}
			if l1j {
				t := TerrainFromTile(byte(val))
				if t.Wall {
					grid.SetWall(x, y, info.WallHitPoints)
				} else {
					grid.SetTerrain(x, y, t.Cost)
					grid.SetDanger(x, y, t.Danger)
				}
			} else if val < 0 {
				grid.SetWall(x, y, info.WallHitPoints)
			} else {
				grid.SetTerrain(x, y, int(val))
			}
			x++
		}
		y++
	}

	return grid, scanner.Err()
}

func placeObjects(grid *world.Map, info *MapInfo) error {
	for _, d := range info.Doors {
		if !info.IsInMap(d.X, d.Y) {
			return fmt.Errorf("door at %d,%d outside the map", d.X, d.Y)
		}
		c := info.Local(d.X, d.Y)
		grid.SetDoor(c.X, c.Z, pathfind.Obstacle{
			OpenCost:  d.OpenCost,
			Open:      d.Open,
			Locked:    d.Locked,
			Forbidden: d.Forbidden,
			HitPoints: d.HitPoints,
		})
	}
	for _, s := range info.Structures {
		if !info.IsInMap(s.X, s.Y) {
			return fmt.Errorf("structure at %d,%d outside the map", s.X, s.Y)
		}
		c := info.Local(s.X, s.Y)
		grid.SetStructure(c.X, c.Z, s.PathCost)
	}
	for _, z := range info.DangerZones {
		level, err := pathfind.ParseDanger(z.Danger)
		if err != nil {
			return err
		}
		for y := max(z.StartY, info.StartY); y <= min(z.EndY, info.EndY); y++ {
			for x := max(z.StartX, info.StartX); x <= min(z.EndX, info.EndX); x++ {
				c := info.Local(x, y)
				grid.SetDanger(c.X, c.Z, level)
			}
		}
	}
	return nil
}

// Count returns the number of maps loaded with tile data.
func (t *MapDataTable) Count() int {
	return len(t.maps)
}

// IDs returns the loaded map ids in ascending order.
func (t *MapDataTable) IDs() []int16 {
	ids := make([]int16, 0, len(t.maps))
	for id := range t.maps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetInfo returns metadata for a map, or nil if not found.
func (t *MapDataTable) GetInfo(mapID int16) *MapInfo {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return &e.info
}

// Grid returns the navigation grid of a map, or nil if not found.
func (t *MapDataTable) Grid(mapID int16) *world.Map {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return e.grid
}

// Area returns the allowed mask of a named area, or nil if the map has no such area.
func (t *MapDataTable) Area(mapID int16, name string) []bool {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return e.areas[name]
}
