package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/pathfinder/internal/pathfind"
)

const testMapList = `
maps:
  - map_id: 7
    name: yard
    start_x: 100
    end_x: 105
    start_y: 200
    end_y: 203
    wall_hit_points: 300
    doors:
      - {x: 103, y: 201, open_cost: 20}
    structures:
      - {x: 101, y: 203, path_cost: 800}
    danger_zones:
      - {start_x: 104, end_x: 105, start_y: 200, end_y: 200, danger: deadly}
    areas:
      - name: west
        polygons:
          - [[[100, 200], [103, 200], [103, 204], [100, 204]]]
  - map_id: 8
    name: legacy
    start_x: 0
    end_x: 2
    start_y: 0
    end_y: 1
    tile_format: l1j
  - map_id: 9
    name: missing tiles
    start_x: 0
    end_x: 1
    start_y: 0
    end_y: 1
`

const testScenarios = `
scenarios:
  - name: across
    map_id: 7
    start: {x: 100, y: 200}
    dest: {x: 105, y: 203}
    expect_cost: 77
  - name: penned
    map_id: 7
    start: {x: 100, y: 200}
    dest: {x: 102, y: 202}
    dest_end: {x: 101, y: 201}
    end_mode: touch
    policy: {mode: bash, area: west, max_danger: some}
`

func writeFixtures(t *testing.T) (mapList, tileDir string) {
	t.Helper()
	dir := t.TempDir()
	mapList = filepath.Join(dir, "map_list.yaml")
	if err := os.WriteFile(mapList, []byte(testMapList), 0o644); err != nil {
		t.Fatal(err)
	}
	tiles := "# yard\n0,0,0,-1,0,0\n0,5,0,0,0,0\n0,0,0,-1,0,0\n0,0,0,-1,0,0\n"
	if err := os.WriteFile(filepath.Join(dir, "7.txt"), []byte(tiles), 0o644); err != nil {
		t.Fatal(err)
	}
	legacy := "3,0,35\n131,4,0\n"
	if err := os.WriteFile(filepath.Join(dir, "8.txt"), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	return mapList, dir
}

func TestLoadMapData(t *testing.T) {
	mapList, tileDir := writeFixtures(t)
	table, err := LoadMapData(mapList, tileDir)
	if err != nil {
		t.Fatalf("LoadMapData: %v", err)
	}
	if table.Count() != 2 {
		t.Fatalf("Count = %d, want 2 (map 9 has no tile file)", table.Count())
	}
	if ids := table.IDs(); len(ids) != 2 || ids[0] != 7 || ids[1] != 8 {
		t.Fatalf("IDs = %v", ids)
	}

	info := table.GetInfo(7)
	if info == nil || info.Name != "yard" || info.Width() != 6 || info.Height() != 4 {
		t.Fatalf("info = %+v", info)
	}
	g := table.Grid(7)
	if g.Walkable(g.Index(3, 0)) {
		t.Error("(3,0) should be a wall")
	}
	if ob := g.ObstacleAt(g.Index(3, 0)); ob == nil || ob.HitPoints != 300 {
		t.Errorf("wall hit points not applied: %+v", ob)
	}
	if got := g.TerrainCost(g.Index(1, 1)); got != 5 {
		t.Errorf("terrain (1,1) = %d, want 5", got)
	}
	if ob := g.ObstacleAt(g.Index(3, 1)); ob == nil || ob.Kind != pathfind.ObstacleDoor || ob.OpenCost != 20 {
		t.Errorf("door = %+v", ob)
	}
	if ob := g.ObstacleAt(g.Index(1, 3)); ob == nil || ob.PathCost != 800 {
		t.Errorf("structure = %+v", ob)
	}
	if g.DangerAt(g.Index(5, 0)) != pathfind.DangerDeadly || g.DangerAt(g.Index(5, 1)) != pathfind.DangerNone {
		t.Error("danger zone not applied")
	}
	if g.Dirty() {
		t.Error("grid not rebuilt after loading")
	}

	west := table.Area(7, "west")
	if west == nil {
		t.Fatal("area west missing")
	}
	for _, c := range []struct {
		x, z int
		in   bool
	}{{0, 0, true}, {2, 3, true}, {3, 0, false}, {5, 3, false}} {
		if west[c.z*6+c.x] != c.in {
			t.Errorf("area west at (%d,%d) = %v, want %v", c.x, c.z, west[c.z*6+c.x], c.in)
		}
	}
	if table.Area(7, "east") != nil || table.Area(42, "west") != nil {
		t.Error("unknown area returned a mask")
	}
}

func TestLegacyTiles(t *testing.T) {
	mapList, tileDir := writeFixtures(t)
	table, err := LoadMapData(mapList, tileDir)
	if err != nil {
		t.Fatalf("LoadMapData: %v", err)
	}
	g := table.Grid(8)
	tests := []struct {
		x, z     int
		walkable bool
		cost     int
		danger   pathfind.Danger
	}{
		{0, 0, true, 0, pathfind.DangerNone},
		{1, 0, false, 0, pathfind.DangerNone},
		{2, 0, true, CombatZoneCost, pathfind.DangerSome},
		{0, 1, true, 0, pathfind.DangerNone},
		{1, 1, true, ArrowTileCost, pathfind.DangerNone},
	}
	for _, tt := range tests {
		idx := g.Index(tt.x, tt.z)
		if g.Walkable(idx) != tt.walkable {
			t.Errorf("(%d,%d) walkable = %v, want %v", tt.x, tt.z, g.Walkable(idx), tt.walkable)
			continue
		}
		if tt.walkable && (g.TerrainCost(idx) != tt.cost || g.DangerAt(idx) != tt.danger) {
			t.Errorf("(%d,%d) = cost %d danger %d, want %d/%d", tt.x, tt.z, g.TerrainCost(idx), g.DangerAt(idx), tt.cost, tt.danger)
		}
	}
}

func TestScenarioRequests(t *testing.T) {
	mapList, tileDir := writeFixtures(t)
	table, err := LoadMapData(mapList, tileDir)
	if err != nil {
		t.Fatalf("LoadMapData: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	if err := os.WriteFile(path, []byte(testScenarios), 0o644); err != nil {
		t.Fatal(err)
	}
	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatalf("LoadScenarios: %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("scenarios = %d, want 2", len(scenarios))
	}

	across, err := scenarios[0].Request(table)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if across.Start != (pathfind.Cell{X: 0, Z: 0}) || across.Dest != pathfind.SingleCell(pathfind.Cell{X: 5, Z: 3}) {
		t.Errorf("across = %+v", across)
	}
	if scenarios[0].ExpectCost == nil || *scenarios[0].ExpectCost != 77 {
		t.Errorf("expect_cost = %v", scenarios[0].ExpectCost)
	}

	penned, err := scenarios[1].Request(table)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if penned.Dest != (pathfind.Rect{MinX: 1, MinZ: 1, MaxX: 2, MaxZ: 2}) {
		t.Errorf("dest rect = %+v", penned.Dest)
	}
	if penned.EndMode != pathfind.EndModeTouch || penned.Policy.Mode != pathfind.ModeBash || penned.Policy.MaxDanger != pathfind.DangerSome {
		t.Errorf("penned policy = %+v", penned)
	}
	if len(penned.Policy.Allowed) != 24 {
		t.Errorf("allowed mask has %d cells, want 24", len(penned.Policy.Allowed))
	}

	bad := scenarios[1]
	bad.Policy.Area = "nowhere"
	if _, err := bad.Request(table); err == nil {
		t.Error("unknown area accepted")
	}
	bad = scenarios[0]
	bad.MapID = 99
	if _, err := bad.Request(table); err == nil {
		t.Error("unknown map accepted")
	}
}
