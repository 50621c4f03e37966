package data

import "github.com/l1jgo/pathfinder/internal/pathfind"

// Tile flag constants matching L1J L1V1Map.java
const (
	tilePassableEast  byte = 0x01 // bit 0
	tilePassableNorth byte = 0x02 // bit 1
	tileArrowEast     byte = 0x04 // bit 2
	tileArrowNorth    byte = 0x08 // bit 3
	tileZoneMask      byte = 0x30 // bits 4-5
	tileZoneCombat    byte = 0x20
	tileImpassable    byte = 0x80 // bit 7, dynamic mob block
)

// Extra terrain cost of legacy tiles.
const (
	ArrowTileCost  = 2 // arrow-passable only: walkable, but awkward
	CombatZoneCost = 4
)

// TileTerrain is the navigation view of one legacy tile byte.
type TileTerrain struct {
	Wall   bool
	Cost   int
	Danger pathfind.Danger
}

// TerrainFromTile converts an L1J passability tile. A tile with neither
// passable bit is a wall; the dynamic mob-block bit is ignored.
func TerrainFromTile(tile byte) TileTerrain {
	tile &^= tileImpassable
	if tile&(tilePassableEast|tilePassableNorth) == 0 {
		if tile&(tileArrowEast|tileArrowNorth) == 0 {
			return TileTerrain{Wall: true}
		}
		return TileTerrain{Cost: ArrowTileCost}
	}
	if tile&tileZoneMask == tileZoneCombat {
		return TileTerrain{Cost: CombatZoneCost, Danger: pathfind.DangerSome}
	}
	return TileTerrain{}
}
