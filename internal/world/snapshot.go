package world

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/pathfinder/internal/pathfind"
)

// Obstacle codes stored per cell in a snapshot. Any other value is the
// resolved cost of a passable door.
const (
	CodeNone        byte = 255
	CodeImpassable  byte = 254
	CodeClosedDoor  byte = 253
	CodeArmedTrap   byte = 250
	maxDoorCodeCost      = 249

	// ArmedTrapCost is what a replayed trap costs to walk over.
	ArmedTrapCost = 800
)

// Snapshot is a self-contained copy of the inputs a search saw. Obstacles are
// already resolved against the recorded policy, so a replay does not need the
// original door states or obstacle rules.
type Snapshot struct {
	Width, Height int
	Terrain       []int32
	Obstacles     []byte
	Danger        []byte

	// Exact is false when some obstacle price could not be coded, so a
	// search over the snapshot may cost differently. Not stored.
	Exact bool
}

// Snapshot captures the map as seen by policy p priced with coster.
func (m *Map) Snapshot(p *pathfind.Policy, coster pathfind.ObstacleCoster) Snapshot {
	if coster == nil {
		coster = pathfind.StandardObstacles{}
	}
	n := m.width * m.height
	s := Snapshot{
		Width:     m.width,
		Height:    m.height,
		Terrain:   make([]int32, n),
		Obstacles: make([]byte, n),
		Danger:    make([]byte, n),
		Exact:     true,
	}
	copy(s.Terrain, m.terrain)
	for i := 0; i < n; i++ {
		s.Danger[i] = byte(m.danger[i])
		code, exact := obstacleCode(m.obstacles[i], p, coster)
		s.Obstacles[i] = code
		s.Exact = s.Exact && exact
	}
	return s
}

func obstacleCode(ob *pathfind.Obstacle, p *pathfind.Policy, coster pathfind.ObstacleCoster) (byte, bool) {
	if ob == nil {
		return CodeNone, true
	}
	c := coster.ObstacleCost(ob, p)
	switch ob.Kind {
	case pathfind.ObstacleWall:
		return CodeImpassable, c >= pathfind.Impassable
	case pathfind.ObstacleDoor:
		if c >= pathfind.Impassable {
			return CodeClosedDoor, true
		}
		return byte(min(c, maxDoorCodeCost)), c <= maxDoorCodeCost
	case pathfind.ObstacleStructure:
		switch {
		case c >= pathfind.Impassable:
			return CodeImpassable, true
		case c > 0:
			return CodeArmedTrap, c == ArmedTrapCost
		}
	}
	return CodeNone, c == 0
}

// FromSnapshot rebuilds a searchable map. Search it with SnapshotObstacles.
func FromSnapshot(s Snapshot) (*Map, error) {
	n := s.Width * s.Height
	if s.Width <= 0 || s.Height <= 0 || len(s.Terrain) != n || len(s.Obstacles) != n || len(s.Danger) != n {
		return nil, fmt.Errorf("snapshot %dx%d: layer sizes %d/%d/%d do not match",
			s.Width, s.Height, len(s.Terrain), len(s.Obstacles), len(s.Danger))
	}
	m := New(s.Width, s.Height)
	copy(m.terrain, s.Terrain)
	for i := 0; i < n; i++ {
		m.danger[i] = pathfind.Danger(s.Danger[i])
		switch code := s.Obstacles[i]; code {
		case CodeNone:
		case CodeImpassable:
			m.obstacles[i] = &pathfind.Obstacle{Kind: pathfind.ObstacleWall}
		case CodeClosedDoor:
			m.obstacles[i] = &pathfind.Obstacle{Kind: pathfind.ObstacleDoor, Locked: true}
		case CodeArmedTrap:
			m.obstacles[i] = &pathfind.Obstacle{Kind: pathfind.ObstacleStructure, PathCost: ArmedTrapCost}
		default:
			m.obstacles[i] = &pathfind.Obstacle{Kind: pathfind.ObstacleDoor, OpenCost: int(code)}
		}
	}
	m.Rebuild()
	return m, nil
}

// SnapshotObstacles prices the resolved obstacles of a map built by FromSnapshot.
type SnapshotObstacles struct{}

func (SnapshotObstacles) ObstacleCost(ob *pathfind.Obstacle, _ *pathfind.Policy) int {
	switch ob.Kind {
	case pathfind.ObstacleDoor:
		if ob.Locked {
			return pathfind.Impassable
		}
		return ob.OpenCost
	case pathfind.ObstacleStructure:
		return ob.PathCost
	}
	return pathfind.Impassable
}

// EncodeTerrain packs the terrain layer as little-endian int32 values.
func (s Snapshot) EncodeTerrain() []byte {
	buf := make([]byte, 4*len(s.Terrain))
	for i, v := range s.Terrain {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return buf
}

// DecodeTerrain is the inverse of EncodeTerrain.
func DecodeTerrain(buf []byte) ([]int32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("terrain blob of %d bytes is not a multiple of 4", len(buf))
	}
	out := make([]int32, len(buf)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}

// Fingerprint identifies the snapshot contents.
func (s Snapshot) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(s.Width))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(s.Height))
	h.Write(hdr[:])
	h.Write(s.EncodeTerrain())
	h.Write(s.Obstacles)
	h.Write(s.Danger)
	return hex.EncodeToString(h.Sum(nil))
}
