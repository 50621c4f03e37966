package pathfind

// ObstacleKind classifies what occupies a cell.
type ObstacleKind uint8

const (
	ObstacleWall ObstacleKind = iota + 1
	ObstacleDoor
	ObstacleStructure
)

func (k ObstacleKind) String() string {
	switch k {
	case ObstacleWall:
		return "wall"
	case ObstacleDoor:
		return "door"
	case ObstacleStructure:
		return "structure"
	}
	return "none"
}

// Obstacle is a host object that can block or slow movement.
type Obstacle struct {
	Kind      ObstacleKind
	HitPoints int

	// door state
	OpenCost  int
	Open      bool
	Locked    bool
	Forbidden bool

	// PathCost is the surcharge for walking over a structure (e.g. a known trap).
	PathCost int
}

const (
	Impassable = 10000

	BashCost     = 300
	WallBashBase = 60
)

// ObstacleCoster prices an obstacle for a policy. Impassable or more blocks the cell.
type ObstacleCoster interface {
	ObstacleCost(ob *Obstacle, p *Policy) int
}

// StandardObstacles implements the default door, wall and structure rules.
type StandardObstacles struct{}

func (StandardObstacles) ObstacleCost(ob *Obstacle, p *Policy) int {
	switch ob.Kind {
	case ObstacleDoor:
		return doorCost(ob, p.Mode)
	case ObstacleStructure:
		return ob.PathCost
	case ObstacleWall:
		if p.Mode == ModePassAnything && ob.HitPoints > 0 {
			return WallBashBase + ob.HitPoints/10
		}
		return Impassable
	}
	return 0
}

func doorCost(ob *Obstacle, mode Mode) int {
	switch mode {
	case ModePassAnything:
		return 0
	case ModeNoPassClosedDoors:
		if ob.Open {
			return 0
		}
		return Impassable
	}
	canBash := mode == ModeBash
	if ob.Forbidden && !canBash {
		return Impassable
	}
	if ob.Open {
		return 0
	}
	if !ob.Locked {
		return ob.OpenCost
	}
	if canBash {
		return BashCost
	}
	return Impassable
}
