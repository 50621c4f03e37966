package pathfind

const areaPenaltyFactor = 10

// Evaluator prices cells and moves for one policy. It keeps no mutable state.
type Evaluator struct {
	grid          Grid
	danger        DangerGrid
	coster        ObstacleCoster
	policy        *Policy
	width, height int
}

// NewEvaluator builds an evaluator. A nil coster means StandardObstacles.
func NewEvaluator(grid Grid, policy *Policy, coster ObstacleCoster) *Evaluator {
	if coster == nil {
		coster = StandardObstacles{}
	}
	w, h := grid.Size()
	e := &Evaluator{grid: grid, coster: coster, policy: policy, width: w, height: h}
	if dg, ok := grid.(DangerGrid); ok {
		e.danger = dg
	}
	return e
}

// EdgeCost is the direction-free cost of entering the cell, without the move cost.
func (e *Evaluator) EdgeCost(idx int) int {
	p := e.policy
	cost := 0
	if !e.grid.Walkable(idx) {
		if p.Mode != ModePassAnything {
			return Impassable
		}
		ob := e.grid.ObstacleAt(idx)
		if ob == nil {
			return Impassable
		}
		cost = e.coster.ObstacleCost(ob, p)
	} else {
		cost = e.grid.TerrainCost(idx)
		if ob := e.grid.ObstacleAt(idx); ob != nil {
			cost += e.coster.ObstacleCost(ob, p)
		}
	}
	if cost >= Impassable {
		return Impassable
	}
	if p.Avoid != nil {
		cost += int(p.Avoid[idx]) * p.AvoidWeight
	}
	if !p.allowedAt(idx) {
		cost = (max(cost, p.MoveCardinal) + 2*p.MoveCardinal) * areaPenaltyFactor
	}
	if e.danger != nil && p.Mode != ModePassAnything && e.danger.DangerAt(idx) > p.MaxDanger {
		return Impassable
	}
	return clamp(cost, 0, Impassable-1)
}

func (e *Evaluator) stepCost(edge int, diagonal bool) int {
	return max(edge+e.policy.move(diagonal), 1)
}

func (e *Evaluator) walkable(x, z int) bool {
	if x < 0 || z < 0 || x >= e.width || z >= e.height {
		return false
	}
	return e.grid.Walkable(z*e.width + x)
}

// StepCost is the full cost of moving between two adjacent cells, or Impassable
// when the move is not allowed.
func (e *Evaluator) StepCost(from, to Cell) int {
	dx, dz := to.X-from.X, to.Z-from.Z
	if (dx == 0 && dz == 0) || abs(dx) > 1 || abs(dz) > 1 {
		return Impassable
	}
	if to.X < 0 || to.Z < 0 || to.X >= e.width || to.Z >= e.height {
		return Impassable
	}
	diagonal := dx != 0 && dz != 0
	if diagonal && (!e.walkable(from.X+dx, from.Z) || !e.walkable(from.X, from.Z+dz)) {
		return Impassable
	}
	edge := e.EdgeCost(to.Z*e.width + to.X)
	if edge >= Impassable {
		return Impassable
	}
	return e.stepCost(edge, diagonal)
}

// portalCost prices crossing a door region, ok is false when it cannot be crossed.
func (e *Evaluator) portalCost(ob *Obstacle) (int, bool) {
	c := e.coster.ObstacleCost(ob, e.policy)
	if c >= Impassable {
		return 0, false
	}
	return c + e.policy.MoveCardinal, true
}
