package pathfind

import (
	"math"
	"sort"
)

type curvePoint struct{ x, y float64 }

// curve is a piecewise-linear function, flat beyond its end points.
type curve []curvePoint

func newCurve(pts ...curvePoint) curve {
	c := curve(pts)
	sort.SliceStable(c, func(i, j int) bool { return c[i].x < c[j].x })
	return c
}

func (c curve) Evaluate(x float64) float64 {
	if len(c) == 0 {
		return 1
	}
	if x <= c[0].x {
		return c[0].y
	}
	for i := 1; i < len(c); i++ {
		if x > c[i].x {
			continue
		}
		a, b := c[i-1], c[i]
		if b.x == a.x {
			return b.y
		}
		return a.y + (b.y-a.y)*(x-a.x)/(b.x-a.x)
	}
	return c[len(c)-1].y
}

const maxWeightEstimate = 20000

// newWeightCurve inflates short estimates more than long ones.
func newWeightCurve(startEstimate int) curve {
	est := float64(min(startEstimate, maxWeightEstimate))
	return newCurve(
		curvePoint{1, 1.25},
		curvePoint{est / 2, 1.12},
		curvePoint{est, 1.05},
	)
}

func (c curve) weigh(h int) int {
	if c == nil || h <= 0 {
		return h
	}
	return int(math.Ceil(float64(h) * c.Evaluate(float64(h))))
}
