package main

import (
	"math"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
)

// frameMargin is the share of the scene left empty on each side of a frame.
const frameMargin = 0.05

// frame maps the plan and the obstacles into the unit square drawn by the animation.
// The box is square so that distances and radii keep their proportions, and it holds
// the start, the goal, every planned position and every obstacle.
func frame(res *route.Result, req route.PlanningRequest) ([]route.Coord2D, []route.Obstacle) {
	extra := []route.Coord2D{req.Start, req.Goal}
	for _, o := range req.Obstacles {
		extra = append(extra,
			route.Coord2D{o.Position[route.AxisX] - o.Radius, o.Position[route.AxisY] - o.Radius},
			route.Coord2D{o.Position[route.AxisX] + o.Radius, o.Position[route.AxisY] + o.Radius})
	}
	min, max := res.Bounds(extra...)
	span := math.Max(max[route.AxisX]-min[route.AxisX], max[route.AxisY]-min[route.AxisY])
	if span == 0 {
		span = 1
	}
	half := span/2 + span*frameMargin
	var lo, hi route.Coord2D
	for _, a := range []route.Axis{route.AxisX, route.AxisY} {
		center := (min[a] + max[a]) / 2
		lo[a], hi[a] = center-half, center+half
	}
	obstacles := make([]route.Obstacle, len(req.Obstacles))
	for i, o := range req.Obstacles {
		var p route.Coord2D
		for _, a := range []route.Axis{route.AxisX, route.AxisY} {
			p[a] = (o.Position[a] - lo[a]) / (2 * half)
		}
		obstacles[i] = route.Obstacle{Position: p, Radius: o.Radius / (2 * half)}
	}
	return res.Normalized(lo, hi), obstacles
}
