package route

import (
	"fmt"
	"math"
)

// Result is the decoded plan of an optimal solve. All sequences are indexed by time step.
type Result struct {
	ThrustDecisions   []Coord2D `json:"thrust_decisions" yaml:"thrust_decisions"`
	VehiclePositions  []Coord2D `json:"vehicle_positions" yaml:"vehicle_positions"`
	VehicleVelocities []Coord2D `json:"vehicle_velocities" yaml:"vehicle_velocities"`
	Distances         []float64 `json:"distances" yaml:"distances"`
	Objective         float64   `json:"objective" yaml:"objective"`
	Status            Status    `json:"status" yaml:"status"`
}

// Len returns the number of time steps.
func (r *Result) Len() int {
	return len(r.VehiclePositions)
}

// Final returns the last planned position.
func (r *Result) Final() Coord2D {
	if len(r.VehiclePositions) == 0 {
		return Coord2D{}
	}
	return r.VehiclePositions[len(r.VehiclePositions)-1]
}

// Cost returns the cumulative L1 distance of the planned positions to goal.
func (r *Result) Cost(goal Coord2D) float64 {
	var c float64
	for _, p := range r.VehiclePositions {
		c += L1(p, goal)
	}
	return c
}

// Collisions returns the time steps at which the planned position lies inside an obstacle.
func (r *Result) Collisions(obstacles []Obstacle) []int {
	var steps []int
	for t, p := range r.VehiclePositions {
		for _, o := range obstacles {
			if o.Contains(p) {
				steps = append(steps, t)
				break
			}
		}
	}
	return steps
}

// Normalized returns the positions mapped so that the box [min, max] becomes the unit square.
// A degenerate axis maps to 0.5.
func (r *Result) Normalized(min, max Coord2D) []Coord2D {
	norm := make([]Coord2D, len(r.VehiclePositions))
	for t, p := range r.VehiclePositions {
		for _, a := range axes {
			span := max[a] - min[a]
			if span == 0 {
				norm[t][a] = 0.5
				continue
			}
			norm[t][a] = (p[a] - min[a]) / span
		}
	}
	return norm
}

// Bounds returns the smallest box containing every planned position and the extra points.
func (r *Result) Bounds(extra ...Coord2D) (min, max Coord2D) {
	min = Coord2D{math.Inf(1), math.Inf(1)}
	max = Coord2D{math.Inf(-1), math.Inf(-1)}
	for _, pts := range [][]Coord2D{r.VehiclePositions, extra} {
		for _, p := range pts {
			for _, a := range axes {
				min[a] = math.Min(min[a], p[a])
				max[a] = math.Max(max[a], p[a])
			}
		}
	}
	return
}

func (r *Result) String() string {
	return fmt.Sprintf("%d steps, final %s, objective %.6f (%s)", r.Len(), r.Final(), r.Objective, r.Status)
}

// Replay integrates the thrust commands with the explicit Euler recurrence used by the optimizer.
// The returned sequences have the same length as thrusts.
func Replay(thrusts []Coord2D, start Coord2D, thrustMagnitude float64) (positions, velocities []Coord2D) {
	T := len(thrusts)
	if T == 0 {
		return nil, nil
	}
	positions = make([]Coord2D, T)
	velocities = make([]Coord2D, T)
	positions[0] = start
	for t := 0; t < T-1; t++ {
		velocities[t+1] = velocities[t].Add(thrusts[t].Scale(thrustMagnitude))
		positions[t+1] = positions[t].Add(velocities[t])
	}
	return
}
