package route

import (
	"github.com/alexjamesmalcolm/optimize-thruster-route/integrator"
)

/* Continuous-time propagation of a plan, to compare against its discrete model. */

// thrustPropagation integrates a piecewise-constant thrust profile in continuous time.
type thrustPropagation struct {
	thrusts   []Coord2D
	magnitude float64
	state     []float64 // x, y, vx, vy
	positions []Coord2D
	step      int // current thrust segment
}

// GetState implements the integrator.Integrable interface.
func (p *thrustPropagation) GetState() []float64 {
	return p.state
}

// SetState implements the integrator.Integrable interface.
func (p *thrustPropagation) SetState(i uint64, s []float64) {
	p.state = s
	p.step++
	p.positions = append(p.positions, Coord2D{s[0], s[1]})
}

// Stop implements the integrator.Integrable interface.
func (p *thrustPropagation) Stop(i uint64) bool {
	return p.step >= len(p.thrusts)-1
}

// Func implements the integrator.Integrable interface. The thrust is held over
// the whole segment, including at its end point, so each RK4 step is exact.
func (p *thrustPropagation) Func(t float64, s []float64) []float64 {
	acc := p.thrusts[p.step].Scale(p.magnitude)
	return []float64{s[2], s[3], acc[AxisX], acc[AxisY]}
}

// PropagateContinuous returns the positions reached when the planned thrust of
// each step is applied continuously over a unit time step, starting at rest from
// the first planned position.
func PropagateContinuous(res *Result, thrustMagnitude float64) []Coord2D {
	if res.Len() == 0 {
		return nil
	}
	start := res.VehiclePositions[0]
	p := &thrustPropagation{
		thrusts:   res.ThrustDecisions,
		magnitude: thrustMagnitude,
		state:     []float64{start[AxisX], start[AxisY], 0, 0},
		positions: []Coord2D{start},
	}
	integrator.NewRK4(0, 1, p).Solve() // Blocking.
	return p.positions
}

// DiscretizationDrift returns the largest Euclidean distance between the planned
// positions and their continuous-time propagation.
func DiscretizationDrift(res *Result, thrustMagnitude float64) float64 {
	var drift float64
	for t, p := range PropagateContinuous(res, thrustMagnitude) {
		if d := p.Sub(res.VehiclePositions[t]).Norm(); d > drift {
			drift = d
		}
	}
	return drift
}
