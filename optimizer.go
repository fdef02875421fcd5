package route

import (
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/pkg/errors"
)

// trajectoryVars holds the decision variables of a trajectory model, indexed by axis then time step.
type trajectoryVars struct {
	thrust, velocity, position [2][]Variable
	distance                   []Variable
	north, south, east, west   []Variable
}

// TrajectoryOptimizer builds the trajectory linear program, solves it and decodes the plan.
// It holds no state between calls and may be shared by goroutines if its Solver may.
type TrajectoryOptimizer struct {
	Solver Solver
	// ObstacleAvoidance requests keep-out constraints around obstacles. No such
	// formulation exists yet, so enabling it makes Optimize fail with ErrObstacleAvoidance.
	ObstacleAvoidance bool
	// TieBreak runs a second solve which keeps the optimal cumulative distance
	// and minimizes the total thrust, removing arbitrary thrust on steps which
	// cannot affect any position.
	TieBreak bool
	logger   kitlog.Logger
}

// NewTrajectoryOptimizer returns an optimizer using the provided solver (a Simplex if nil).
// A nil logger discards all logs.
func NewTrajectoryOptimizer(solver Solver, logger kitlog.Logger) *TrajectoryOptimizer {
	if solver == nil {
		solver = NewSimplex(0)
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &TrajectoryOptimizer{Solver: solver, TieBreak: true, logger: kitlog.With(logger, "subsys", "optimizer")}
}

// Optimize plans a trajectory with the default solver.
func Optimize(start, goal Coord2D, obstacles []Obstacle, maxTimeSegments int, thrustMagnitude float64) (*Result, error) {
	req := PlanningRequest{start, goal, obstacles, maxTimeSegments, thrustMagnitude}
	return NewTrajectoryOptimizer(nil, nil).Optimize(req)
}

// Optimize plans the trajectory of the request. Only an optimal solve yields a Result;
// any other solver verdict is returned as a *SolveError.
//
// A *Simplex time limit bounds the whole call: the tie-break solve gets what the
// first solve left, and is skipped when nothing is left.
func (o *TrajectoryOptimizer) Optimize(req PlanningRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.Obstacles) > 0 {
		if o.ObstacleAvoidance {
			for i, obs := range req.Obstacles {
				if err := obs.Validate(); err != nil {
					return nil, invalidf("obstacle %d: %s", i, err)
				}
			}
			return nil, errors.Wrapf(ErrObstacleAvoidance, "%d obstacles", len(req.Obstacles))
		}
		o.logger.Log("level", "warning", "message", "obstacles ignored", "count", len(req.Obstacles))
	}

	model, vars := formulate(req)
	o.logger.Log("level", "debug", "model", model.Name, "variables", model.NumVariables(), "constraints", model.NumConstraints())

	start := time.Now()
	sol, err := o.solve(o.Solver, model)
	if err != nil {
		return nil, err
	}
	objective := sol.Objective
	if o.TieBreak {
		if solver, ok := o.tieBreakSolver(time.Since(start)); ok {
			sol = o.tieBreak(solver, model, vars, sol)
		} else {
			o.logger.Log("level", "warning", "message", "no time left for the tie-break, keeping first solution")
		}
	}
	res := decode(req, vars, sol)
	res.Objective = objective
	o.logger.Log("level", "info", "status", res.Status, "objective", res.Objective, "final", res.Final(), "duration", time.Since(start))
	return res, nil
}

// solve runs the solver and turns any non-optimal verdict into a *SolveError.
func (o *TrajectoryOptimizer) solve(solver Solver, m *Model) (Solution, error) {
	sol, err := solver.Solve(m)
	if err != nil && sol.Status == StatusOptimal {
		return sol, errors.Wrap(err, "solver")
	}
	if sol.Status != StatusOptimal {
		o.logger.Log("level", "error", "model", m.Name, "status", sol.Status, "err", err)
		return sol, &SolveError{sol.Status, err}
	}
	if len(sol.Values) != m.NumVariables() {
		return sol, &SolveError{StatusNotSolved, fmt.Errorf("solver returned %d values for %d variables", len(sol.Values), m.NumVariables())}
	}
	return sol, nil
}

// tieBreakSolver returns the solver of the tie-break once elapsed was spent on the
// first solve. A *Simplex with a time limit is copied with the remaining time; false
// means none remains.
func (o *TrajectoryOptimizer) tieBreakSolver(elapsed time.Duration) (Solver, bool) {
	s, ok := o.Solver.(*Simplex)
	if !ok || s.Timeout <= 0 {
		return o.Solver, true
	}
	left := s.Timeout - elapsed
	if left <= 0 {
		return nil, false
	}
	cp := *s
	cp.Timeout = left
	return &cp, true
}

// tieBreak minimizes the total thrust among the trajectories reaching the optimal
// cumulative distance. The distance is kept through the offset slacks: the east and
// west slacks may not sum above their first optimum, nor the north and south ones.
// Both axes are independent, so each budget is tight and both stay separable.
// The first solution is kept if the second solve fails.
func (o *TrajectoryOptimizer) tieBreak(solver Solver, m *Model, vars trajectoryVars, first Solution) Solution {
	tb := m.Clone()
	tb.Name = m.Name + "-tiebreak"
	T := len(vars.distance)
	budget := func(name string, a, b []Variable) {
		terms := make([]Term, 0, 2*T)
		var opt float64
		for t := 0; t < T; t++ {
			terms = append(terms, Term{a[t], 1}, Term{b[t], 1})
			opt += first.Values[a[t]] + first.Values[b[t]]
		}
		tb.AddConstraint(name, SenseLE, opt+1e-9*math.Max(1, math.Abs(opt)), terms...)
	}
	budget("distance_budget_x", vars.east, vars.west)
	budget("distance_budget_y", vars.north, vars.south)

	// thrust = pos - neg with pos, neg ∈ [0, 1]: the optimum never has both positive.
	var effort []Term
	for _, a := range axes {
		pos := tb.AddVariables("thrust_pos_"+a.String(), T, 0, 1)
		neg := tb.AddVariables("thrust_neg_"+a.String(), T, 0, 1)
		for t := 0; t < T; t++ {
			tb.AddConstraint(fmt.Sprintf("thrust_split_%s[%d]", a, t), SenseEQ, 0,
				Term{vars.thrust[a][t], 1}, Term{pos[t], -1}, Term{neg[t], 1})
			effort = append(effort, Term{pos[t], 1}, Term{neg[t], 1})
		}
	}
	tb.SetObjective(effort...)
	sol, err := o.solve(solver, tb)
	if err != nil {
		o.logger.Log("level", "warning", "message", "tie-break failed, keeping first solution", "err", err)
		return first
	}
	// The tie-break variables are appended after the trajectory ones, so the indices still match.
	sol.Values = sol.Values[:m.NumVariables()]
	return sol
}

// formulate builds the trajectory linear program of a valid request.
func formulate(req PlanningRequest) (*Model, trajectoryVars) {
	T, m := req.MaxTimeSegments, req.ThrustMagnitude
	inf := math.Inf(1)
	model := NewModel("trajectory")
	var v trajectoryVars
	for _, a := range axes {
		v.thrust[a] = model.AddVariables("thrust_"+a.String(), T, -1, 1)
		v.velocity[a] = model.AddVariables("velocity_"+a.String(), T, -inf, inf)
		v.position[a] = model.AddVariables("position_"+a.String(), T, -inf, inf)
	}
	v.distance = model.AddVariables("distance", T, 0, inf)
	v.north = model.AddVariables("north", T, 0, inf)
	v.south = model.AddVariables("south", T, 0, inf)
	v.east = model.AddVariables("east", T, 0, inf)
	v.west = model.AddVariables("west", T, 0, inf)

	// Initial conditions.
	for _, a := range axes {
		model.AddConstraint("initial_position_"+a.String(), SenseEQ, req.Start[a], Term{v.position[a][0], 1})
		model.AddConstraint("initial_velocity_"+a.String(), SenseEQ, 0, Term{v.velocity[a][0], 1})
	}

	// Explicit Euler dynamics with a unit time step.
	for t := 0; t < T-1; t++ {
		for _, a := range axes {
			model.AddConstraint(fmt.Sprintf("velocity_%s[%d]", a, t+1), SenseEQ, 0,
				Term{v.velocity[a][t+1], 1}, Term{v.velocity[a][t], -1}, Term{v.thrust[a][t], -m})
			model.AddConstraint(fmt.Sprintf("position_%s[%d]", a, t+1), SenseEQ, 0,
				Term{v.position[a][t+1], 1}, Term{v.position[a][t], -1}, Term{v.velocity[a][t], -1})
		}
	}

	// TODO: keep-out constraints per obstacle and time step once a convex or
	// disjunctive formulation is chosen; ObstacleAvoidance stays rejected until then.

	// L1 distance to goal: each slack bounds one signed half of an axis offset.
	gx, gy := req.Goal[AxisX], req.Goal[AxisY]
	objective := make([]Term, T)
	for t := 0; t < T; t++ {
		x, y := v.position[AxisX][t], v.position[AxisY][t]
		model.AddConstraint(fmt.Sprintf("north[%d]", t), SenseGE, -gy, Term{v.north[t], 1}, Term{y, -1})
		model.AddConstraint(fmt.Sprintf("south[%d]", t), SenseGE, gy, Term{v.south[t], 1}, Term{y, 1})
		model.AddConstraint(fmt.Sprintf("east[%d]", t), SenseGE, -gx, Term{v.east[t], 1}, Term{x, -1})
		model.AddConstraint(fmt.Sprintf("west[%d]", t), SenseGE, gx, Term{v.west[t], 1}, Term{x, 1})
		model.AddConstraint(fmt.Sprintf("distance[%d]", t), SenseGE, 0,
			Term{v.distance[t], 1}, Term{v.north[t], -1}, Term{v.east[t], -1}, Term{v.south[t], -1}, Term{v.west[t], -1})
		objective[t] = Term{v.distance[t], 1}
	}
	model.SetObjective(objective...)
	return model, v
}

// decode reads an optimal solution back into a Result in time order.
func decode(req PlanningRequest, v trajectoryVars, sol Solution) *Result {
	T := req.MaxTimeSegments
	res := &Result{
		ThrustDecisions:   make([]Coord2D, T),
		VehiclePositions:  make([]Coord2D, T),
		VehicleVelocities: make([]Coord2D, T),
		Distances:         make([]float64, T),
		Objective:         sol.Objective,
		Status:            sol.Status,
	}
	x := sol.Values
	for t := 0; t < T; t++ {
		for _, a := range axes {
			res.ThrustDecisions[t][a] = x[v.thrust[a][t]]
			res.VehiclePositions[t][a] = x[v.position[a][t]]
			res.VehicleVelocities[t][a] = x[v.velocity[a][t]]
		}
		res.Distances[t] = x[v.distance[t]]
	}
	// Pinned by equality constraints: drop the solver round-off.
	res.VehiclePositions[0] = req.Start
	res.VehicleVelocities[0] = Coord2D{}
	return res
}
