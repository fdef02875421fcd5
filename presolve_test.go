package route

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestPresolveSubstitutesChains(t *testing.T) {
	// x1 = 2, x2 = x1 + 3, x3 = x1 + x2: every variable is defined by a row.
	inf := math.Inf(1)
	m := NewModel("chain")
	x := m.AddVariables("x", 3, -inf, inf)
	m.AddConstraint("x1", SenseEQ, 2, Term{x[0], 1})
	m.AddConstraint("x2", SenseEQ, 3, Term{x[1], 1}, Term{x[0], -1})
	m.AddConstraint("x3", SenseEQ, 0, Term{x[2], 1}, Term{x[1], -1}, Term{x[0], -1})
	m.SetObjective(Term{x[2], 1})

	p := newPresolver(m)
	if st := p.run(); st != StatusOptimal {
		t.Fatalf("presolve: %s", st)
	}
	if b := p.blocks(); len(b) != 0 {
		t.Fatalf("expected no block left, got %d", len(b))
	}
	sol, err := NewSimplex(0).Solve(m)
	if err != nil || sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s (%v)", sol.Status, err)
	}
	if !floats.EqualApprox(sol.Values, []float64{2, 5, 7}, 1e-12) {
		t.Fatalf("unexpected solution %v", sol.Values)
	}
}

func TestPresolveDropsSatisfiableRows(t *testing.T) {
	// z has no cost and no upper bound, so z - x ≥ 1 always holds: x = 2, z = 3.
	m := NewModel("raise")
	x := m.AddVariable("x", 0, 2)
	z := m.AddVariable("z", 0, math.Inf(1))
	m.AddConstraint("lift", SenseGE, 1, Term{z, 1}, Term{x, -1})
	m.SetObjective(Term{x, -1})

	p := newPresolver(m)
	if st := p.run(); st != StatusOptimal {
		t.Fatalf("presolve: %s", st)
	}
	if b := p.blocks(); len(b) != 0 {
		t.Fatalf("expected no block left, got %d", len(b))
	}
	sol, err := NewSimplex(0).Solve(m)
	if err != nil || sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s (%v)", sol.Status, err)
	}
	if !floats.EqualApprox(sol.Values, []float64{2, 3}, 1e-12) {
		t.Fatalf("unexpected solution %v", sol.Values)
	}
}

func TestPresolveSingletonBounds(t *testing.T) {
	m := NewModel("bounds")
	x := m.AddVariable("x", 0, 10)
	y := m.AddVariable("y", 0, 10)
	m.AddConstraint("cap", SenseLE, 8, Term{x, 2})
	m.AddConstraint("floor", SenseGE, 3, Term{x, -1}, Term{y, 1})
	m.AddConstraint("sum", SenseLE, 12, Term{x, 1}, Term{y, 1})
	m.SetObjective(Term{x, -2}, Term{y, 1})

	p := newPresolver(m)
	if st := p.run(); st != StatusOptimal {
		t.Fatalf("presolve: %s", st)
	}
	if p.upper[x] != 4 {
		t.Fatalf("expected x ≤ 4 from the singleton row, got %f", p.upper[x])
	}
	sol, err := NewSimplex(0).Solve(m)
	if err != nil || sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s (%v)", sol.Status, err)
	}
	if !floats.EqualApprox(sol.Values, []float64{4, 7}, 1e-9) {
		t.Fatalf("unexpected solution %v", sol.Values)
	}

	m.AddConstraint("conflict", SenseGE, 5, Term{x, 1})
	if sol, _ := NewSimplex(0).Solve(m); sol.Status != StatusInfeasible {
		t.Fatalf("expected infeasible, got %s", sol.Status)
	}
}

func TestPresolveSplitsTrajectoryAxes(t *testing.T) {
	for _, T := range []int{10, 100, 1000} {
		m, v := formulate(PlanningRequest{Coord2D{0, 0.5}, Coord2D{1, 1}, nil, T, 0.05})
		p := newPresolver(m)
		if st := p.run(); st != StatusOptimal {
			t.Fatalf("T=%d: presolve: %s", T, st)
		}
		for _, a := range axes {
			for _, u := range v.velocity[a] {
				if !p.gone[u] {
					t.Fatalf("T=%d: velocities must be substituted", T)
				}
			}
			for _, u := range v.position[a] {
				if !p.gone[u] {
					t.Fatalf("T=%d: positions must be substituted", T)
				}
			}
		}
		blocks := p.blocks()
		if len(blocks) != 2 {
			t.Fatalf("T=%d: expected one block per axis, got %d", T, len(blocks))
		}
		for _, b := range blocks {
			if b.denseEntries() > DefaultMaxDenseEntries {
				t.Fatalf("T=%d: block of %d rows and %d columns is above the default limit", T, len(b.rows), len(b.vars))
			}
		}
	}
}
