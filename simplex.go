package route

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultSimplexTolerance is the reduced cost tolerance of the simplex.
	DefaultSimplexTolerance = 1e-9
	// DefaultMaxDenseEntries caps the size of a block tableau (~400 MB).
	DefaultMaxDenseEntries = 50e6
	// checkTol is the violation accepted when verifying a solution against its model.
	checkTol = 1e-6
)

// Simplex solves models with a bounded-variable primal simplex. The model is first
// presolved: fixed and defined variables are eliminated and the remaining rows are
// split into independent blocks, each solved on its own dense tableau.
// The time limit is checked between pivots, so a timed out solve stops at once.
// The zero value uses the defaults.
type Simplex struct {
	Tol             float64       // reduced cost tolerance, DefaultSimplexTolerance if not positive
	Timeout         time.Duration // no limit if not positive
	MaxDenseEntries float64       // per block, DefaultMaxDenseEntries if not positive
}

// NewSimplex returns a Simplex solver with the provided time limit.
func NewSimplex(timeout time.Duration) *Simplex {
	return &Simplex{DefaultSimplexTolerance, timeout, DefaultMaxDenseEntries}
}

// Solve implements the Solver interface.
func (s *Simplex) Solve(m *Model) (Solution, error) {
	var deadline time.Time
	if s.Timeout > 0 {
		deadline = time.Now().Add(s.Timeout)
	}
	p := newPresolver(m)
	if st := p.run(); st != StatusOptimal {
		return Solution{Status: st}, nil
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		return Solution{Status: StatusTimeLimit}, nil
	}
	blocks := p.blocks()
	maxEntries := s.MaxDenseEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxDenseEntries
	}
	for _, b := range blocks {
		if b.denseEntries() > maxEntries {
			return Solution{Status: StatusNotSolved}, errors.Errorf("block of %d rows and %d columns is above the %g dense entries limit", len(b.rows), len(b.vars), maxEntries)
		}
	}

	values := make([]float64, m.NumVariables())
	for _, b := range blocks {
		t := newTableau(p, b, s.tol(), deadline)
		st, err := t.solve()
		if st != StatusOptimal {
			if err != nil {
				err = errors.Wrapf(err, "block of %d rows", len(b.rows))
			}
			return Solution{Status: st}, err
		}
		t.store(values)
	}
	p.postsolve(values)
	if err := m.Check(values, checkTol); err != nil {
		return Solution{Status: StatusNotSolved}, errors.Wrap(err, "simplex solution")
	}
	return Solution{StatusOptimal, values, m.Evaluate(values)}, nil
}

func (s *Simplex) tol() float64 {
	if s.Tol > 0 {
		return s.Tol
	}
	return DefaultSimplexTolerance
}
