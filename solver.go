package route

import "fmt"

// Status is the verdict of a solver on a model.
type Status uint8

const (
	// StatusNotSolved means the solver stopped without a verdict.
	StatusNotSolved Status = iota
	// StatusOptimal means an optimal assignment was found.
	StatusOptimal
	// StatusInfeasible means no assignment satisfies the model.
	StatusInfeasible
	// StatusUnbounded means the objective can decrease without limit.
	StatusUnbounded
	// StatusTimeLimit means the solver ran out of time.
	StatusTimeLimit
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "not-solved"
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimeLimit:
		return "time-limit"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for st := StatusNotSolved; st <= StatusTimeLimit; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Solution is the outcome of a solve. Values and Objective are only meaningful
// when Status is StatusOptimal, and Values then holds one entry per model variable.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
}

// Solver solves linear programs. The error return is reserved for solver
// malfunctions; a model without an optimum is reported through the status.
type Solver interface {
	Solve(m *Model) (Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(m *Model) (Solution, error)

// Solve implements the Solver interface.
func (f SolverFunc) Solve(m *Model) (Solution, error) {
	return f(m)
}
