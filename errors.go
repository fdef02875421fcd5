package route

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidRequest is returned for malformed planning requests. The solver is never invoked.
	ErrInvalidRequest = errors.New("invalid planning request")
	// ErrInfeasible is returned when the solver proves that no assignment satisfies the model.
	ErrInfeasible = errors.New("trajectory model is infeasible")
	// ErrUnbounded is returned when the solver reports an unbounded objective.
	ErrUnbounded = errors.New("trajectory model is unbounded")
	// ErrNotSolved is returned when the solver stops without a definite verdict.
	ErrNotSolved = errors.New("trajectory model was not solved")
	// ErrSolverTimeout is returned when the solver hits its time limit.
	ErrSolverTimeout = errors.New("solver time limit reached")
	// ErrObstacleAvoidance is returned when obstacle avoidance is requested: no keep-out formulation exists yet.
	ErrObstacleAvoidance = errors.New("obstacle avoidance is not supported")
)

// SolveError reports a solve which did not end with an optimal status.
type SolveError struct {
	Status Status
	Cause  error // solver-provided detail, may be nil
}

func (e *SolveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.sentinel(), e.Cause)
	}
	return e.sentinel().Error()
}

// Is allows errors.Is to match the sentinel of the status.
func (e *SolveError) Is(target error) bool {
	return target == e.sentinel()
}

// Unwrap returns the solver-provided cause.
func (e *SolveError) Unwrap() error {
	return e.Cause
}

func (e *SolveError) sentinel() error {
	switch e.Status {
	case StatusInfeasible:
		return ErrInfeasible
	case StatusUnbounded:
		return ErrUnbounded
	case StatusTimeLimit:
		return ErrSolverTimeout
	default:
		return ErrNotSolved
	}
}

// invalidf wraps ErrInvalidRequest with a formatted reason.
func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidRequest, format, args...)
}
