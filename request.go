package route

import (
	"math"
)

const (
	// DefaultMaxTimeSegments is the default number of discrete time steps.
	DefaultMaxTimeSegments = 1000
	// DefaultThrustMagnitude is the default velocity increment of a unit thrust command.
	DefaultThrustMagnitude = 1.0
)

// PlanningRequest defines a single trajectory optimization.
type PlanningRequest struct {
	Start           Coord2D    `json:"starting_point" yaml:"starting_point"`
	Goal            Coord2D    `json:"goal" yaml:"goal"`
	Obstacles       []Obstacle `json:"obstacles,omitempty" yaml:"obstacles,omitempty"`
	MaxTimeSegments int        `json:"max_time_segments" yaml:"max_time_segments"`
	ThrustMagnitude float64    `json:"thrust_magnitude" yaml:"thrust_magnitude"`
}

// NewPlanningRequest returns a request with the default segment count and thrust magnitude.
func NewPlanningRequest(start, goal Coord2D, obstacles []Obstacle) PlanningRequest {
	return PlanningRequest{start, goal, obstacles, DefaultMaxTimeSegments, DefaultThrustMagnitude}
}

// Validate returns an error wrapping ErrInvalidRequest if the request cannot be planned.
// Obstacles are not checked here: they only matter once avoidance is enabled.
func (r PlanningRequest) Validate() error {
	if r.MaxTimeSegments < 1 {
		return invalidf("max time segments must be at least 1, got %d", r.MaxTimeSegments)
	}
	if math.IsNaN(r.ThrustMagnitude) || math.IsInf(r.ThrustMagnitude, 0) || r.ThrustMagnitude <= 0 {
		return invalidf("thrust magnitude must be positive and finite, got %f", r.ThrustMagnitude)
	}
	if !r.Start.IsFinite() {
		return invalidf("starting point %s is not finite", r.Start)
	}
	if !r.Goal.IsFinite() {
		return invalidf("goal %s is not finite", r.Goal)
	}
	return nil
}
