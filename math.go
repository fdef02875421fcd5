package route

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Axis indexes the components of a Coord2D.
type Axis uint8

const (
	// AxisX is the horizontal (east/west) axis.
	AxisX Axis = iota
	// AxisY is the vertical (north/south) axis.
	AxisY
)

// axes lists both axes in index order.
var axes = [2]Axis{AxisX, AxisY}

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// Coord2D is a 2-D coordinate (or vector) stored as (x, y).
type Coord2D [2]float64

// X returns the x component.
func (c Coord2D) X() float64 { return c[AxisX] }

// Y returns the y component.
func (c Coord2D) Y() float64 { return c[AxisY] }

// Add returns c + o.
func (c Coord2D) Add(o Coord2D) Coord2D {
	return Coord2D{c[0] + o[0], c[1] + o[1]}
}

// Sub returns c - o.
func (c Coord2D) Sub(o Coord2D) Coord2D {
	return Coord2D{c[0] - o[0], c[1] - o[1]}
}

// Scale returns s*c.
func (c Coord2D) Scale(s float64) Coord2D {
	return Coord2D{s * c[0], s * c[1]}
}

// Norm returns the Euclidean norm of c.
func (c Coord2D) Norm() float64 {
	return math.Hypot(c[0], c[1])
}

// IsFinite returns whether neither component is NaN or infinite.
func (c Coord2D) IsFinite() bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (c Coord2D) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c[0], c[1])
}

// L1 returns the Manhattan distance between a and b.
func L1(a, b Coord2D) float64 {
	return math.Abs(a[0]-b[0]) + math.Abs(a[1]-b[1])
}

// Obstacle is a circular region. Obstacles are carried through a planning
// request but are not turned into constraints (see TrajectoryOptimizer).
type Obstacle struct {
	Position Coord2D `json:"position" yaml:"position"`
	Radius   float64 `json:"radius" yaml:"radius"`
}

// Validate returns an error if the obstacle is malformed.
func (o Obstacle) Validate() error {
	if !o.Position.IsFinite() {
		return errors.Errorf("obstacle position %s is not finite", o.Position)
	}
	if math.IsNaN(o.Radius) || o.Radius < 0 {
		return errors.Errorf("obstacle radius %f must be non-negative", o.Radius)
	}
	return nil
}

// Contains returns whether p lies inside (or on) the obstacle.
func (o Obstacle) Contains(p Coord2D) bool {
	return p.Sub(o.Position).Norm() <= o.Radius
}
