package integrator

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// decay integrates dy/dt = -y from y(0) = 1.
type decay struct {
	state []float64
	steps uint64
}

func (d *decay) GetState() []float64 { return d.state }

func (d *decay) SetState(i uint64, s []float64) { d.state = s }

func (d *decay) Stop(i uint64) bool { return i >= d.steps }

func (d *decay) Func(t float64, s []float64) []float64 {
	return []float64{-s[0]}
}

// ramp integrates a constant acceleration: x'' = 2.
type ramp struct {
	state []float64
}

func (r *ramp) GetState() []float64 { return r.state }

func (r *ramp) SetState(i uint64, s []float64) { r.state = s }

func (r *ramp) Stop(i uint64) bool { return i >= 3 }

func (r *ramp) Func(t float64, s []float64) []float64 {
	return []float64{s[1], 2}
}

func TestRK4Decay(t *testing.T) {
	d := &decay{state: []float64{1}, steps: 100}
	iterNum, xi, err := NewRK4(0, 0.01, d).Solve()
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if iterNum != 100 {
		t.Fatalf("expected 100 iterations, got %d", iterNum)
	}
	if !scalar.EqualWithinAbs(xi, 1, 1e-12) {
		t.Fatalf("expected to end at x=1, got %f", xi)
	}
	if !scalar.EqualWithinAbs(d.state[0], math.Exp(-1), 1e-9) {
		t.Fatalf("y(1)=%.12f, expected %.12f", d.state[0], math.Exp(-1))
	}
}

func TestRK4ConstantAccelerationIsExact(t *testing.T) {
	r := &ramp{state: []float64{0, 0}}
	if _, _, err := NewRK4(0, 1, r).Solve(); err != nil {
		t.Fatalf("err: %s", err)
	}
	// x(3) = 3², v(3) = 2·3
	if !floats.EqualApprox(r.state, []float64{9, 6}, 1e-12) {
		t.Fatalf("got %v", r.state)
	}
}

func TestRK4Panics(t *testing.T) {
	for _, f := range []func(){
		func() { NewRK4(0, 0, &decay{}) },
		func() { NewRK4(0, 1, nil) },
	} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected a panic")
				}
			}()
			f()
		}()
	}
}
