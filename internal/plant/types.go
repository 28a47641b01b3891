package plant

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// System describes continuous plant dynamics dX/dt = f(X, u, t).
// The control input u is the normalized fan actuation in [0, 1].
type System interface {
	Derive(x State, u float64, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(sys System, x State, u float64, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, u float64, t, dt, tol float64) (State, float64, error)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Sample is one conditioned actuation/measurement record. Actuation is
// normalized to [0, 1]; Measurement is the distance reading in the fixed
// physical unit the sequence was conditioned to. Samples are immutable
// once conditioned.
type Sample struct {
	Actuation   float64
	Measurement float64
	Index       int
}

// Clamp returns x limited to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
