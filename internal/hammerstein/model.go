// Package hammerstein implements the two-block plant model used by the
// identification engine: a static quadratic nonlinearity feeding a
// linear recursive filter.
package hammerstein

import (
	"fmt"
	"math"

	"github.com/MathBorgess/automation-engineering/internal/samples"
)

// DivergenceLimit bounds the filter output during simulation; anything
// beyond it is treated as a diverging candidate.
const DivergenceLimit = 1e6

// Model is a Hammerstein structure:
//
//	v(k) = c2·u(k)² + c1·u(k) + c0
//	y(k) = Σ b_i·v(k−i) − Σ a_j·y(k−j)
//
// Nonlinear holds [c0, c1, c2]. Feedforward holds [b0..bm], Feedback
// holds [a1..an]. The filter is evaluated with zero initial state.
// A model returned by the identification engine is read-only.
type Model struct {
	Nonlinear   [3]float64 `yaml:"nonlinear"`
	Feedforward []float64  `yaml:"feedforward"`
	Feedback    []float64  `yaml:"feedback"`
}

func (m *Model) Validate() error {
	if len(m.Feedforward) == 0 {
		return fmt.Errorf("hammerstein: empty feedforward coefficients")
	}
	return nil
}

// Intermediate applies the static nonlinearity to one input.
func (m *Model) Intermediate(u float64) float64 {
	return m.Nonlinear[2]*u*u + m.Nonlinear[1]*u + m.Nonlinear[0]
}

// Filter runs the linear block over v with zero initial state.
func (m *Model) Filter(v []float64) []float64 {
	y := make([]float64, len(v))
	for k := range v {
		acc := 0.0
		for i, b := range m.Feedforward {
			if k-i >= 0 {
				acc += b * v[k-i]
			}
		}
		for j, a := range m.Feedback {
			if k-j-1 >= 0 {
				acc -= a * y[k-j-1]
			}
		}
		y[k] = acc
	}
	return y
}

// Simulate produces the predicted trajectory for an actuation sequence.
func (m *Model) Simulate(us []float64) []float64 {
	v := make([]float64, len(us))
	for i, u := range us {
		v[i] = m.Intermediate(u)
	}
	return m.Filter(v)
}

// MSE returns the mean squared error against a sample sequence, and
// whether the predicted trajectory stayed finite and bounded.
func (m *Model) MSE(seq samples.Sequence) (float64, bool) {
	if len(seq) == 0 {
		return 0, false
	}
	pred := m.Simulate(seq.Actuations())
	sum := 0.0
	for i, sm := range seq {
		p := pred[i]
		if math.IsNaN(p) || math.IsInf(p, 0) || math.Abs(p) > DivergenceLimit {
			return 0, false
		}
		d := sm.Measurement - p
		sum += d * d
	}
	return sum / float64(len(seq)), true
}

// Stable simulates the linear block on a unit impulse and reports
// whether the response stays bounded over the horizon.
func (m *Model) Stable(horizon int) bool {
	if horizon <= 0 {
		horizon = 500
	}
	impulse := make([]float64, horizon)
	impulse[0] = 1
	resp := m.Filter(impulse)
	for _, y := range resp {
		if math.IsNaN(y) || math.IsInf(y, 0) || math.Abs(y) > DivergenceLimit {
			return false
		}
	}
	return true
}
