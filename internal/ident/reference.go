package ident

import (
	"math"

	"github.com/MathBorgess/automation-engineering/internal/hammerstein"
	"github.com/MathBorgess/automation-engineering/internal/integrators"
	"github.com/MathBorgess/automation-engineering/internal/physics"
	"github.com/MathBorgess/automation-engineering/internal/plant"
	"github.com/MathBorgess/automation-engineering/internal/samples"
)

// Report compares the fitted model and the first-principles force
// balance against the same measured data. The reference model is never
// part of the optimization; it is a plausibility check on its result.
type Report struct {
	FittedMSE    float64
	ReferenceMSE float64
	Fitted       []float64
	Reference    []float64
}

// CrossValidate integrates the ball-tube dynamics over the sample
// cadence and scores both trajectories against the measurements.
// sampleDt is the time between consecutive samples (50 ms on the rig).
// A nil integ defaults to the adaptive RK45 stepper; fixed-step
// integrators march each interval in ten substeps.
func CrossValidate(seq samples.Sequence, model *hammerstein.Model, tube *physics.BallTube, integ plant.Integrator, sampleDt float64) Report {
	seq = samples.Condition(seq)
	if integ == nil {
		integ = integrators.NewRK45()
	}

	rep := Report{Reference: make([]float64, len(seq))}
	if model != nil {
		rep.Fitted = model.Simulate(seq.Actuations())
	}

	x := plant.State{0, 0}
	refSum, fitSum := 0.0, 0.0
	for i, sm := range seq {
		rep.Reference[i] = x[0]

		d := sm.Measurement - x[0]
		refSum += d * d
		if rep.Fitted != nil {
			d = sm.Measurement - rep.Fitted[i]
			fitSum += d * d
		}

		x = advance(integ, tube, x, sm.Actuation, float64(i)*sampleDt, sampleDt)
		x = tube.ClampTube(x)
	}

	if n := float64(len(seq)); n > 0 {
		rep.ReferenceMSE = refSum / n
		if rep.Fitted != nil {
			rep.FittedMSE = fitSum / n
		} else {
			rep.FittedMSE = math.NaN()
		}
	}
	return rep
}

// advance marches the tube state across one sample interval. Adaptive
// steppers refine their own step size inside the interval; fixed
// steppers take ten equal substeps.
func advance(integ plant.Integrator, tube *physics.BallTube, x plant.State, u, t0, span float64) plant.State {
	if ad, ok := integ.(plant.AdaptiveIntegrator); ok {
		const tol = 1e-6
		end := t0 + span
		t, h := t0, span/4
		for t < end-1e-12 {
			if t+h > end {
				h = end - t
			}
			next, hNext, err := ad.StepAdaptive(tube, x, u, t, h, tol)
			if err != nil {
				break
			}
			x = next
			t += h
			// Step-size floor so a bad error estimate cannot
			// stall the march.
			h = math.Max(hNext, span/1e3)
		}
		return x
	}

	const substeps = 10
	h := span / substeps
	for s := 0; s < substeps; s++ {
		x = integ.Step(tube, x, u, t0+float64(s)*h, h)
	}
	return x
}
