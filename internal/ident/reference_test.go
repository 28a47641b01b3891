package ident

import (
	"math"
	"testing"

	"github.com/MathBorgess/automation-engineering/internal/hammerstein"
	"github.com/MathBorgess/automation-engineering/internal/integrators"
	"github.com/MathBorgess/automation-engineering/internal/physics"
	"github.com/MathBorgess/automation-engineering/internal/plant"
	"github.com/MathBorgess/automation-engineering/internal/samples"
)

// tubeTrajectory runs the reference model open loop and returns the
// sequence labelled with its own trajectory.
func tubeTrajectory(tube *physics.BallTube, us []float64, integ plant.Integrator, dt float64) samples.Sequence {
	blank := make(samples.Sequence, len(us))
	for i, u := range us {
		blank[i] = plant.Sample{Actuation: u, Index: i}
	}
	rep := CrossValidate(blank, nil, tube, integ, dt)

	seq := make(samples.Sequence, len(us))
	for i, u := range us {
		seq[i] = plant.Sample{Actuation: u, Measurement: rep.Reference[i], Index: i}
	}
	return seq
}

func TestCrossValidateTracksTube(t *testing.T) {
	tube := physics.NewBallTube()

	// Measurements generated by the tube itself; the reference MSE
	// against its own trajectory must be essentially zero.
	us := excitation(100, 5)
	seq := tubeTrajectory(tube, us, nil, 0.05)

	rep := CrossValidate(seq, nil, tube, nil, 0.05)
	if rep.ReferenceMSE > 1e-12 {
		t.Errorf("reference model should reproduce its own trajectory, MSE=%e", rep.ReferenceMSE)
	}
	if !math.IsNaN(rep.FittedMSE) {
		t.Errorf("fitted MSE should be NaN without a model, got %f", rep.FittedMSE)
	}
}

func TestCrossValidateScoresFittedModel(t *testing.T) {
	tube := physics.NewBallTube()
	truth := &hammerstein.Model{
		Nonlinear:   [3]float64{0, 0.5, 0.2},
		Feedforward: []float64{0, 0.7},
		Feedback:    []float64{-1.0, 0.3},
	}
	seq := synthetic(truth, 100, 11)

	rep := CrossValidate(seq, truth, tube, nil, 0.05)
	if rep.FittedMSE > 1e-12 {
		t.Errorf("model should reproduce its own data, MSE=%e", rep.FittedMSE)
	}
	if len(rep.Reference) != len(seq) {
		t.Errorf("reference trajectory length %d, want %d", len(rep.Reference), len(seq))
	}
	if rep.ReferenceMSE <= 0 {
		t.Errorf("reference MSE against synthetic data should be positive, got %e", rep.ReferenceMSE)
	}
}

func TestCrossValidateIntegratorSelectable(t *testing.T) {
	tube := physics.NewBallTube()
	us := excitation(100, 5)

	for _, name := range []string{"euler", "rk4", "rk45"} {
		integ, err := integrators.New(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		seq := tubeTrajectory(tube, us, integ, 0.05)
		rep := CrossValidate(seq, nil, tube, integ, 0.05)
		if rep.ReferenceMSE > 1e-12 {
			t.Errorf("%s: self-trajectory MSE=%e", name, rep.ReferenceMSE)
		}
	}
}

func TestCrossValidateAdaptiveAgreesWithFixedStep(t *testing.T) {
	tube := physics.NewBallTube()
	us := excitation(80, 3)
	seq := tubeTrajectory(tube, us, integrators.NewRK4(), 0.05)

	// The adaptive default integrates the same dynamics; the two
	// trajectories must agree to well under a millimeter.
	rep := CrossValidate(seq, nil, tube, integrators.NewRK45(), 0.05)
	if rep.ReferenceMSE > 1e-8 {
		t.Errorf("adaptive and fixed-step trajectories diverge, MSE=%e", rep.ReferenceMSE)
	}
}
