package integrators

import (
	"math"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// Dormand-Prince 5(4) tableau. The seventh stage evaluates the
// derivative at the fifth-order solution (FSAL), so the stage
// coefficients of row seven double as the solution weights and only
// the error weights need listing separately.
var (
	dpNodes  = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpStages = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpErr = [7]float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	}
)

// RK45 is the Dormand-Prince embedded pair with step-size control.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(sys plant.System, x plant.State, u float64, t, dt float64) plant.State {
	newX, _, _ := r.StepAdaptive(sys, x, u, t, dt, 1e-6)
	return newX
}

// StepAdaptive advances one step of size dt and suggests the next step
// size from the embedded error estimate against tol. The step is
// always taken; callers that need strict error control re-step with
// the suggested size.
func (r *RK45) StepAdaptive(sys plant.System, x plant.State, u float64, t, dt, tol float64) (plant.State, float64, error) {
	n := len(x)

	var k [7]plant.State
	k[0] = sys.Derive(x, u, t)

	var xs plant.State
	for s := 1; s < 7; s++ {
		xs = make(plant.State, n)
		for i := 0; i < n; i++ {
			xi := x[i]
			for j := 0; j < s; j++ {
				xi += dt * dpStages[s][j] * k[j][i]
			}
			xs[i] = xi
		}
		k[s] = sys.Derive(xs, u, t+dpNodes[s]*dt)
	}
	// The stage-seven state is the fifth-order solution.
	newX := xs

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := 0.0
		for s := 0; s < 7; s++ {
			errEst += dpErr[s] * k[s][i]
		}
		errEst *= dt
		scale := math.Abs(x[i]) + math.Abs(dt*k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	errRatio := errMax / tol
	var dtNew float64
	switch {
	case errRatio > 1:
		dtNew = dt * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		dtNew = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		dtNew = dt * r.maxScale
	}

	return newX, dtNew, nil
}
