package integrators

import "github.com/MathBorgess/automation-engineering/internal/plant"

// Euler is the first-order explicit stepper.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys plant.System, x plant.State, u float64, t float64, dt float64) plant.State {
	dx := sys.Derive(x, u, t)
	result := make(plant.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
