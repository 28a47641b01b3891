package integrators

import (
	"fmt"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// New returns the named stepper. Known methods: euler, rk4, rk45.
func New(name string) (plant.Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	case "rk45":
		return NewRK45(), nil
	}
	return nil, fmt.Errorf("integrators: unknown method %q", name)
}
