package control

import (
	"math"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// Proportional is the offset-plus-gain baseline controller. Inside the
// deadband it holds the base offset so the fan never cuts out while
// the ball hovers around the setpoint.
type Proportional struct {
	Setpoint float64
	Kp       float64
	Offset   float64
	Deadband float64
}

func (p *Proportional) Step(distance, dt float64) float64 {
	e := p.Setpoint - distance
	if math.Abs(e) <= p.Deadband {
		return plant.Clamp(p.Offset, 0, 100)
	}
	return plant.Clamp(p.Offset+p.Kp*e, 0, 100)
}

func (p *Proportional) Reset() {}
