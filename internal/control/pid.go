package control

import (
	"time"

	"go.einride.tech/pid"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// PID wraps a textbook PID around the distance error and adds a fixed
// feedforward offset near the plant's hover command. The derivative
// term provides the damping the levitation dynamics lack on their own.
type PID struct {
	Setpoint float64
	Offset   float64
	ctl      pid.Controller
}

func NewPID(setpoint, offset, kp, ki, kd float64) *PID {
	return &PID{
		Setpoint: setpoint,
		Offset:   offset,
		ctl: pid.Controller{
			Config: pid.ControllerConfig{
				ProportionalGain: kp,
				IntegralGain:     ki,
				DerivativeGain:   kd,
			},
		},
	}
}

func (p *PID) Step(distance, dt float64) float64 {
	p.ctl.Update(pid.ControllerInput{
		ReferenceSignal:  p.Setpoint,
		ActualSignal:     distance,
		SamplingInterval: time.Duration(dt * float64(time.Second)),
	})
	return plant.Clamp(p.Offset+p.ctl.State.ControlSignal, 0, 100)
}

func (p *PID) Reset() { p.ctl.Reset() }
