package telemetry

import (
	"time"

	"github.com/MathBorgess/automation-engineering/internal/sim"
)

// Channel is one leg of the control loop: push a fan command out,
// pull a distance reading back. Implementations decide the transport.
type Channel interface {
	SendFan(command float64) error
	ReadDistance(timeout time.Duration) (float64, error)
	Close() error
}

// SimChannel drives the plant simulator through the same interface as
// the hardware, so the loop runner cannot tell them apart. Each read
// advances the simulation by one sample period.
type SimChannel struct {
	sim     *sim.Simulator
	command float64
}

func NewSimChannel(s *sim.Simulator) *SimChannel {
	return &SimChannel{sim: s}
}

func (c *SimChannel) SendFan(command float64) error {
	c.command = command
	c.sim.SetManual(command)
	return nil
}

func (c *SimChannel) ReadDistance(timeout time.Duration) (float64, error) {
	r := c.sim.Step()
	if r.Measured < MinDistance || r.Measured > MaxDistance {
		return 0, errInvalidReading(r.Measured)
	}
	return r.Measured, nil
}

func (c *SimChannel) Close() error { return nil }
