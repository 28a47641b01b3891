// Package sim is a stochastic discrete-time stand-in for the physical
// levitation rig: a fan at the bottom of a tube pushing a foam ball
// against gravity, read by a height sensor. Units are cgs (cm, g, s,
// dyn) to match the bench hardware's calibration.
package sim

import "fmt"

// Mode selects who drives the fan.
type Mode int

const (
	// Manual applies the externally set fan command.
	Manual Mode = iota
	// Automatic asks the attached controller each sample period.
	Automatic
)

func (m Mode) String() string {
	if m == Automatic {
		return "automatic"
	}
	return "manual"
}

// Config carries the rig geometry, physical constants and noise levels.
type Config struct {
	TubeHeight   float64 `yaml:"tube_height"`   // cm
	SensorHeight float64 `yaml:"sensor_height"` // cm, sensor housing above the tube
	GridHeight   float64 `yaml:"grid_height"`   // cm, protective grid above the fan
	BallRadius   float64 `yaml:"ball_radius"`   // cm

	Gravity     float64 `yaml:"gravity"`       // cm/s^2
	Mass        float64 `yaml:"mass"`          // g
	AirDensity  float64 `yaml:"air_density"`   // g/cm^3
	DragCoeff   float64 `yaml:"drag_coeff"`    // sphere
	FanForceMax float64 `yaml:"fan_force_max"` // dyn at 100% command
	WindDecay   float64 `yaml:"wind_decay"`    // airflow decay per cm above the grid

	SensorNoiseStd float64 `yaml:"sensor_noise_std"` // cm
	TurbulenceStd  float64 `yaml:"turbulence_std"`   // fraction of fan force
	ForceNoiseStd  float64 `yaml:"force_noise_std"`  // dyn

	SampleDt   float64 `yaml:"sample_dt"`   // s, control cadence
	InnerSteps int     `yaml:"inner_steps"` // physics substeps per sample

	InitialHeight float64 `yaml:"initial_height"` // cm, ball resting position

	// Seed fixes the noise stream; zero seeds from the wall clock.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig mirrors the bench rig.
func DefaultConfig() Config {
	return Config{
		TubeHeight:     100,
		SensorHeight:   2,
		GridHeight:     5,
		BallRadius:     3,
		Gravity:        980,
		Mass:           0.5,
		AirDensity:     0.001225,
		DragCoeff:      0.47,
		FanForceMax:    5000,
		WindDecay:      0.02,
		SensorNoiseStd: 2,
		TurbulenceStd:  0.5,
		ForceNoiseStd:  50,
		SampleDt:       0.05,
		InnerSteps:     5,
		InitialHeight:  5,
	}
}

func (c Config) Validate() error {
	if c.TubeHeight <= 0 || c.Mass <= 0 || c.Gravity <= 0 {
		return fmt.Errorf("sim: tube height, mass and gravity must be positive")
	}
	if c.SampleDt <= 0 {
		return fmt.Errorf("sim: sample dt must be positive, got %f", c.SampleDt)
	}
	if c.InnerSteps <= 0 {
		return fmt.Errorf("sim: inner steps must be positive, got %d", c.InnerSteps)
	}
	if c.MaxHeight() <= c.GridHeight {
		return fmt.Errorf("sim: tube leaves no room for the ball to move")
	}
	if c.SensorNoiseStd < 0 || c.TurbulenceStd < 0 || c.ForceNoiseStd < 0 {
		return fmt.Errorf("sim: noise levels must be non-negative")
	}
	return nil
}

// MaxHeight is the highest center position the ball can reach before
// touching the sensor housing.
func (c Config) MaxHeight() float64 {
	return c.TubeHeight - c.SensorHeight - c.BallRadius - 1
}

// MaxDistance is the largest reading the height sensor can produce.
func (c Config) MaxDistance() float64 {
	return c.TubeHeight + c.SensorHeight
}

// Record is one sample period of the simulation.
type Record struct {
	Time     float64
	Height   float64 // true ball center, cm
	Velocity float64 // cm/s
	Measured float64 // noisy sensor reading, cm
	Command  float64 // fan command applied, percent
	Mode     Mode
}

// Observer is notified after every sample period.
type Observer interface {
	OnStep(r Record)
}
