package control

import "fmt"

// State is the per-loop controller memory. Each control cycle consumes
// a State and produces the next one; a State is owned by exactly one
// controller instance and never shared across loops.
type State struct {
	// PrevOutput is the fan command applied on the previous cycle.
	PrevOutput float64 `yaml:"prev_output"`
	// Setpoint is the target distance in the sensor's unit.
	Setpoint float64 `yaml:"setpoint"`
	// Alpha is the exponential smoothing factor in (0, 1]; 1 disables
	// smoothing.
	Alpha float64 `yaml:"alpha"`
	// MinSpeed is the anti-stall floor on the final command, in [0, 100].
	MinSpeed float64 `yaml:"min_speed"`
	// Gain scales the proportional correction added to the fuzzy output.
	Gain float64 `yaml:"gain"`
}

func (s State) Validate() error {
	if s.Alpha <= 0 || s.Alpha > 1 {
		return fmt.Errorf("control: alpha must be in (0, 1], got %f", s.Alpha)
	}
	if s.MinSpeed < 0 || s.MinSpeed > 100 {
		return fmt.Errorf("control: min speed must be in [0, 100], got %f", s.MinSpeed)
	}
	if s.PrevOutput < 0 || s.PrevOutput > 100 {
		return fmt.Errorf("control: previous output must be in [0, 100], got %f", s.PrevOutput)
	}
	if s.Setpoint <= 0 {
		return fmt.Errorf("control: setpoint must be positive, got %f", s.Setpoint)
	}
	return nil
}
