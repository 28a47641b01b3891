// Package config holds the YAML-backed experiment configuration and a
// few named presets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MathBorgess/automation-engineering/internal/ident"
	"github.com/MathBorgess/automation-engineering/internal/sim"
)

const (
	DefaultSetpoint = 50.0
	DefaultAlpha    = 0.5
	DefaultMinSpeed = 20.0
	DefaultGain     = 1.0
	DefaultKp       = 2.0
	DefaultKi       = 0.3
	DefaultKd       = 0.5
	DefaultOffset   = 49.0
	DefaultDeadband = 1.0
	DefaultBaud     = 115200
)

type Config struct {
	// Setpoint is the target height in cm.
	Setpoint float64 `yaml:"setpoint"`
	// Controller selects "fuzzy", "proportional" or "pid".
	Controller string `yaml:"controller"`
	// DataDir is where runs are persisted.
	DataDir string `yaml:"data_dir"`

	Fuzzy        FuzzyConfig        `yaml:"fuzzy"`
	Proportional ProportionalConfig `yaml:"proportional"`
	PID          PIDConfig          `yaml:"pid"`

	Sim   sim.Config   `yaml:"sim"`
	Ident ident.Config `yaml:"ident"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
	Loop      LoopConfig      `yaml:"loop"`
}

type FuzzyConfig struct {
	Alpha    float64 `yaml:"alpha"`
	MinSpeed float64 `yaml:"min_speed"`
	Gain     float64 `yaml:"gain"`
	// SystemPath optionally loads a calibrated definition instead of
	// building the stock one around the setpoint.
	SystemPath string `yaml:"system_path"`
}

type ProportionalConfig struct {
	Kp       float64 `yaml:"kp"`
	Offset   float64 `yaml:"offset"`
	Deadband float64 `yaml:"deadband"`
}

type PIDConfig struct {
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Offset float64 `yaml:"offset"`
}

type TelemetryConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type LoopConfig struct {
	IntervalMs    int `yaml:"interval_ms"`
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
	Steps         int `yaml:"steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Setpoint:   DefaultSetpoint,
		Controller: "fuzzy",
		DataDir:    "runs",
		Fuzzy: FuzzyConfig{
			Alpha:    DefaultAlpha,
			MinSpeed: DefaultMinSpeed,
			Gain:     DefaultGain,
		},
		Proportional: ProportionalConfig{
			Kp:       DefaultKp,
			Offset:   57,
			Deadband: DefaultDeadband,
		},
		PID: PIDConfig{
			Kp:     DefaultKp,
			Ki:     DefaultKi,
			Kd:     DefaultKd,
			Offset: DefaultOffset,
		},
		Sim:   sim.DefaultConfig(),
		Ident: ident.DefaultConfig(),
		Telemetry: TelemetryConfig{
			Port: "/dev/ttyACM0",
			Baud: DefaultBaud,
		},
		Loop: LoopConfig{
			IntervalMs: 50,
			Steps:      0,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate is fatal-up-front: a bad configuration is reported before
// any loop or identification run starts.
func (c *Config) Validate() error {
	switch c.Controller {
	case "fuzzy", "proportional", "pid":
	default:
		return fmt.Errorf("config: unknown controller %q", c.Controller)
	}
	if err := c.Sim.Validate(); err != nil {
		return err
	}
	if c.Setpoint <= c.Sim.GridHeight || c.Setpoint >= c.Sim.MaxHeight() {
		return fmt.Errorf("config: setpoint %.1f outside the reachable band (%.1f, %.1f)",
			c.Setpoint, c.Sim.GridHeight, c.Sim.MaxHeight())
	}
	if err := c.Ident.Validate(); err != nil {
		return err
	}
	if c.Fuzzy.Alpha <= 0 || c.Fuzzy.Alpha > 1 {
		return fmt.Errorf("config: fuzzy alpha must be in (0, 1], got %f", c.Fuzzy.Alpha)
	}
	if c.Fuzzy.MinSpeed < 0 || c.Fuzzy.MinSpeed > 100 {
		return fmt.Errorf("config: fuzzy min speed must be in [0, 100], got %f", c.Fuzzy.MinSpeed)
	}
	if c.Loop.IntervalMs <= 0 {
		return fmt.Errorf("config: loop interval must be positive, got %d ms", c.Loop.IntervalMs)
	}
	if c.Telemetry.Baud <= 0 {
		return fmt.Errorf("config: baud rate must be positive, got %d", c.Telemetry.Baud)
	}
	return nil
}
