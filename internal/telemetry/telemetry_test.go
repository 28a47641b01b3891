package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/MathBorgess/automation-engineering/internal/plant"
	"github.com/MathBorgess/automation-engineering/internal/sim"
)

func TestFormatFan(t *testing.T) {
	tests := []struct {
		command float64
		want    string
	}{
		{0, "FAN:0\n"},
		{49.4, "FAN:49\n"},
		{49.5, "FAN:50\n"},
		{100, "FAN:100\n"},
		{130, "FAN:100\n"},
		{-5, "FAN:0\n"},
	}
	for _, tt := range tests {
		if got := FormatFan(tt.command); got != tt.want {
			t.Errorf("FormatFan(%f) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestParseDistance(t *testing.T) {
	good := []struct {
		line string
		want float64
	}{
		{"DIST:50.5\n", 50.5},
		{"DIST:2", 2},
		{"DIST:400\r\n", 400},
	}
	for _, tt := range good {
		got, err := ParseDistance(tt.line)
		if err != nil {
			t.Errorf("ParseDistance(%q): %v", tt.line, err)
		}
		if got != tt.want {
			t.Errorf("ParseDistance(%q) = %f, want %f", tt.line, got, tt.want)
		}
	}

	bad := []string{
		"", "garbage", "DIST:", "DIST:abc", "FAN:50",
		"DIST:1.9", "DIST:400.1", "DIST:-3", "DIST:NaN",
	}
	for _, line := range bad {
		if _, err := ParseDistance(line); !errors.Is(err, plant.ErrInvalidTelemetry) {
			t.Errorf("ParseDistance(%q) should fail with ErrInvalidTelemetry, got %v", line, err)
		}
	}
}

func TestSimChannelRoundTrip(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Seed = 5
	cfg.SensorNoiseStd = 0
	cfg.InitialHeight = 40
	s, err := sim.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	ch := NewSimChannel(s)
	defer ch.Close()

	if err := ch.SendFan(60); err != nil {
		t.Fatal(err)
	}
	d, err := ch.ReadDistance(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if d < MinDistance || d > MaxDistance {
		t.Errorf("reading %f outside plausible range", d)
	}

	// Each read advances the plant by one sample period.
	if s.Time() == 0 {
		t.Error("read should step the simulation")
	}
}
