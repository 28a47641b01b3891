// Package telemetry speaks the rig's line protocol: the controller
// sends "FAN:<percent>" commands and the firmware answers with
// "DIST:<cm>" height readings at the sampling cadence.
package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

const (
	fanPrefix  = "FAN:"
	distPrefix = "DIST:"

	// MinDistance and MaxDistance bound plausible sensor readings in
	// cm; anything outside is a glitch and is discarded.
	MinDistance = 2.0
	MaxDistance = 400.0
)

// FormatFan renders a fan command line. The command is clamped to
// [0, 100] and sent as an integer percent, which is all the firmware's
// PWM resolution can use.
func FormatFan(command float64) string {
	pct := int(math.Round(plant.Clamp(command, 0, 100)))
	return fmt.Sprintf("%s%d\n", fanPrefix, pct)
}

// ParseDistance extracts the distance in cm from a sensor line.
// Malformed lines and readings outside [MinDistance, MaxDistance]
// return ErrInvalidTelemetry.
func ParseDistance(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, distPrefix) {
		return 0, fmt.Errorf("%w: %q", plant.ErrInvalidTelemetry, line)
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(line, distPrefix), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", plant.ErrInvalidTelemetry, line)
	}
	if math.IsNaN(v) || v < MinDistance || v > MaxDistance {
		return 0, errInvalidReading(v)
	}
	return v, nil
}

func errInvalidReading(v float64) error {
	return fmt.Errorf("%w: distance %.2f out of range", plant.ErrInvalidTelemetry, v)
}
