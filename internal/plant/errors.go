package plant

import "errors"

// Domain errors shared across the levitation packages.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("plant: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates a model or simulation diverged.
	ErrUnstable = errors.New("plant: unstable (output diverged)")

	// ErrParameterBounds indicates a parameter value outside its valid range.
	ErrParameterBounds = errors.New("plant: parameter out of valid bounds")

	// ErrNoSamples indicates an empty or fully rejected sample sequence.
	ErrNoSamples = errors.New("plant: no usable samples")

	// ErrEmptyRuleBase indicates a fuzzy rule base with no rules.
	ErrEmptyRuleBase = errors.New("plant: empty rule base")

	// ErrTelemetryTimeout indicates no valid telemetry arrived in time.
	ErrTelemetryTimeout = errors.New("plant: telemetry read timed out")

	// ErrInvalidTelemetry indicates a malformed or out-of-range telemetry line.
	ErrInvalidTelemetry = errors.New("plant: invalid telemetry")
)
