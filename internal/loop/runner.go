// Package loop runs the closed control loop at a fixed cadence over a
// telemetry channel, tolerating missed or garbled samples.
package loop

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MathBorgess/automation-engineering/internal/control"
	"github.com/MathBorgess/automation-engineering/internal/metrics"
	"github.com/MathBorgess/automation-engineering/internal/telemetry"
)

type Config struct {
	// Interval is the sampling period; the rig runs at 50 ms.
	Interval time.Duration
	// ReadTimeout bounds each telemetry read. Zero means Interval.
	ReadTimeout time.Duration
	// Steps limits the run; zero runs until the context is cancelled.
	Steps int
	// InitialCommand is sent before the first reading arrives.
	InitialCommand float64
}

func DefaultConfig() Config {
	return Config{
		Interval:       50 * time.Millisecond,
		Steps:          0,
		InitialCommand: 0,
	}
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("loop: interval must be positive, got %v", c.Interval)
	}
	if c.InitialCommand < 0 || c.InitialCommand > 100 {
		return fmt.Errorf("loop: initial command must be in [0, 100], got %f", c.InitialCommand)
	}
	return nil
}

// Record is one loop cycle. Missed marks cycles where no valid
// reading arrived and the previous command was held.
type Record struct {
	Index    int
	Time     float64 // seconds since start, nominal
	Distance float64
	Command  float64
	Missed   bool
}

// Runner owns one controller and one channel for the duration of a
// run. It is not safe for concurrent use.
type Runner struct {
	ch   telemetry.Channel
	ctl  control.Controller
	cfg  Config
	log  *zap.Logger
	mets []metrics.Metric
}

func New(ch telemetry.Channel, ctl control.Controller, cfg Config, log *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ch: ch, ctl: ctl, cfg: cfg, log: log}, nil
}

func (r *Runner) AddMetric(m metrics.Metric) { r.mets = append(r.mets, m) }

// Run drives the loop: read a distance, step the controller, send the
// command, once per interval. A timed-out or invalid reading is a
// missed sample; the previous command stays applied and the
// controller is not stepped, so one glitch cannot kick the fan.
func (r *Runner) Run(ctx context.Context) ([]Record, error) {
	timeout := r.cfg.ReadTimeout
	if timeout <= 0 {
		timeout = r.cfg.Interval
	}
	dt := r.cfg.Interval.Seconds()

	command := r.cfg.InitialCommand
	if err := r.ch.SendFan(command); err != nil {
		return nil, err
	}

	lastDistance := 0.0
	records := make([]Record, 0, r.cfg.Steps)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for i := 0; r.cfg.Steps == 0 || i < r.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			r.log.Info("loop cancelled", zap.Int("steps", i))
			return records, ctx.Err()
		case <-ticker.C:
		}

		rec := Record{Index: i, Time: float64(i) * dt}

		distance, err := r.ch.ReadDistance(timeout)
		if err != nil {
			r.log.Debug("missed sample", zap.Int("step", i), zap.Error(err))
			rec.Missed = true
			rec.Distance = lastDistance
			rec.Command = command
		} else {
			lastDistance = distance
			command = r.ctl.Step(distance, dt)
			rec.Distance = distance
			rec.Command = command
		}

		if err := r.ch.SendFan(command); err != nil {
			return records, fmt.Errorf("loop: step %d: %w", i, err)
		}

		for _, m := range r.mets {
			m.Observe(rec.Distance, rec.Command, rec.Time)
		}
		records = append(records, rec)
	}

	r.log.Info("loop finished",
		zap.Int("steps", len(records)),
		zap.Float64("final_command", command))
	return records, nil
}

// Metrics snapshots the attached metric values by name.
func (r *Runner) Metrics() map[string]float64 {
	out := make(map[string]float64, len(r.mets))
	for _, m := range r.mets {
		out[m.Name()] = m.Value()
	}
	return out
}
