package sim

import (
	"context"
	"math"
	"testing"

	"github.com/MathBorgess/automation-engineering/internal/control"
	"github.com/MathBorgess/automation-engineering/internal/metrics"
)

func noiselessConfig() Config {
	cfg := DefaultConfig()
	cfg.SensorNoiseStd = 0
	cfg.TurbulenceStd = 0
	cfg.ForceNoiseStd = 0
	cfg.Seed = 1
	return cfg
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.SampleDt = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero sample dt should be rejected")
	}

	bad = DefaultConfig()
	bad.TubeHeight = 8
	if err := bad.Validate(); err == nil {
		t.Error("tube shorter than the grid clearance should be rejected")
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	run := func() []Record {
		cfg := DefaultConfig()
		cfg.Seed = 7
		s, err := New(cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		s.SetManual(60)
		recs, err := s.Run(context.Background(), 200)
		if err != nil {
			t.Fatal(err)
		}
		return recs
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d diverged: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestResetRestartsNoiseStream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 3
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.SetManual(55)

	first, err := s.Run(context.Background(), 50)
	if err != nil {
		t.Fatal(err)
	}
	s.Reset()
	second, err := s.Run(context.Background(), 50)
	if err != nil {
		t.Fatal(err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("step %d differs after reset: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBallStaysInsideTube(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 11
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Full throttle slams the ball against the top stop; the bounce
	// and clamp must keep it inside the tube.
	s.SetManual(100)
	recs, err := s.Run(context.Background(), 400)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if r.Height < cfg.GridHeight || r.Height > cfg.MaxHeight() {
			t.Fatalf("ball left the tube: height %f at t=%f", r.Height, r.Time)
		}
	}
}

func TestModeSwitchAppliesOnStepBoundary(t *testing.T) {
	cfg := noiselessConfig()
	ctl := control.NewPID(50, 49, 2, 0.3, 0.5)
	s, err := New(cfg, ctl)
	if err != nil {
		t.Fatal(err)
	}
	s.SetManual(30)

	r := s.Step()
	if r.Mode != Manual || r.Command != 30 {
		t.Fatalf("expected manual step at 30%%, got %+v", r)
	}

	s.SetMode(Automatic)
	r = s.Step()
	if r.Mode != Automatic {
		t.Fatalf("pending mode should apply on the next step, got %v", r.Mode)
	}
	if r.Command == 30 {
		t.Error("automatic step should come from the controller")
	}
}

func TestZeroNoiseAutomaticSettles(t *testing.T) {
	cfg := noiselessConfig()
	cfg.InitialHeight = 45

	ctl := control.NewPID(50, 49, 2, 0.3, 0.5)
	s, err := New(cfg, ctl)
	if err != nil {
		t.Fatal(err)
	}
	settling := metrics.NewSettlingTime(50, 2)
	s.AddMetric(settling)
	s.SetMode(Automatic)

	recs, err := s.Run(context.Background(), 600)
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range recs[len(recs)-200:] {
		if math.Abs(r.Height-50) > 2 {
			t.Fatalf("height %f outside settling band at t=%f", r.Height, r.Time)
		}
	}
	if math.IsNaN(settling.Value()) {
		t.Error("settling metric should report a settle time")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	s, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	recs, err := s.Run(ctx, 100)
	if err == nil {
		t.Error("cancelled run should return the context error")
	}
	if len(recs) != 0 {
		t.Errorf("cancelled run should stop immediately, got %d records", len(recs))
	}
}

func TestEnsembleAggregatesMetrics(t *testing.T) {
	cfg := noiselessConfig()
	cfg.InitialHeight = 45

	ens := NewEnsemble(cfg,
		func() control.Controller { return control.NewPID(50, 49, 2, 0.3, 0.5) },
		func() []metrics.Metric { return []metrics.Metric{metrics.NewSetpointMSE(50), metrics.NewControlEffort()} },
		3, 100)

	summary, err := ens.Run(context.Background(), 200)
	if err != nil {
		t.Fatal(err)
	}

	mse, ok := summary["setpoint_mse"]
	if !ok {
		t.Fatal("missing setpoint_mse summary")
	}
	if mse.Mean <= 0 {
		t.Errorf("regulation from below the setpoint should leave some error, got %f", mse.Mean)
	}
	// Zero noise makes every replica identical regardless of seed.
	if mse.Std != 0 {
		t.Errorf("noise-free replicas should agree exactly, std %f", mse.Std)
	}

	if summary["control_effort"].Mean <= 0 {
		t.Error("control effort should be positive")
	}
}
