package sim

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/MathBorgess/automation-engineering/internal/control"
	"github.com/MathBorgess/automation-engineering/internal/metrics"
)

// Ensemble runs seeded replicas of the same closed-loop experiment in
// parallel and aggregates their metrics. Controllers and metrics are
// built per replica through the factories since both carry state.
type Ensemble struct {
	cfg           Config
	newController func() control.Controller
	newMetrics    func() []metrics.Metric
	runs          int
	seedStart     uint64
}

// Summary is the cross-replica spread of one metric.
type Summary struct {
	Mean float64
	Std  float64
}

func NewEnsemble(cfg Config, newController func() control.Controller, newMetrics func() []metrics.Metric, runs int, seedStart uint64) *Ensemble {
	return &Ensemble{
		cfg:           cfg,
		newController: newController,
		newMetrics:    newMetrics,
		runs:          runs,
		seedStart:     seedStart,
	}
}

// Run executes every replica in automatic mode for the given step
// budget. Replica i uses seed seedStart+i so runs are reproducible.
func (e *Ensemble) Run(ctx context.Context, steps int) (map[string]Summary, error) {
	values := make([]map[string]float64, e.runs)
	errs := make([]error, e.runs)

	var wg sync.WaitGroup
	for i := 0; i < e.runs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfg := e.cfg
			cfg.Seed = e.seedStart + uint64(idx)

			s, err := New(cfg, e.newController())
			if err != nil {
				errs[idx] = err
				return
			}
			for _, m := range e.newMetrics() {
				s.AddMetric(m)
			}
			s.SetMode(Automatic)

			if _, err := s.Run(ctx, steps); err != nil {
				errs[idx] = err
				return
			}
			values[idx] = s.Metrics()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	byName := make(map[string][]float64)
	for _, vals := range values {
		for name, v := range vals {
			byName[name] = append(byName[name], v)
		}
	}

	out := make(map[string]Summary, len(byName))
	for name, vs := range byName {
		s := Summary{Mean: stat.Mean(vs, nil)}
		if len(vs) > 1 {
			s.Std = stat.StdDev(vs, nil)
		}
		out[name] = s
	}
	return out, nil
}
