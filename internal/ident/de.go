// Package ident fits Hammerstein models to sample sequences using a
// differential-evolution search (best/1/bin), and cross-validates the
// result against the reference physical model.
package ident

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/MathBorgess/automation-engineering/internal/hammerstein"
	"github.com/MathBorgess/automation-engineering/internal/plant"
	"github.com/MathBorgess/automation-engineering/internal/samples"
)

// Bound is one parameter's search interval.
type Bound struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

type Config struct {
	PopSize   int     `yaml:"pop_size"`
	MaxGens   int     `yaml:"max_gens"`
	Mutation  float64 `yaml:"mutation"`  // differential weight F
	Crossover float64 `yaml:"crossover"` // crossover probability CR
	Tolerance float64 `yaml:"tolerance"` // fitness spread for early stop; 0 disables
	Seed      int64   `yaml:"seed"`
	NB        int     `yaml:"nb"` // feedforward taps after the unit delay
	NA        int     `yaml:"na"` // feedback taps
	Bounds    []Bound `yaml:"bounds"`
	Workers   int     `yaml:"workers"`
	Penalty   float64 `yaml:"penalty"`
}

// Dim is the search-space dimensionality: three nonlinear coefficients
// plus the filter taps.
func (c *Config) Dim() int { return 3 + c.NB + c.NA }

func DefaultConfig() Config {
	return Config{
		PopSize:   20,
		MaxGens:   50,
		Mutation:  0.7,
		Crossover: 0.7,
		Tolerance: 0,
		NB:        1,
		NA:        2,
		Bounds: []Bound{
			{-10, 10}, {-10, 10}, {-5, 5}, // c0, c1, c2
			{-5, 5},         // b1
			{-2, 2}, {-1, 1}, // a1, a2
		},
		Penalty: 1e9,
	}
}

func (c *Config) Validate() error {
	if c.PopSize < 4 {
		return fmt.Errorf("ident: population size must be at least 4, got %d", c.PopSize)
	}
	if c.MaxGens <= 0 {
		return fmt.Errorf("ident: generation budget must be positive, got %d", c.MaxGens)
	}
	if c.Mutation <= 0 || c.Mutation > 2 {
		return fmt.Errorf("ident: mutation factor must be in (0, 2], got %f", c.Mutation)
	}
	if c.Crossover < 0 || c.Crossover > 1 {
		return fmt.Errorf("ident: crossover probability must be in [0, 1], got %f", c.Crossover)
	}
	if c.NB < 1 || c.NA < 0 {
		return fmt.Errorf("ident: filter orders nb=%d na=%d invalid", c.NB, c.NA)
	}
	if len(c.Bounds) != c.Dim() {
		return fmt.Errorf("ident: got %d bounds, want %d (3 nonlinear + %d ff + %d fb)",
			len(c.Bounds), c.Dim(), c.NB, c.NA)
	}
	for i, b := range c.Bounds {
		if b.Lo >= b.Hi {
			return fmt.Errorf("ident: bound %d is empty [%f, %f]", i, b.Lo, b.Hi)
		}
	}
	if c.Penalty <= 0 {
		return fmt.Errorf("ident: penalty must be positive, got %f", c.Penalty)
	}
	return nil
}

// candidate is one population member; owned by a single generation.
type candidate struct {
	params  []float64
	fitness float64
}

type Engine struct {
	cfg Config
	rng *rand.Rand
	log *zap.Logger
}

// New validates the configuration up front; an invalid configuration
// never starts a run.
func New(cfg Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		log: log,
	}, nil
}

// decode maps a parameter vector onto a model. The feedforward block
// gets a leading zero tap so the filter carries a one-step delay.
func (e *Engine) decode(params []float64) *hammerstein.Model {
	m := &hammerstein.Model{
		Nonlinear:   [3]float64{params[0], params[1], params[2]},
		Feedforward: make([]float64, 1+e.cfg.NB),
		Feedback:    make([]float64, e.cfg.NA),
	}
	copy(m.Feedforward[1:], params[3:3+e.cfg.NB])
	copy(m.Feedback, params[3+e.cfg.NB:])
	return m
}

// fitness penalizes unstable or diverging filters with a large finite
// value instead of failing the run.
func (e *Engine) fitness(params []float64, seq samples.Sequence) float64 {
	m := e.decode(params)
	if !m.Stable(500) {
		return e.cfg.Penalty
	}
	mse, ok := m.MSE(seq)
	if !ok {
		return e.cfg.Penalty
	}
	return mse
}

// Identify runs the search and returns the best model with its MSE.
// Fitness evaluations within a generation run in parallel; trial
// construction and selection are serialized so a fixed seed reproduces
// the exact same result. Cancellation is honored between generations.
func (e *Engine) Identify(ctx context.Context, seq samples.Sequence) (*hammerstein.Model, float64, error) {
	seq = samples.Condition(seq)
	if len(seq) == 0 {
		return nil, 0, plant.ErrNoSamples
	}

	dim := e.cfg.Dim()
	pop := make([]candidate, e.cfg.PopSize)
	for i := range pop {
		p := make([]float64, dim)
		for d, b := range e.cfg.Bounds {
			p[d] = b.Lo + e.rng.Float64()*(b.Hi-b.Lo)
		}
		pop[i] = candidate{params: p}
	}
	e.evaluate(pop, seq, func(i int) []float64 { return pop[i].params },
		func(i int, f float64) { pop[i].fitness = f })

	best := bestIndex(pop)
	e.log.Debug("initial population evaluated",
		zap.Int("pop_size", len(pop)),
		zap.Float64("best_mse", pop[best].fitness))

	trials := make([][]float64, len(pop))
	trialFit := make([]float64, len(pop))

	gen := 0
	for ; gen < e.cfg.MaxGens; gen++ {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		// Trial vectors are drawn serially from the engine RNG.
		for i := range pop {
			trials[i] = e.trial(pop, i, best)
		}

		e.evaluate(pop, seq, func(i int) []float64 { return trials[i] },
			func(i int, f float64) { trialFit[i] = f })

		// Greedy selection, serialized; ties keep the lower-index
		// incumbent ordering deterministic.
		for i := range pop {
			if trialFit[i] <= pop[i].fitness {
				pop[i] = candidate{params: trials[i], fitness: trialFit[i]}
			}
		}
		best = bestIndex(pop)

		if e.cfg.Tolerance > 0 && fitnessSpread(pop) < e.cfg.Tolerance {
			gen++
			break
		}
	}

	e.log.Info("identification finished",
		zap.Int("generations", gen),
		zap.Float64("best_mse", pop[best].fitness))

	// A best candidate still at the penalty never simulated cleanly;
	// returning it would hand the caller an unstable model.
	if pop[best].fitness >= e.cfg.Penalty {
		return nil, 0, fmt.Errorf("ident: no stable candidate found within bounds: %w", plant.ErrUnstable)
	}

	model := e.decode(pop[best].params)
	return model, pop[best].fitness, nil
}

// trial builds a best/1/bin trial vector for candidate i.
func (e *Engine) trial(pop []candidate, i, best int) []float64 {
	dim := e.cfg.Dim()
	r1 := e.pick(len(pop), i, best)
	r2 := e.pick(len(pop), i, best, r1)

	t := make([]float64, dim)
	forced := e.rng.Intn(dim)
	for d := 0; d < dim; d++ {
		if d == forced || e.rng.Float64() < e.cfg.Crossover {
			v := pop[best].params[d] + e.cfg.Mutation*(pop[r1].params[d]-pop[r2].params[d])
			t[d] = plant.Clamp(v, e.cfg.Bounds[d].Lo, e.cfg.Bounds[d].Hi)
		} else {
			t[d] = pop[i].params[d]
		}
	}
	return t
}

// pick draws a population index distinct from all excluded ones.
func (e *Engine) pick(n int, exclude ...int) int {
	for {
		r := e.rng.Intn(n)
		ok := true
		for _, x := range exclude {
			if r == x {
				ok = false
				break
			}
		}
		if ok {
			return r
		}
	}
}

// evaluate computes fitness for every candidate in parallel chunks.
func (e *Engine) evaluate(pop []candidate, seq samples.Sequence, params func(int) []float64, set func(int, float64)) {
	n := len(pop)
	workers := e.cfg.Workers
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, t int) {
			defer wg.Done()
			for i := s; i < t; i++ {
				set(i, e.fitness(params(i), seq))
			}
		}(start, end)
	}
	wg.Wait()
}

func bestIndex(pop []candidate) int {
	best := 0
	for i := 1; i < len(pop); i++ {
		if pop[i].fitness < pop[best].fitness {
			best = i
		}
	}
	return best
}

func fitnessSpread(pop []candidate) float64 {
	fs := make([]float64, len(pop))
	for i, c := range pop {
		fs[i] = c.fitness
	}
	return stat.StdDev(fs, nil)
}
