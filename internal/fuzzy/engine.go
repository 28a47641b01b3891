package fuzzy

import (
	"fmt"
	"math"
)

// TNorm combines antecedent memberships into a rule firing strength.
type TNorm func(a, b float64) float64

func Min(a, b float64) float64 {
	return math.Min(a, b)
}

func Product(a, b float64) float64 {
	return a * b
}

// Defuzzifier turns per-label activations into a crisp output. The
// boolean is false when total activation is zero and no crisp value
// exists.
type Defuzzifier interface {
	Defuzz(output *Variable, activation map[string]float64) (float64, bool)
}

// Centroid integrates the aggregated output shape (max of clipped
// label functions) over a discretized domain and returns its center
// of mass.
type Centroid struct {
	Resolution int
}

func (c Centroid) Defuzz(output *Variable, activation map[string]float64) (float64, bool) {
	res := c.Resolution
	if res <= 0 {
		res = 200
	}
	step := (output.Max - output.Min) / float64(res)

	num, den := 0.0, 0.0
	for i := 0; i <= res; i++ {
		x := output.Min + float64(i)*step
		mu := 0.0
		for _, l := range output.Labels {
			a := activation[l.Name]
			if a == 0 {
				continue
			}
			mu = math.Max(mu, math.Min(a, l.MF.Degree(x)))
		}
		num += x * mu
		den += mu
	}

	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// MeanOfMaxima averages the domain points where the aggregated shape
// reaches its maximum.
type MeanOfMaxima struct {
	Resolution int
}

func (m MeanOfMaxima) Defuzz(output *Variable, activation map[string]float64) (float64, bool) {
	res := m.Resolution
	if res <= 0 {
		res = 200
	}
	step := (output.Max - output.Min) / float64(res)

	maxMu := 0.0
	sum, count := 0.0, 0
	for i := 0; i <= res; i++ {
		x := output.Min + float64(i)*step
		mu := 0.0
		for _, l := range output.Labels {
			a := activation[l.Name]
			if a == 0 {
				continue
			}
			mu = math.Max(mu, math.Min(a, l.MF.Degree(x)))
		}
		switch {
		case mu > maxMu:
			maxMu = mu
			sum = x
			count = 1
		case mu == maxMu && mu > 0:
			sum += x
			count++
		}
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// Engine evaluates a rule base over its variables. Engines are
// immutable after construction; recalibration builds a new one.
type Engine struct {
	inputs []*Variable
	output *Variable
	rules  RuleBase
	and    TNorm
	defuzz Defuzzifier
}

func NewEngine(inputs []*Variable, output *Variable, rules RuleBase, and TNorm, defuzz Defuzzifier) (*Engine, error) {
	for _, v := range inputs {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	if output == nil {
		return nil, fmt.Errorf("fuzzy: engine needs an output variable")
	}
	if err := output.Validate(); err != nil {
		return nil, err
	}
	if err := rules.Validate(inputs, output); err != nil {
		return nil, err
	}
	if and == nil {
		and = Min
	}
	if defuzz == nil {
		defuzz = Centroid{}
	}
	return &Engine{inputs: inputs, output: output, rules: rules, and: and, defuzz: defuzz}, nil
}

// Output exposes the output variable for bound checks by callers.
func (e *Engine) Output() *Variable { return e.output }

// Input returns the named input variable, or nil.
func (e *Engine) Input(name string) *Variable {
	for _, v := range e.inputs {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Infer runs the full pipeline: clamp inputs into domain, fire rules,
// aggregate per output label by max, defuzzify. The boolean reports
// whether any rule fired; callers fall back to their previous output
// when it is false.
func (e *Engine) Infer(values map[string]float64) (float64, bool) {
	activation := make(map[string]float64, len(e.output.Labels))

	for _, r := range e.rules.Rules {
		strength := 1.0
		for _, v := range e.inputs {
			label, ok := r.If[v.Name]
			if !ok {
				continue
			}
			strength = e.and(strength, v.Degree(label, v.Clamp(values[v.Name])))
		}
		if strength > activation[r.Then] {
			activation[r.Then] = strength
		}
	}

	return e.defuzz.Defuzz(e.output, activation)
}
