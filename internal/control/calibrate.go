package control

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/MathBorgess/automation-engineering/internal/fuzzy"
	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// DistanceVariable builds the five-label input axis around the target
// distance. The breakpoints scale with the target so retuning the
// setpoint reshapes the whole axis; the guards keep the triangles
// valid and the domain fully covered for any reachable target.
func DistanceVariable(target, max float64) fuzzy.Variable {
	t := plant.Clamp(target, 5, 0.7*max)

	mlTop := math.Max(0.3*t, 5)

	highEnd := math.Min(2*t, 0.8*max)
	highPeak := 1.5 * t
	if highPeak >= highEnd {
		highPeak = 0.5 * (1.1*t + highEnd)
	}

	mhStart := math.Max(1.5*t, 0.6*max)
	if mhStart >= highEnd {
		mhStart = 0.5 * (highPeak + highEnd)
	}

	return fuzzy.Variable{
		Name: DistanceVar,
		Min:  0,
		Max:  max,
		Labels: []fuzzy.Label{
			{Name: "much_low", MF: fuzzy.Tri(0, 0, mlTop)},
			{Name: "low", MF: fuzzy.Tri(0, 0.5*t, 0.9*t)},
			{Name: "ideal", MF: fuzzy.Tri(0.7*t, t, 1.3*t)},
			{Name: "high", MF: fuzzy.Tri(1.1*t, highPeak, highEnd)},
			{Name: "much_high", MF: fuzzy.Tri(mhStart, max, max)},
		},
	}
}

// SpeedVariable is the fixed output axis over [0, 100] percent.
func SpeedVariable() fuzzy.Variable {
	return fuzzy.Variable{
		Name: SpeedVar,
		Min:  0,
		Max:  100,
		Labels: []fuzzy.Label{
			{Name: "very_slow", MF: fuzzy.Tri(0, 0, 20)},
			{Name: "slow", MF: fuzzy.Tri(0, 20, 40)},
			{Name: "medium", MF: fuzzy.Tri(30, 50, 70)},
			{Name: "fast", MF: fuzzy.Tri(60, 80, 100)},
			{Name: "very_fast", MF: fuzzy.Tri(80, 100, 100)},
		},
	}
}

// DefaultRules maps each distance band to a speed band. A ball below
// the setpoint reads a short distance and needs more airflow, so the
// mapping runs low distance to high speed.
func DefaultRules() fuzzy.RuleBase {
	return fuzzy.RuleBase{Rules: []fuzzy.Rule{
		{If: map[string]string{DistanceVar: "much_low"}, Then: "very_fast"},
		{If: map[string]string{DistanceVar: "low"}, Then: "fast"},
		{If: map[string]string{DistanceVar: "ideal"}, Then: "medium"},
		{If: map[string]string{DistanceVar: "high"}, Then: "slow"},
		{If: map[string]string{DistanceVar: "much_high"}, Then: "very_slow"},
	}}
}

// DefaultSystem bundles the stock variables and rules into a
// serializable definition with min combination and centroid
// defuzzification.
func DefaultSystem(setpoint, maxDistance float64) *fuzzy.System {
	return &fuzzy.System{
		Inputs: []fuzzy.Variable{DistanceVariable(setpoint, maxDistance)},
		Output: SpeedVariable(),
		Rules:  DefaultRules(),
		AndOp:  "min",
		Defuzz: "centroid",
	}
}

// Point is one historical observation used for calibration.
type Point struct {
	Distance float64
	Speed    float64
}

// CalibrateFromHistory derives a fresh controller definition from
// logged (distance, speed) pairs. The input axis is recentered on the
// mean observed distance and each distance band's consequent is
// replaced by the speed band closest to the mean speed seen inside it.
// Bands with no supporting observations keep their default consequent.
// The result is a new immutable definition; nothing held by a running
// loop is touched.
func CalibrateFromHistory(pts []Point, maxDistance float64) (*fuzzy.System, error) {
	if len(pts) == 0 {
		return nil, plant.ErrNoSamples
	}

	distances := make([]float64, len(pts))
	for i, p := range pts {
		distances[i] = p.Distance
	}
	target := stat.Mean(distances, nil)

	in := DistanceVariable(target, maxDistance)
	out := SpeedVariable()
	rules := DefaultRules()

	for i, r := range rules.Rules {
		label := r.If[DistanceVar]
		sum, weight := 0.0, 0.0
		for _, p := range pts {
			mu := in.Degree(label, p.Distance)
			sum += mu * p.Speed
			weight += mu
		}
		if weight == 0 {
			continue
		}
		rules.Rules[i].Then = nearestSpeedLabel(&out, sum/weight)
	}

	return &fuzzy.System{
		Inputs: []fuzzy.Variable{in},
		Output: out,
		Rules:  rules,
		AndOp:  "min",
		Defuzz: "centroid",
	}, nil
}

// nearestSpeedLabel picks the output label whose peak membership sits
// closest to the crisp speed.
func nearestSpeedLabel(out *fuzzy.Variable, speed float64) string {
	best := out.Labels[0].Name
	bestDist := math.Inf(1)
	for _, l := range out.Labels {
		peak := l.MF.Points[1]
		if d := math.Abs(peak - speed); d < bestDist {
			best = l.Name
			bestDist = d
		}
	}
	return best
}
