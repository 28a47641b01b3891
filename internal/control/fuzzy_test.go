package control

import (
	"math"
	"testing"

	"github.com/onsi/gomega"

	"github.com/MathBorgess/automation-engineering/internal/fuzzy"
)

const testMaxDistance = 102.0

func defaultState() State {
	return State{
		PrevOutput: 50,
		Setpoint:   50,
		Alpha:      0.5,
		MinSpeed:   20,
		Gain:       1,
	}
}

func TestStateValidate(t *testing.T) {
	if err := defaultState().Validate(); err != nil {
		t.Errorf("default state should validate: %v", err)
	}

	bad := []State{
		{PrevOutput: 50, Setpoint: 50, Alpha: 0, MinSpeed: 20},
		{PrevOutput: 50, Setpoint: 50, Alpha: 1.5, MinSpeed: 20},
		{PrevOutput: 50, Setpoint: 50, Alpha: 0.5, MinSpeed: -1},
		{PrevOutput: 50, Setpoint: 50, Alpha: 0.5, MinSpeed: 120},
		{PrevOutput: 150, Setpoint: 50, Alpha: 0.5, MinSpeed: 20},
		{PrevOutput: 50, Setpoint: -5, Alpha: 0.5, MinSpeed: 20},
	}
	for i, st := range bad {
		if err := st.Validate(); err == nil {
			t.Errorf("state %d should be rejected", i)
		}
	}
}

func TestOutputBoundsAndFloor(t *testing.T) {
	g := gomega.NewWithT(t)

	eng, err := DefaultSystem(50, testMaxDistance).Build()
	g.Expect(err).NotTo(gomega.HaveOccurred())

	st := defaultState()
	for d := 0.0; d <= testMaxDistance; d += 0.5 {
		out, next := Evaluate(eng, d, st)
		g.Expect(out).To(gomega.BeNumerically(">=", st.MinSpeed), "distance %f", d)
		g.Expect(out).To(gomega.BeNumerically("<=", 100.0), "distance %f", d)
		st = next
	}
}

func TestOutOfDomainDistanceClamped(t *testing.T) {
	eng, err := DefaultSystem(50, testMaxDistance).Build()
	if err != nil {
		t.Fatal(err)
	}

	// A reading outside the sensor domain must behave exactly like
	// the nearest in-domain one, proportional correction included.
	// The small gain keeps the correction away from the [0, 100]
	// clamp, which would otherwise hide a term fed the raw reading.
	st := defaultState()
	st.Gain = 0.1

	wildHigh, _ := Evaluate(eng, testMaxDistance+40, st)
	edgeHigh, _ := Evaluate(eng, testMaxDistance, st)
	if wildHigh != edgeHigh {
		t.Errorf("distance beyond domain gave %f, domain edge gave %f", wildHigh, edgeHigh)
	}

	wildLow, _ := Evaluate(eng, -40, st)
	edgeLow, _ := Evaluate(eng, 0, st)
	if wildLow != edgeLow {
		t.Errorf("negative distance gave %f, domain edge gave %f", wildLow, edgeLow)
	}
}

func TestDeterministicSequences(t *testing.T) {
	distances := []float64{48, 52, 45, 60, 30, 55, 50, 49.5, 70, 10, 50}

	run := func() []float64 {
		f, err := NewDefaultFuzzy(defaultState(), testMaxDistance)
		if err != nil {
			t.Fatal(err)
		}
		outs := make([]float64, len(distances))
		for i, d := range distances {
			outs[i] = f.Step(d, 0.05)
		}
		return outs
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("step %d diverged: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestSmoothingConvergesMonotonically(t *testing.T) {
	eng, err := DefaultSystem(50, testMaxDistance).Build()
	if err != nil {
		t.Fatal(err)
	}

	// Constant distance at the setpoint with zero gain makes the
	// corrected input a constant; the filter must walk from the
	// initial output toward it without ever crossing.
	st := State{PrevOutput: 90, Setpoint: 50, Alpha: 0.3, MinSpeed: 0, Gain: 0}
	target, _ := Evaluate(eng, 50, State{PrevOutput: 90, Setpoint: 50, Alpha: 1, MinSpeed: 0, Gain: 0})

	prev := st.PrevOutput
	for i := 0; i < 40; i++ {
		out, next := Evaluate(eng, 50, st)
		if out > prev {
			t.Fatalf("step %d: output rose from %f to %f while converging down", i, prev, out)
		}
		if out < target-1e-9 {
			t.Fatalf("step %d: output %f crossed below target %f", i, out, target)
		}
		prev, st = out, next
	}
	if math.Abs(prev-target) > 0.1 {
		t.Errorf("output %f did not approach target %f", prev, target)
	}
}

func TestBallBelowSetpointGetsMoreAir(t *testing.T) {
	eng, err := DefaultSystem(50, testMaxDistance).Build()
	if err != nil {
		t.Fatal(err)
	}

	st := State{PrevOutput: 50, Setpoint: 50, Alpha: 1, MinSpeed: 0, Gain: 1}
	below, _ := Evaluate(eng, 45, st)
	above, _ := Evaluate(eng, 55, st)
	if below <= above {
		t.Errorf("low ball should get more air: below=%f above=%f", below, above)
	}
}

func TestZeroActivationReusesPreviousOutput(t *testing.T) {
	g := gomega.NewWithT(t)

	// A rule base covering only the ideal band fires nothing for a
	// distance near the floor of the tube.
	in := DistanceVariable(50, testMaxDistance)
	out := SpeedVariable()
	rules := fuzzy.RuleBase{Rules: []fuzzy.Rule{
		{If: map[string]string{DistanceVar: "ideal"}, Then: "medium"},
	}}
	eng, err := fuzzy.NewEngine([]*fuzzy.Variable{&in}, &out, rules, fuzzy.Min, fuzzy.Centroid{})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	st := State{PrevOutput: 42, Setpoint: 50, Alpha: 0.5, MinSpeed: 0, Gain: 1}
	got, next := Evaluate(eng, 5, st)
	g.Expect(got).To(gomega.Equal(42.0))
	g.Expect(next).To(gomega.Equal(st))
}

func TestDefaultSystemBuildsAcrossSetpoints(t *testing.T) {
	for _, sp := range []float64{5, 10, 30, 50, 60, 70, 90} {
		if _, err := DefaultSystem(sp, testMaxDistance).Build(); err != nil {
			t.Errorf("setpoint %f: %v", sp, err)
		}
	}
}

func TestRetargetMovesIdealBand(t *testing.T) {
	g := gomega.NewWithT(t)

	f, err := NewDefaultFuzzy(defaultState(), testMaxDistance)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	g.Expect(f.Retarget(30, testMaxDistance)).To(gomega.Succeed())
	g.Expect(f.State().Setpoint).To(gomega.Equal(30.0))

	// Holding at the new setpoint should now read as ideal, not high.
	out := f.Step(30, 0.05)
	g.Expect(out).To(gomega.BeNumerically("~", 50, 15))
}

func TestCalibrateFromHistory(t *testing.T) {
	g := gomega.NewWithT(t)

	pts := []Point{
		{Distance: 38, Speed: 60},
		{Distance: 40, Speed: 58},
		{Distance: 42, Speed: 62},
	}
	sys, err := CalibrateFromHistory(pts, testMaxDistance)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	// Input axis recentered on the observed mean.
	ideal := sys.Inputs[0].Labels[2]
	g.Expect(ideal.Name).To(gomega.Equal("ideal"))
	g.Expect(ideal.MF.Points[1]).To(gomega.BeNumerically("~", 40, 1e-9))

	// The supported band adopts the speed label nearest the observed
	// mean speed; unsupported bands keep their defaults.
	for _, r := range sys.Rules.Rules {
		switch r.If[DistanceVar] {
		case "ideal":
			g.Expect(r.Then).To(gomega.Equal("medium"))
		case "much_low":
			g.Expect(r.Then).To(gomega.Equal("very_fast"))
		}
	}

	_, err = sys.Build()
	g.Expect(err).NotTo(gomega.HaveOccurred())
}

func TestCalibrateRejectsEmptyHistory(t *testing.T) {
	if _, err := CalibrateFromHistory(nil, testMaxDistance); err == nil {
		t.Error("empty history must be rejected")
	}
}
