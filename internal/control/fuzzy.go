package control

import (
	"math"

	"github.com/MathBorgess/automation-engineering/internal/fuzzy"
	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// Variable names shared between the builders and the inference calls.
const (
	DistanceVar = "distance"
	SpeedVar    = "speed"
)

// Controller turns a distance reading into a fan command in [0, 100].
// dt is the elapsed time since the previous step in seconds.
type Controller interface {
	Step(distance, dt float64) float64
	Reset()
}

// Evaluate runs one fuzzy control cycle and is pure given its inputs:
// infer a raw command from the rule base, add the proportional
// correction, clamp, smooth against the previous output and apply the
// anti-stall floor. When no rule fires the previous output is reused
// and the state is returned unchanged.
func Evaluate(eng *fuzzy.Engine, distance float64, st State) (float64, State) {
	// One clamp for the whole cycle, so the proportional correction
	// sees the same in-domain reading as the rule base.
	if v := eng.Input(DistanceVar); v != nil {
		distance = v.Clamp(distance)
	}

	raw, fired := eng.Infer(map[string]float64{DistanceVar: distance})
	if !fired {
		return st.PrevOutput, st
	}

	corrected := plant.Clamp(raw+st.Gain*(st.Setpoint-distance), 0, 100)
	filtered := st.Alpha*corrected + (1-st.Alpha)*st.PrevOutput
	final := math.Max(filtered, st.MinSpeed)

	st.PrevOutput = final
	return final, st
}

// Fuzzy binds an immutable inference engine to its mutable loop state.
type Fuzzy struct {
	eng  *fuzzy.Engine
	st   State
	init State
}

func NewFuzzy(eng *fuzzy.Engine, st State) (*Fuzzy, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &Fuzzy{eng: eng, st: st, init: st}, nil
}

// NewDefaultFuzzy assembles the stock five-label controller around the
// state's setpoint, over a sensor domain of [0, maxDistance].
func NewDefaultFuzzy(st State, maxDistance float64) (*Fuzzy, error) {
	eng, err := DefaultSystem(st.Setpoint, maxDistance).Build()
	if err != nil {
		return nil, err
	}
	return NewFuzzy(eng, st)
}

func (f *Fuzzy) Step(distance, dt float64) float64 {
	out, next := Evaluate(f.eng, distance, f.st)
	f.st = next
	return out
}

func (f *Fuzzy) Reset() { f.st = f.init }

// State returns a copy of the current loop state.
func (f *Fuzzy) State() State { return f.st }

// Retarget rebuilds the engine around a new setpoint, keeping the rest
// of the loop state. The previous engine is left untouched for any
// reader still holding it.
func (f *Fuzzy) Retarget(setpoint, maxDistance float64) error {
	eng, err := DefaultSystem(setpoint, maxDistance).Build()
	if err != nil {
		return err
	}
	f.eng = eng
	f.st.Setpoint = setpoint
	f.init.Setpoint = setpoint
	return nil
}
