package physics

import (
	"math"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// BallTube models a ball suspended in a vertical airflow column.
// State: [height (m), velocity (m/s)]
// The drag force opposes the relative air/ball velocity:
//
//	m·z̈ = ½·ρ·Cd·A·v_rel²·sign(v_rel) − m·g,  v_rel = va − ż
//
// where va is the airflow speed produced by the fan at the given duty
// cycle.
type BallTube struct {
	Mass       float64 // kg
	Radius     float64 // m
	Gravity    float64 // m/s²
	AirDensity float64 // kg/m³
	DragCoeff  float64
	FanGain    float64 // airflow speed per volt (m/s/V)
	FanVoltage float64 // supply voltage at 100% duty
	TubeHeight float64 // m
}

func NewBallTube() *BallTube {
	return &BallTube{
		Mass:       0.0027,
		Radius:     0.02,
		Gravity:    9.81,
		AirDensity: 1.225,
		DragCoeff:  0.47,
		FanGain:    5.0,
		FanVoltage: 12.0,
		TubeHeight: 0.9,
	}
}

func (b *BallTube) StateDim() int { return 2 }

// Area returns the ball cross-section.
func (b *BallTube) Area() float64 {
	return math.Pi * b.Radius * b.Radius
}

// Airspeed maps a normalized duty cycle to the airflow speed at the fan.
func (b *BallTube) Airspeed(u float64) float64 {
	return b.FanVoltage * plant.Clamp(u, 0, 1) * b.FanGain
}

func (b *BallTube) Derive(x plant.State, u float64, _ float64) plant.State {
	if len(x) < 2 {
		return make(plant.State, 2)
	}
	zdot := x[1]
	vrel := b.Airspeed(u) - zdot

	drag := 0.5 * b.AirDensity * b.DragCoeff * b.Area() * vrel * vrel
	if vrel < 0 {
		drag = -drag
	}

	return plant.State{zdot, drag/b.Mass - b.Gravity}
}

// ClampTube applies the floor and ceiling constraints of the tube,
// zeroing velocity on contact.
func (b *BallTube) ClampTube(x plant.State) plant.State {
	if x[0] < 0 {
		return plant.State{0, 0}
	}
	if x[0] > b.TubeHeight {
		return plant.State{b.TubeHeight, 0}
	}
	return x
}

// Equilibrium returns the duty cycle whose steady airflow exactly
// cancels gravity for a hovering ball.
func (b *BallTube) Equilibrium() float64 {
	va := math.Sqrt(2 * b.Mass * b.Gravity / (b.AirDensity * b.DragCoeff * b.Area()))
	return plant.Clamp(va/(b.FanVoltage*b.FanGain), 0, 1)
}

func (b *BallTube) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":        b.Mass,
		"radius":      b.Radius,
		"gravity":     b.Gravity,
		"air_density": b.AirDensity,
		"drag_coeff":  b.DragCoeff,
		"fan_gain":    b.FanGain,
		"fan_voltage": b.FanVoltage,
		"tube_height": b.TubeHeight,
	}
}

func (b *BallTube) SetParam(name string, value float64) error {
	if value <= 0 {
		return plant.ErrParameterBounds
	}
	switch name {
	case "mass":
		b.Mass = value
	case "radius":
		b.Radius = value
	case "gravity":
		b.Gravity = value
	case "air_density":
		b.AirDensity = value
	case "drag_coeff":
		b.DragCoeff = value
	case "fan_gain":
		b.FanGain = value
	case "fan_voltage":
		b.FanVoltage = value
	case "tube_height":
		b.TubeHeight = value
	default:
		return plant.ErrParameterBounds
	}
	return nil
}
