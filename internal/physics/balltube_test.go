package physics

import (
	"math"
	"testing"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

func TestDeriveFallsWithoutAirflow(t *testing.T) {
	b := NewBallTube()
	dx := b.Derive(plant.State{0.5, 0}, 0, 0)

	if dx[1] >= 0 {
		t.Errorf("ball should accelerate downward with fan off, got %f", dx[1])
	}
}

func TestDeriveLiftsAtFullPower(t *testing.T) {
	b := NewBallTube()
	dx := b.Derive(plant.State{0.1, 0}, 1.0, 0)

	if dx[1] <= 0 {
		t.Errorf("ball should accelerate upward at full duty, got %f", dx[1])
	}
}

func TestEquilibriumBalancesGravity(t *testing.T) {
	b := NewBallTube()
	u := b.Equilibrium()

	if u <= 0 || u >= 1 {
		t.Fatalf("equilibrium duty out of range: %f", u)
	}

	dx := b.Derive(plant.State{0.3, 0}, u, 0)
	if math.Abs(dx[1]) > 1e-9 {
		t.Errorf("acceleration at equilibrium duty should vanish, got %e", dx[1])
	}
}

func TestClampTube(t *testing.T) {
	b := NewBallTube()

	x := b.ClampTube(plant.State{-0.1, -2.0})
	if x[0] != 0 || x[1] != 0 {
		t.Errorf("floor clamp failed: %v", x)
	}

	x = b.ClampTube(plant.State{1.2, 3.0})
	if x[0] != b.TubeHeight || x[1] != 0 {
		t.Errorf("ceiling clamp failed: %v", x)
	}

	x = b.ClampTube(plant.State{0.4, 1.0})
	if x[0] != 0.4 || x[1] != 1.0 {
		t.Errorf("in-bounds state should pass through: %v", x)
	}
}

func TestSetParamRejectsNonPositive(t *testing.T) {
	b := NewBallTube()
	if err := b.SetParam("mass", -1); err == nil {
		t.Error("expected error for negative mass")
	}
	if err := b.SetParam("unknown", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
