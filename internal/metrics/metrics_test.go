package metrics

import (
	"math"
	"testing"
)

func TestSetpointMSE(t *testing.T) {
	m := NewSetpointMSE(50)

	m.Observe(48, 0, 0)
	m.Observe(52, 0, 0.05)
	if got := m.Value(); got != 4 {
		t.Errorf("mse = %f, want 4", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestSettlingTime(t *testing.T) {
	m := NewSettlingTime(50, 2)

	m.Observe(40, 0, 0)
	m.Observe(49, 0, 1)
	m.Observe(55, 0, 2)
	m.Observe(51, 0, 3)
	m.Observe(50, 0, 4)
	if got := m.Value(); got != 3 {
		t.Errorf("settling time = %f, want 3 (last re-entry)", got)
	}
}

func TestSettlingTimeNeverSettles(t *testing.T) {
	m := NewSettlingTime(50, 2)

	m.Observe(10, 0, 0)
	m.Observe(90, 0, 1)
	if !math.IsNaN(m.Value()) {
		t.Errorf("unsettled run should report NaN, got %f", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()

	m.Observe(0, 40, 0)
	m.Observe(0, 60, 0.05)
	if got := m.Value(); got != 50 {
		t.Errorf("effort = %f, want 50", got)
	}
}

func TestInBand(t *testing.T) {
	m := NewInBand(50, 2)

	m.Observe(50, 0, 0)
	m.Observe(51, 0, 1)
	m.Observe(60, 0, 2)
	m.Observe(49, 0, 3)
	if got := m.Value(); got != 0.75 {
		t.Errorf("in-band fraction = %f, want 0.75", got)
	}
}
