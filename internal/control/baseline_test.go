package control

import "testing"

func TestProportionalDeadbandHoldsOffset(t *testing.T) {
	p := &Proportional{Setpoint: 50, Kp: 2, Offset: 57, Deadband: 1}

	for _, d := range []float64{49.2, 50, 50.8} {
		if got := p.Step(d, 0.05); got != 57 {
			t.Errorf("distance %f inside deadband: got %f, want offset 57", d, got)
		}
	}
}

func TestProportionalDirectionAndClamp(t *testing.T) {
	p := &Proportional{Setpoint: 50, Kp: 2, Offset: 57, Deadband: 1}

	low := p.Step(40, 0.05)
	high := p.Step(60, 0.05)
	if low <= high {
		t.Errorf("low ball should get more air: %f vs %f", low, high)
	}
	if low != 77 || high != 37 {
		t.Errorf("unexpected commands: low=%f high=%f", low, high)
	}

	if got := p.Step(0, 0.05); got != 100 {
		t.Errorf("large error should clamp to 100, got %f", got)
	}
	if got := p.Step(102, 0.05); got != 0 {
		t.Errorf("large negative error should clamp to 0, got %f", got)
	}
}

func TestPIDPushesTowardSetpoint(t *testing.T) {
	p := NewPID(50, 49, 2, 0.3, 0)

	if got := p.Step(45, 0.05); got <= 49 {
		t.Errorf("ball below setpoint should raise the command above offset, got %f", got)
	}

	p.Reset()
	if got := p.Step(55, 0.05); got >= 49 {
		t.Errorf("ball above setpoint should cut the command below offset, got %f", got)
	}
}

func TestPIDIntegratorAccumulates(t *testing.T) {
	p := NewPID(50, 49, 0, 1, 0)

	first := p.Step(45, 0.05)
	second := p.Step(45, 0.05)
	if second <= first {
		t.Errorf("steady error should grow the integral term: %f then %f", first, second)
	}
}
