// Package metrics collects closed-loop performance figures while a
// simulation or hardware run is stepping.
package metrics

import "math"

// Metric observes one (height, command) pair per control cycle and
// reduces the run to a single figure.
type Metric interface {
	Name() string
	Observe(height, command, t float64)
	Value() float64
	Reset()
}

// SetpointMSE is the mean squared height error against the setpoint.
type SetpointMSE struct {
	name     string
	setpoint float64
	sum      float64
	samples  int
}

func NewSetpointMSE(setpoint float64) *SetpointMSE {
	return &SetpointMSE{name: "setpoint_mse", setpoint: setpoint}
}

func (m *SetpointMSE) Name() string { return m.name }

func (m *SetpointMSE) Observe(height, command, t float64) {
	e := height - m.setpoint
	m.sum += e * e
	m.samples++
}

func (m *SetpointMSE) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *SetpointMSE) Reset() {
	m.sum = 0
	m.samples = 0
}

// SettlingTime reports the earliest time after which the height never
// leaves the tolerance band around the setpoint. NaN means the run
// never settled.
type SettlingTime struct {
	name      string
	setpoint  float64
	tolerance float64
	settledAt float64
	settled   bool
}

func NewSettlingTime(setpoint, tolerance float64) *SettlingTime {
	return &SettlingTime{name: "settling_time", setpoint: setpoint, tolerance: tolerance}
}

func (m *SettlingTime) Name() string { return m.name }

func (m *SettlingTime) Observe(height, command, t float64) {
	if math.Abs(height-m.setpoint) > m.tolerance {
		m.settled = false
		return
	}
	if !m.settled {
		m.settled = true
		m.settledAt = t
	}
}

func (m *SettlingTime) Value() float64 {
	if !m.settled {
		return math.NaN()
	}
	return m.settledAt
}

func (m *SettlingTime) Reset() {
	m.settled = false
	m.settledAt = 0
}

// ControlEffort is the mean absolute fan command over the run.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{name: "control_effort"}
}

func (m *ControlEffort) Name() string { return m.name }

func (m *ControlEffort) Observe(height, command, t float64) {
	m.sum += math.Abs(command)
	m.samples++
}

func (m *ControlEffort) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *ControlEffort) Reset() {
	m.sum = 0
	m.samples = 0
}

// InBand is the fraction of samples whose height stayed within the
// tolerance band around the setpoint.
type InBand struct {
	name      string
	setpoint  float64
	tolerance float64
	inside    int
	samples   int
}

func NewInBand(setpoint, tolerance float64) *InBand {
	return &InBand{name: "in_band", setpoint: setpoint, tolerance: tolerance}
}

func (m *InBand) Name() string { return m.name }

func (m *InBand) Observe(height, command, t float64) {
	m.samples++
	if math.Abs(height-m.setpoint) <= m.tolerance {
		m.inside++
	}
}

func (m *InBand) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.inside) / float64(m.samples)
}

func (m *InBand) Reset() {
	m.inside = 0
	m.samples = 0
}
