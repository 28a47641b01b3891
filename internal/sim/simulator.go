package sim

import (
	"context"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MathBorgess/automation-engineering/internal/control"
	"github.com/MathBorgess/automation-engineering/internal/metrics"
	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// Simulator steps the ball physics once per control period. Stepping
// is strictly sequential; mode switches requested mid-period take
// effect on the next period boundary.
type Simulator struct {
	cfg Config
	ctl control.Controller

	mode    Mode
	pending *Mode
	manual  float64

	height   float64
	velocity float64
	t        float64

	turbulence distuv.Normal
	kick       distuv.Normal
	sensor     distuv.Normal

	mets      []metrics.Metric
	observers []Observer
}

func New(cfg Config, ctl control.Controller) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{cfg: cfg, ctl: ctl, mode: Manual}
	s.seed()
	s.height = plant.Clamp(cfg.InitialHeight, cfg.GridHeight, cfg.MaxHeight())
	return s, nil
}

func (s *Simulator) seed() {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)
	s.turbulence = distuv.Normal{Mu: 0, Sigma: s.cfg.TurbulenceStd, Src: src}
	s.kick = distuv.Normal{Mu: 0, Sigma: s.cfg.ForceNoiseStd, Src: src}
	s.sensor = distuv.Normal{Mu: 0, Sigma: s.cfg.SensorNoiseStd, Src: src}
}

func (s *Simulator) AddMetric(m metrics.Metric) { s.mets = append(s.mets, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }

// SetMode requests a mode switch; it is applied at the next period
// boundary so a period is never driven by two sources.
func (s *Simulator) SetMode(m Mode) {
	s.pending = &m
}

// SetManual sets the fan command used while in manual mode.
func (s *Simulator) SetManual(command float64) {
	s.manual = plant.Clamp(command, 0, 100)
}

func (s *Simulator) Config() Config  { return s.cfg }
func (s *Simulator) Mode() Mode      { return s.mode }
func (s *Simulator) Height() float64 { return s.height }
func (s *Simulator) Time() float64   { return s.t }

// Reset returns the ball to its resting position, restarts the noise
// stream and resets the attached controller and metrics.
func (s *Simulator) Reset() {
	s.height = plant.Clamp(s.cfg.InitialHeight, s.cfg.GridHeight, s.cfg.MaxHeight())
	s.velocity = 0
	s.t = 0
	s.pending = nil
	s.seed()
	if s.ctl != nil {
		s.ctl.Reset()
	}
	for _, m := range s.mets {
		m.Reset()
	}
}

// Step advances one control period: read the sensor, pick the fan
// command, integrate the physics and report the record.
func (s *Simulator) Step() Record {
	if s.pending != nil {
		s.mode = *s.pending
		s.pending = nil
	}

	measured := math.Max(0, s.height+s.sensor.Rand())

	command := s.manual
	if s.mode == Automatic && s.ctl != nil {
		command = plant.Clamp(s.ctl.Step(measured, s.cfg.SampleDt), 0, 100)
	}

	dt := s.cfg.SampleDt / float64(s.cfg.InnerSteps)
	for i := 0; i < s.cfg.InnerSteps; i++ {
		s.integrate(command, dt)
	}
	s.t += s.cfg.SampleDt

	r := Record{
		Time:     s.t,
		Height:   s.height,
		Velocity: s.velocity,
		Measured: measured,
		Command:  command,
		Mode:     s.mode,
	}
	for _, m := range s.mets {
		m.Observe(r.Height, r.Command, r.Time)
	}
	for _, o := range s.observers {
		o.OnStep(r)
	}
	return r
}

// Run steps the simulation until the step budget or the context runs
// out, returning the records produced so far.
func (s *Simulator) Run(ctx context.Context, steps int) ([]Record, error) {
	records := make([]Record, 0, steps)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}
		records = append(records, s.Step())
	}
	return records, nil
}

// Metrics snapshots the current metric values by name.
func (s *Simulator) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.mets))
	for _, m := range s.mets {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Simulator) integrate(command, dt float64) {
	accel := s.netForce(command) / s.cfg.Mass

	s.velocity += accel * dt
	h := s.height + s.velocity*dt

	lo, hi := s.cfg.GridHeight, s.cfg.MaxHeight()
	if h < lo {
		h = lo
		s.bounce()
	}
	if h > hi {
		h = hi
		s.bounce()
	}
	s.height = h
}

// bounce models the soft collision with the grid or the sensor
// housing: partial restitution, then a full stop below walking speed.
func (s *Simulator) bounce() {
	s.velocity *= -0.3
	if math.Abs(s.velocity) < 1 {
		s.velocity = 0
	}
}

func (s *Simulator) netForce(command float64) float64 {
	gravity := -s.cfg.Mass * s.cfg.Gravity
	return gravity + s.fanForce(command) + s.dragForce() + s.kick.Rand()
}

// fanForce grows with the square of the command and decays
// exponentially with height above the grid; turbulence scales it by a
// clamped random factor.
func (s *Simulator) fanForce(command float64) float64 {
	if command == 0 {
		return 0
	}
	u := command / 100
	base := s.cfg.FanForceMax * u * u
	decay := math.Exp(-s.cfg.WindDecay * (s.height - s.cfg.GridHeight))
	turb := plant.Clamp(1+s.turbulence.Rand(), 0.5, 1.5)
	return base * decay * turb
}

func (s *Simulator) dragForce() float64 {
	v := s.velocity
	if math.Abs(v) < 0.1 {
		return 0
	}
	area := math.Pi * s.cfg.BallRadius * s.cfg.BallRadius
	f := 0.5 * s.cfg.AirDensity * s.cfg.DragCoeff * area * v * v
	if v > 0 {
		return -f
	}
	return f
}
