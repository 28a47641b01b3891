// Package fuzzy implements Mamdani-style approximate reasoning over
// explicit membership-function and rule data. The combination strategy
// (min or product) and the defuzzification strategy are pluggable.
package fuzzy

import "fmt"

// MF is a piecewise-linear membership function. Triangles carry three
// breakpoints, trapezoids four.
type MF struct {
	Shape  string    `yaml:"shape"`
	Points []float64 `yaml:"points"`
}

func Tri(a, b, c float64) MF {
	return MF{Shape: "tri", Points: []float64{a, b, c}}
}

func Trap(a, b, c, d float64) MF {
	return MF{Shape: "trap", Points: []float64{a, b, c, d}}
}

func (m MF) Validate() error {
	switch m.Shape {
	case "tri":
		if len(m.Points) != 3 {
			return fmt.Errorf("fuzzy: triangular mf needs 3 points, got %d", len(m.Points))
		}
	case "trap":
		if len(m.Points) != 4 {
			return fmt.Errorf("fuzzy: trapezoidal mf needs 4 points, got %d", len(m.Points))
		}
	default:
		return fmt.Errorf("fuzzy: unknown mf shape %q", m.Shape)
	}
	for i := 1; i < len(m.Points); i++ {
		if m.Points[i] < m.Points[i-1] {
			return fmt.Errorf("fuzzy: mf breakpoints must be non-decreasing: %v", m.Points)
		}
	}
	return nil
}

// Degree returns the membership of x in [0, 1].
func (m MF) Degree(x float64) float64 {
	p := m.Points
	switch m.Shape {
	case "tri":
		return rampUp(x, p[0], p[1]) * rampDown(x, p[1], p[2])
	case "trap":
		return rampUp(x, p[0], p[1]) * rampDown(x, p[2], p[3])
	}
	return 0
}

// rampUp rises 0→1 over [a, b]; degenerate edges (a == b) are crisp.
func rampUp(x, a, b float64) float64 {
	if x < a {
		return 0
	}
	if x >= b {
		return 1
	}
	return (x - a) / (b - a)
}

func rampDown(x, a, b float64) float64 {
	if x <= a {
		return 1
	}
	if x > b {
		return 0
	}
	return (b - x) / (b - a)
}
