package fuzzy

import (
	"fmt"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// Label pairs a linguistic term with its membership function. Labels
// are kept ordered so inference and defuzzification are deterministic.
type Label struct {
	Name string `yaml:"name"`
	MF   MF     `yaml:"mf"`
}

// Variable is one input or output axis over a bounded domain.
type Variable struct {
	Name   string  `yaml:"name"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Labels []Label `yaml:"labels"`
}

func (v *Variable) Clamp(x float64) float64 {
	return plant.Clamp(x, v.Min, v.Max)
}

// Degree evaluates the membership of x in the named label; unknown
// labels have zero membership.
func (v *Variable) Degree(label string, x float64) float64 {
	for _, l := range v.Labels {
		if l.Name == label {
			return l.MF.Degree(x)
		}
	}
	return 0
}

func (v *Variable) HasLabel(name string) bool {
	for _, l := range v.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// coverageGrid is the resolution used to verify the label set spans the
// whole domain.
const coverageGrid = 200

// Validate checks the domain is non-empty, every mf is well formed and
// every in-domain value carries nonzero total membership.
func (v *Variable) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("fuzzy: variable without a name")
	}
	if v.Min >= v.Max {
		return fmt.Errorf("fuzzy: variable %s has empty domain [%f, %f]", v.Name, v.Min, v.Max)
	}
	if len(v.Labels) == 0 {
		return fmt.Errorf("fuzzy: variable %s has no labels", v.Name)
	}

	seen := map[string]bool{}
	for _, l := range v.Labels {
		if l.Name == "" {
			return fmt.Errorf("fuzzy: variable %s has an unnamed label", v.Name)
		}
		if seen[l.Name] {
			return fmt.Errorf("fuzzy: variable %s repeats label %s", v.Name, l.Name)
		}
		seen[l.Name] = true
		if err := l.MF.Validate(); err != nil {
			return fmt.Errorf("fuzzy: variable %s label %s: %w", v.Name, l.Name, err)
		}
	}

	step := (v.Max - v.Min) / coverageGrid
	for i := 0; i <= coverageGrid; i++ {
		x := v.Min + float64(i)*step
		total := 0.0
		for _, l := range v.Labels {
			total += l.MF.Degree(x)
		}
		if total == 0 {
			return fmt.Errorf("fuzzy: variable %s has no membership at %f", v.Name, x)
		}
	}
	return nil
}
