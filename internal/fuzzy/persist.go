package fuzzy

import (
	"os"

	"gopkg.in/yaml.v3"
)

// System is the serializable form of a complete inference setup.
// Strategy fields select the combination and defuzzification methods
// by name so a calibrated controller can be reloaded without code.
type System struct {
	Inputs []Variable `yaml:"inputs"`
	Output Variable   `yaml:"output"`
	Rules  RuleBase   `yaml:"rules"`
	// AndOp is "min" or "product"; Defuzz is "centroid" or "mom".
	AndOp  string `yaml:"and_op"`
	Defuzz string `yaml:"defuzz"`
}

func SaveSystem(path string, s *System) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func LoadSystem(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s System
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Build validates the loaded definition and assembles an engine.
func (s *System) Build() (*Engine, error) {
	inputs := make([]*Variable, len(s.Inputs))
	for i := range s.Inputs {
		inputs[i] = &s.Inputs[i]
	}

	var and TNorm
	if s.AndOp == "product" {
		and = Product
	} else {
		and = Min
	}

	var defuzz Defuzzifier
	if s.Defuzz == "mom" {
		defuzz = MeanOfMaxima{}
	} else {
		defuzz = Centroid{}
	}

	out := s.Output
	return NewEngine(inputs, &out, s.Rules, and, defuzz)
}
