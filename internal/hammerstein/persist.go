package hammerstein

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Fitted bundles a model with the error it achieved, so a run can be
// reused without re-identifying.
type Fitted struct {
	Model Model   `yaml:"model"`
	MSE   float64 `yaml:"mse"`
	Seed  int64   `yaml:"seed"`
}

func Save(path string, f *Fitted) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Load(path string) (*Fitted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fitted
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if err := f.Model.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}
