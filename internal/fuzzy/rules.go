package fuzzy

import (
	"fmt"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// Rule maps input labels (one per antecedent variable) to an output
// label.
type Rule struct {
	If   map[string]string `yaml:"if"`
	Then string            `yaml:"then"`
}

// RuleBase is static once loaded. Recalibration builds a replacement
// base; bases are never mutated while a control loop holds them.
type RuleBase struct {
	Rules []Rule `yaml:"rules"`
}

func (rb *RuleBase) Validate(inputs []*Variable, output *Variable) error {
	if len(rb.Rules) == 0 {
		return plant.ErrEmptyRuleBase
	}

	byName := map[string]*Variable{}
	for _, v := range inputs {
		byName[v.Name] = v
	}

	for i, r := range rb.Rules {
		if len(r.If) == 0 {
			return fmt.Errorf("fuzzy: rule %d has no antecedents", i)
		}
		for varName, label := range r.If {
			v, ok := byName[varName]
			if !ok {
				return fmt.Errorf("fuzzy: rule %d references unknown variable %s", i, varName)
			}
			if !v.HasLabel(label) {
				return fmt.Errorf("fuzzy: rule %d references unknown label %s.%s", i, varName, label)
			}
		}
		if !output.HasLabel(r.Then) {
			return fmt.Errorf("fuzzy: rule %d produces unknown output label %s", i, r.Then)
		}
	}
	return nil
}
