package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes and validates an ordered list of rule definitions from
// YAML. A single bad definition aborts the whole load; a partially
// loaded rule set would tag builds differently than the operator wrote.
func Parse(text []byte) ([]Rule, error) {
	var defs []Rule
	if err := yaml.Unmarshal(text, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			if defs[i].ID != "" {
				return nil, fmt.Errorf("rule %q: %w", defs[i].ID, err)
			}
			return nil, fmt.Errorf("rule #%d: %w", i+1, err)
		}
	}
	return defs, nil
}

// Load reads rule definitions from a YAML file. Rules are loaded once
// at startup and treated as read-only afterwards.
func Load(path string) ([]Rule, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	return Parse(text)
}
