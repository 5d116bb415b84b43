// Package modulemd parses module build metadata (modulemd YAML) into the
// structural form the matching engine evaluates rules against.
package modulemd

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a parsed modulemd file. Rules are matched against the
// attribute mapping under the top-level "data" key. A Document is
// immutable for the duration of an evaluation.
type Document struct {
	Version  int            `yaml:"version"`
	Data     map[string]any `yaml:"data"`
	Document string         `yaml:"document"`
}

// Parse decodes modulemd YAML. The payload must carry a "data" mapping;
// anything else is malformed metadata and surfaces as an error rather
// than silently matching nothing.
func Parse(text []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse modulemd: %w", err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("failed to parse modulemd: missing data section")
	}
	return &doc, nil
}

// Value returns the raw attribute value for key from the data mapping.
// The second return is false when the attribute is absent or null.
func (d *Document) Value(key string) (any, bool) {
	v, ok := d.Data[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Bool returns the boolean attribute for key, or def when the attribute
// is absent or not a boolean. Modulemd omits scratch/development for
// regular builds, so both default to false.
func (d *Document) Bool(key string, def bool) bool {
	v, ok := d.Data[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
