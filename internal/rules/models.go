// Package rules defines tagging rule definitions and their YAML schema.
// A rule pairs a predicate tree, matched against modulemd metadata, with
// one or more destination tags to apply on match.
package rules

import (
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrMissingField is returned when a rule definition lacks one of the
// required properties (id, type, destinations).
var ErrMissingField = errors.New("rule definition missing required property")

// ErrInvalidRule is returned when a rule definition is structurally
// unusable: a non-mapping predicate tree, an uncompilable regular
// expression, or a boolean matcher outside scratch/development.
var ErrInvalidRule = errors.New("invalid rule definition")

// Kind discriminates the shapes a predicate value can take.
type Kind int

const (
	// KindPattern is a single regular expression, matched unanchored
	// against the document value.
	KindPattern Kind = iota
	// KindBool is a literal boolean, used for the scratch and
	// development build flags.
	KindBool
	// KindList is a list of alternative patterns with OR semantics.
	KindList
	// KindMap is a nested mapping with AND semantics over its keys.
	KindMap
)

// MapEntry is one key of a mapping matcher. Entry order follows the
// rule file, and evaluation iterates entries in that order.
type MapEntry struct {
	Name string
	Val  Matcher
}

// Matcher is one node of a rule's predicate tree: a boolean literal, a
// regular expression, a list of alternative expressions, or a nested
// mapping of sub-matchers.
type Matcher struct {
	Kind    Kind
	Bool    bool
	Pattern string
	Alts    []string
	Entries []MapEntry

	re    *regexp.Regexp
	altRe []*regexp.Regexp
}

// UnmarshalYAML decodes a predicate value, dispatching on the YAML node
// shape. Scalars other than booleans are kept verbatim as patterns, so
// unquoted numbers in rule files still match as text.
func (m *Matcher) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!bool" {
			m.Kind = KindBool
			return value.Decode(&m.Bool)
		}
		m.Kind = KindPattern
		m.Pattern = value.Value
		return nil
	case yaml.SequenceNode:
		m.Kind = KindList
		m.Alts = make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: list alternatives must be scalars (line %d)",
					ErrInvalidRule, item.Line)
			}
			m.Alts = append(m.Alts, item.Value)
		}
		return nil
	case yaml.MappingNode:
		m.Kind = KindMap
		m.Entries = make([]MapEntry, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var entry MapEntry
			entry.Name = value.Content[i].Value
			if err := value.Content[i+1].Decode(&entry.Val); err != nil {
				return err
			}
			m.Entries = append(m.Entries, entry)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported predicate value (line %d)", ErrInvalidRule, value.Line)
	}
}

// MarshalYAML renders the predicate back in its rule-file shape.
func (m Matcher) MarshalYAML() (interface{}, error) {
	switch m.Kind {
	case KindBool:
		return m.Bool, nil
	case KindPattern:
		return m.Pattern, nil
	case KindList:
		return m.Alts, nil
	case KindMap:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, entry := range m.Entries {
			var val yaml.Node
			if err := val.Encode(entry.Val); err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Name}, &val)
		}
		return node, nil
	default:
		return nil, errors.New("unknown matcher kind")
	}
}

// Regexp returns the compiled pattern for a KindPattern matcher.
// Only valid after the owning rule passed Validate.
func (m *Matcher) Regexp() *regexp.Regexp { return m.re }

// AltRegexps returns the compiled alternatives for a KindList matcher.
// Only valid after the owning rule passed Validate.
func (m *Matcher) AltRegexps() []*regexp.Regexp { return m.altRe }

// StringList decodes a YAML value that may be either a single scalar or
// a sequence of scalars into a slice. Rule files write destinations
// both ways.
type StringList []string

// UnmarshalYAML implements scalar-or-sequence decoding.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v string
		if err := value.Decode(&v); err != nil {
			return err
		}
		*s = StringList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := value.Decode(&v); err != nil {
			return err
		}
		*s = StringList(v)
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence (line %d)", value.Line)
	}
}

// Rule is a single tagging rule definition.
//
// Match is nil when the rule file has no "rule" section (or an empty
// one), which means the rule matches every build unconditionally.
// Destination tags may contain ${name} references to named capture
// groups of the rule's regular expressions.
type Rule struct {
	ID           string     `yaml:"id" json:"id"`
	Type         string     `yaml:"type" json:"type"`
	Description  string     `yaml:"description" json:"description,omitempty"`
	Match        *Matcher   `yaml:"rule" json:"-"`
	Destinations StringList `yaml:"destinations" json:"destinations"`
}

// Validate checks required properties and compiles every regular
// expression in the predicate tree. A rule that fails validation must
// not be evaluated.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id", ErrMissingField)
	}
	if r.Type == "" {
		return fmt.Errorf("%w: type", ErrMissingField)
	}
	if len(r.Destinations) == 0 {
		return fmt.Errorf("%w: destinations", ErrMissingField)
	}
	if r.Match == nil {
		return nil
	}
	if r.Match.Kind != KindMap {
		return fmt.Errorf("%w: rule section must be a mapping of properties", ErrInvalidRule)
	}
	for i := range r.Match.Entries {
		entry := &r.Match.Entries[i]
		boolOK := entry.Name == "scratch" || entry.Name == "development"
		if err := entry.Val.compile(boolOK); err != nil {
			return fmt.Errorf("%w: property %s: %v", ErrInvalidRule, entry.Name, err)
		}
	}
	return nil
}

// compile builds the regexps for this matcher and its children.
// Boolean literals are only meaningful for the scratch/development
// build flags at the top level of the tree.
func (m *Matcher) compile(boolOK bool) error {
	switch m.Kind {
	case KindBool:
		if !boolOK {
			return errors.New("boolean matcher is only supported for scratch and development")
		}
		return nil
	case KindPattern:
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return err
		}
		m.re = re
		return nil
	case KindList:
		m.altRe = make([]*regexp.Regexp, 0, len(m.Alts))
		for _, alt := range m.Alts {
			re, err := regexp.Compile(alt)
			if err != nil {
				return err
			}
			m.altRe = append(m.altRe, re)
		}
		return nil
	case KindMap:
		for i := range m.Entries {
			if err := m.Entries[i].Val.compile(false); err != nil {
				return fmt.Errorf("%s: %w", m.Entries[i].Name, err)
			}
		}
		return nil
	default:
		return errors.New("unknown matcher kind")
	}
}
