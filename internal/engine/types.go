package engine

import "regexp"

// Outcome is the result of evaluating one rule against one modulemd
// document. It is created fresh per evaluation and never persisted.
//
// DestTags is only populated when Matched is true. When a predicate
// regex matched with named capture groups, the tags carry the group
// substitution; otherwise they are the rule's destinations verbatim.
type Outcome struct {
	Rule     string   `json:"rule" yaml:"rule"`
	Matched  bool     `json:"matched" yaml:"matched"`
	DestTags []string `json:"destTags,omitempty" yaml:"destTags,omitempty"`
}

// groupMatch records a regex that matched with named capture groups,
// together with the document value it matched. Destination templates
// are resolved against the last recorded pair.
type groupMatch struct {
	re    *regexp.Regexp
	value string
}

// evalState carries the accumulator for one evaluation. It lives on
// the stack of a single Evaluate call, so rules can be shared across
// events and goroutines without reset hazards.
type evalState struct {
	groups []groupMatch
}
