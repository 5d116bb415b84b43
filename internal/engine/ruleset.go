package engine

import (
	"github.com/modtag/modtag/internal/modulemd"
	"github.com/modtag/modtag/internal/rules"
)

// EvaluateAll runs every rule definition against one document in
// definition order and returns the outcomes of the rules that matched.
// Rules are independent and non-exclusive: a single build can collect
// tags from several rules.
func EvaluateAll(defs []rules.Rule, doc *modulemd.Document) []Outcome {
	var matched []Outcome
	for i := range defs {
		outcome := Evaluate(&defs[i], doc)
		if outcome.Matched {
			matched = append(matched, outcome)
		}
	}
	return matched
}

// DestTags flattens matched outcomes into the ordered list of
// destination tags to apply. Duplicates are kept; the tagging backend
// treats a repeated tag as a no-op.
func DestTags(outcomes []Outcome) []string {
	var tags []string
	for _, o := range outcomes {
		tags = append(tags, o.DestTags...)
	}
	return tags
}
