package engine

import (
	"reflect"
	"testing"

	"github.com/modtag/modtag/internal/modulemd"
	"github.com/modtag/modtag/internal/rules"
)

func mustRules(t *testing.T, text string) []rules.Rule {
	t.Helper()
	defs, err := rules.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse() rules: %v", err)
	}
	return defs
}

func mustDoc(t *testing.T, text string) *modulemd.Document {
	t.Helper()
	doc, err := modulemd.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse() modulemd: %v", err)
	}
	return doc
}

func TestEvaluate_NoPredicateMatchesUnconditionally(t *testing.T) {
	defs := mustRules(t, `
- id: catch-all
  type: module
  rule:
  destinations: modular-updates-candidate
`)
	doc := mustDoc(t, `
data:
  name: nodejs
  stream: "10"
`)

	outcome := Evaluate(&defs[0], doc)
	if !outcome.Matched {
		t.Fatalf("Evaluate() matched = false, want true")
	}
	if want := []string{"modular-updates-candidate"}; !reflect.DeepEqual(outcome.DestTags, want) {
		t.Fatalf("Evaluate() tags = %v, want %v", outcome.DestTags, want)
	}
}

func TestEvaluate_BuildFlags(t *testing.T) {
	tests := []struct {
		name string
		rule string
		doc  string
		want bool
	}{
		{
			name: "scratch true matches true",
			rule: "{scratch: true}",
			doc:  "data: {scratch: true}",
			want: true,
		},
		{
			name: "scratch absent defaults to false",
			rule: "{scratch: true}",
			doc:  "data: {name: nodejs}",
			want: false,
		},
		{
			name: "scratch false matches absent",
			rule: "{scratch: false}",
			doc:  "data: {name: nodejs}",
			want: true,
		},
		{
			name: "development true matches true",
			rule: "{development: true}",
			doc:  "data: {development: true}",
			want: true,
		},
		{
			name: "development mismatch",
			rule: "{development: true}",
			doc:  "data: {development: false}",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := mustRules(t, `
- id: flags
  type: module
  rule: `+tt.rule+`
  destinations: some-tag
`)
			outcome := Evaluate(&defs[0], mustDoc(t, tt.doc))
			if outcome.Matched != tt.want {
				t.Fatalf("Evaluate() matched = %v, want %v", outcome.Matched, tt.want)
			}
		})
	}
}

func TestEvaluate_PropertyDispatch(t *testing.T) {
	doc := mustDoc(t, `
data:
  name: nodejs
  stream: f29-build
  arches: [x86_64, s390x]
  dependencies:
  - buildrequires:
      platform: [f29]
    requires:
      platform: [f29]
`)

	tests := []struct {
		name string
		rule string
		want bool
	}{
		{
			name: "regex is unanchored substring search",
			rule: "{stream: f29}",
			want: true,
		},
		{
			name: "regex non-match",
			rule: "{stream: rawhide}",
			want: false,
		},
		{
			name: "property absent in document never matches",
			rule: "{no_such_property: anything}",
			want: false,
		},
		{
			name: "list of alternatives, one matches",
			rule: `{stream: [rawhide, 'f\d+']}`,
			want: true,
		},
		{
			name: "list of alternatives, none match",
			rule: "{stream: [rawhide, eln]}",
			want: false,
		},
		{
			name: "document list value, second candidate matches",
			rule: "{arches: s390}",
			want: true,
		},
		{
			name: "nested dict with list dispatch",
			rule: `{dependencies: {requires: {platform: 'f\d+'}}}`,
			want: true,
		},
		{
			name: "nested dict missing subkey fails the dict",
			rule: `{dependencies: {runtime: {platform: 'f\d+'}}}`,
			want: false,
		},
		{
			name: "nested dict value mismatch",
			rule: "{dependencies: {requires: {platform: rawhide}}}",
			want: false,
		},
		{
			name: "all top-level properties must match",
			rule: "{name: nodejs, stream: rawhide}",
			want: false,
		},
		{
			name: "multiple top-level properties all matching",
			rule: `{name: nodejs, stream: 'f\d+'}`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := mustRules(t, `
- id: dispatch
  type: module
  rule: `+tt.rule+`
  destinations: some-tag
`)
			outcome := Evaluate(&defs[0], doc)
			if outcome.Matched != tt.want {
				t.Fatalf("Evaluate() matched = %v, want %v", outcome.Matched, tt.want)
			}
		})
	}
}

func TestEvaluate_NamedGroupSubstitution(t *testing.T) {
	defs := mustRules(t, `
- id: platform-tag
  type: module
  rule:
    dependencies:
      requires:
        platform: '(?P<platform>f\d+)'
  destinations: modular-updates-candidate-${platform}
`)
	doc := mustDoc(t, `
data:
  dependencies:
  - requires:
      platform: [f29]
`)

	outcome := Evaluate(&defs[0], doc)
	if !outcome.Matched {
		t.Fatalf("Evaluate() matched = false, want true")
	}
	if want := []string{"modular-updates-candidate-f29"}; !reflect.DeepEqual(outcome.DestTags, want) {
		t.Fatalf("Evaluate() tags = %v, want %v", outcome.DestTags, want)
	}
}

// Substitution is a regex replace inside the matched value, not a
// format of the template alone. A regex matching a portion of a longer
// value keeps the surrounding text.
func TestEvaluate_NamedGroupSubstitutionInsideLongerValue(t *testing.T) {
	defs := mustRules(t, `
- id: partial
  type: module
  rule:
    stream: '(?P<v>f\d+)'
  destinations: tag-${v}
`)
	doc := mustDoc(t, "data: {stream: platform-f29-extra}")

	outcome := Evaluate(&defs[0], doc)
	if !outcome.Matched {
		t.Fatalf("Evaluate() matched = false, want true")
	}
	if want := []string{"platform-tag-f29-extra"}; !reflect.DeepEqual(outcome.DestTags, want) {
		t.Fatalf("Evaluate() tags = %v, want %v", outcome.DestTags, want)
	}
}

// When several properties match with named groups, only the last
// recorded pair resolves the destination template. This last-write-wins
// policy is deliberate; groups from earlier properties expand to the
// empty string.
func TestEvaluate_NamedGroupLastWriteWins(t *testing.T) {
	doc := mustDoc(t, "data: {stream: f29, context: c11}")

	defs := mustRules(t, `
- id: uses-last
  type: module
  rule:
    stream: '(?P<s>f\d+)'
    context: '(?P<c>c\d+)'
  destinations: tag-${c}
- id: uses-discarded
  type: module
  rule:
    stream: '(?P<s>f\d+)'
    context: '(?P<c>c\d+)'
  destinations: tag-${s}
`)

	last := Evaluate(&defs[0], doc)
	if want := []string{"tag-c11"}; !reflect.DeepEqual(last.DestTags, want) {
		t.Fatalf("Evaluate() tags = %v, want %v", last.DestTags, want)
	}

	discarded := Evaluate(&defs[1], doc)
	if want := []string{"tag-"}; !reflect.DeepEqual(discarded.DestTags, want) {
		t.Fatalf("Evaluate() tags = %v, want %v (earlier named group must be discarded)", discarded.DestTags, want)
	}
}

func TestEvaluate_DestinationsListSubstitutedElementWise(t *testing.T) {
	defs := mustRules(t, `
- id: multi-dest
  type: module
  rule:
    stream: '(?P<v>f\d+)'
  destinations:
  - candidate-${v}
  - pending-${v}
`)
	doc := mustDoc(t, "data: {stream: f30}")

	outcome := Evaluate(&defs[0], doc)
	if want := []string{"candidate-f30", "pending-f30"}; !reflect.DeepEqual(outcome.DestTags, want) {
		t.Fatalf("Evaluate() tags = %v, want %v", outcome.DestTags, want)
	}
}

// Evaluate must not mutate the rule: a second evaluation with a
// different document starts from a clean accumulator.
func TestEvaluate_RuleReuseAcrossEvaluations(t *testing.T) {
	defs := mustRules(t, `
- id: reuse
  type: module
  rule:
    stream: '(?P<v>f\d+)'
  destinations: tag-${v}
`)

	first := Evaluate(&defs[0], mustDoc(t, "data: {stream: f29}"))
	if want := []string{"tag-f29"}; !reflect.DeepEqual(first.DestTags, want) {
		t.Fatalf("first Evaluate() tags = %v, want %v", first.DestTags, want)
	}

	second := Evaluate(&defs[0], mustDoc(t, "data: {stream: f30}"))
	if want := []string{"tag-f30"}; !reflect.DeepEqual(second.DestTags, want) {
		t.Fatalf("second Evaluate() tags = %v, want %v", second.DestTags, want)
	}

	miss := Evaluate(&defs[0], mustDoc(t, "data: {stream: rawhide}"))
	if miss.Matched {
		t.Fatalf("third Evaluate() matched = true, want false")
	}
}
