// Package engine implements the rule-matching algorithm: a recursive
// structural comparison of a rule's predicate tree against a modulemd
// document, producing destination tags on match.
package engine

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/modtag/modtag/internal/modulemd"
	"github.com/modtag/modtag/internal/rules"
)

// Evaluate checks whether a rule definition matches a modulemd document.
//
// Evaluate is pure: all match state lives in a per-call accumulator, so
// the same rule value may be evaluated concurrently and repeatedly.
// The rule must have passed rules.Rule.Validate beforehand.
func Evaluate(rule *rules.Rule, doc *modulemd.Document) Outcome {
	if rule.Match == nil {
		log.Info().Str("rule", rule.ID).Strs("destinations", rule.Destinations).
			Msg("no rule criteria defined, build will be tagged unconditionally")
		return Outcome{Rule: rule.ID, Matched: true, DestTags: literalTags(rule)}
	}

	st := &evalState{}
	matched := true
	// Every top-level property is evaluated even after a failure, which
	// keeps named-group accumulation identical regardless of property
	// order relative to the failing one.
	for i := range rule.Match.Entries {
		entry := &rule.Match.Entries[i]
		if !matchProperty(rule.ID, entry, doc, st) {
			matched = false
		}
	}

	if !matched {
		return Outcome{Rule: rule.ID, Matched: false}
	}
	return Outcome{Rule: rule.ID, Matched: true, DestTags: resolveTags(rule, st)}
}

// matchProperty evaluates one top-level property of the predicate tree.
func matchProperty(ruleID string, entry *rules.MapEntry, doc *modulemd.Document, st *evalState) bool {
	name, m := entry.Name, &entry.Val

	// scratch and development default to false when the document omits
	// them, and are compared as booleans with no regex logic.
	if name == "scratch" || name == "development" {
		if m.Kind != rules.KindBool {
			log.Debug().Str("rule", ruleID).Str("property", name).
				Msg("non-boolean matcher for build flag never matches")
			return false
		}
		val := doc.Bool(name, false)
		if m.Bool != val {
			log.Debug().Str("rule", ruleID).Str("property", name).
				Bool("expected", m.Bool).Bool("value", val).Msg("build flag not matched")
			return false
		}
		return true
	}

	value, ok := doc.Value(name)
	if !ok {
		// A rule referencing a property the document does not have can
		// never match. This is a failed predicate, not an error.
		log.Info().Str("rule", ruleID).Str("property", name).
			Msg("property not present in modulemd, not matched")
		return false
	}

	switch m.Kind {
	case rules.KindMap:
		if !matchDict(m, topLevelMapping(value), st) {
			log.Info().Str("rule", ruleID).Str("property", name).Msg("property not matched")
			return false
		}
		return true
	case rules.KindList:
		if !matchList(m, value, st) {
			log.Info().Str("rule", ruleID).Str("property", name).Msg("property not matched")
			return false
		}
		return true
	default:
		if !matchValue(m.Regexp(), value, st) {
			log.Info().Str("rule", ruleID).Str("property", name).Msg("property not matched")
			return false
		}
		return true
	}
}

// topLevelMapping extracts the mapping a top-level dict predicate is
// checked against. Modulemd stores dependencies as a list of mappings
// and rules are checked against the first entry; a bare mapping is
// accepted as-is.
func topLevelMapping(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) == 0 {
			return nil
		}
		m, _ := v[0].(map[string]any)
		return m
	default:
		return nil
	}
}

// matchDict recursively checks a mapping matcher against a document
// mapping. Sibling keys combine with AND semantics and the first
// failing key short-circuits the whole mapping.
func matchDict(m *rules.Matcher, docMap map[string]any, st *evalState) bool {
	if docMap == nil {
		return false
	}
	for i := range m.Entries {
		entry := &m.Entries[i]
		sub, ok := docMap[entry.Name]
		if !ok || sub == nil {
			log.Warn().Str("key", entry.Name).Msg("key not found in module metadata")
			return false
		}
		var matched bool
		switch entry.Val.Kind {
		case rules.KindMap:
			subMap, _ := sub.(map[string]any)
			matched = matchDict(&entry.Val, subMap, st)
		case rules.KindList:
			matched = matchList(&entry.Val, sub, st)
		default:
			matched = matchValue(entry.Val.Regexp(), sub, st)
		}
		if !matched {
			return false
		}
	}
	return true
}

// matchList checks a list of alternative patterns against a document
// value with OR semantics: the first matching alternative wins.
func matchList(m *rules.Matcher, value any, st *evalState) bool {
	for _, re := range m.AltRegexps() {
		if matchValue(re, value, st) {
			return true
		}
	}
	return false
}

// matchValue applies one regex to a document value, which may be a
// single scalar or a list of scalars (e.g. multiple version
// requirements). Matching is an unanchored substring search and the
// first matching candidate wins. A match with named capture groups is
// recorded for destination-tag resolution.
func matchValue(re *regexp.Regexp, value any, st *evalState) bool {
	candidates := stringCandidates(value)
	log.Debug().Str("regex", re.String()).Strs("candidates", candidates).
		Msg("checking regex against values")
	for _, cand := range candidates {
		if re.MatchString(cand) {
			if hasNamedGroups(re) {
				st.groups = append(st.groups, groupMatch{re: re, value: cand})
			}
			return true
		}
	}
	return false
}

// stringCandidates flattens a document value into the strings a regex
// is tried against. Non-string scalars are coerced via their text
// form; nested structures yield no candidates.
func stringCandidates(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case bool, int, int64, uint64, float64:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	case bool, int, int64, uint64, float64:
		return []string{fmt.Sprint(v)}
	default:
		return nil
	}
}

func hasNamedGroups(re *regexp.Regexp) bool {
	for _, name := range re.SubexpNames()[1:] {
		if name != "" {
			return true
		}
	}
	return false
}

// literalTags copies the rule's destinations so callers can never
// mutate the shared rule value through an outcome.
func literalTags(rule *rules.Rule) []string {
	return append([]string(nil), rule.Destinations...)
}

// resolveTags produces the final destination tags for a matched rule.
// When any named-group match was recorded, each destination is treated
// as a replacement template and expanded against the last recorded
// regex/value pair. Earlier named-group matches are deliberately
// discarded: last write wins, and the substitution happens inside the
// matched value, mirroring a regex replace rather than a format call.
func resolveTags(rule *rules.Rule, st *evalState) []string {
	tags := literalTags(rule)
	if len(st.groups) == 0 {
		return tags
	}
	last := st.groups[len(st.groups)-1]
	for i, tag := range tags {
		tags[i] = last.re.ReplaceAllString(last.value, tag)
	}
	return tags
}
