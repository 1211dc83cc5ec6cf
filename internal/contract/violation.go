package contract

import (
	"fmt"
	"sort"
	"strings"
)

// Kind names a contract rule.
type Kind string

const (
	KindDisallowedVerb       Kind = "disallowed_verb"
	KindCompoundAnswer       Kind = "compound_answer"
	KindAmbiguousAlternative Kind = "ambiguous_alternative"
)

// Violation is one broken rule. Concrete types are DisallowedVerb,
// CompoundAnswer and AmbiguousAlternativeSuggested.
type Violation interface {
	Kind() Kind
	// Detail is the offending fragment of the exercise, possibly empty.
	Detail() string
	fmt.Stringer
}

// DisallowedVerb: the hinted infinitive is outside the allowed set, the hint is
// missing (FoundRoot empty), or a regular infinitive appears in the text.
type DisallowedVerb struct{ FoundRoot string }

func (DisallowedVerb) Kind() Kind       { return KindDisallowedVerb }
func (v DisallowedVerb) Detail() string { return v.FoundRoot }
func (v DisallowedVerb) String() string {
	if v.FoundRoot == "" {
		return "no verb hint naming an allowed infinitive"
	}
	return fmt.Sprintf("disallowed verb %q", v.FoundRoot)
}

// CompoundAnswer: the expected answer spans more than one word.
type CompoundAnswer struct{ FoundPhrase string }

func (CompoundAnswer) Kind() Kind       { return KindCompoundAnswer }
func (v CompoundAnswer) Detail() string { return v.FoundPhrase }
func (v CompoundAnswer) String() string {
	return fmt.Sprintf("multi-word answer %q", v.FoundPhrase)
}

// AmbiguousAlternativeSuggested: the text claims a better or compound
// alternative exists for the blank.
type AmbiguousAlternativeSuggested struct{ MatchedPhrase string }

func (AmbiguousAlternativeSuggested) Kind() Kind       { return KindAmbiguousAlternative }
func (v AmbiguousAlternativeSuggested) Detail() string { return v.MatchedPhrase }
func (v AmbiguousAlternativeSuggested) String() string {
	return fmt.Sprintf("suggests an alternative (%q)", v.MatchedPhrase)
}

// Violations is a set: deduplicated and ordered by kind, then detail.
type Violations []Violation

func newViolations(in []Violation) Violations {
	seen := make(map[string]struct{}, len(in))
	out := make(Violations, 0, len(in))
	for _, v := range in {
		key := string(v.Kind()) + "\x00" + v.Detail()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind() != out[j].Kind() {
			return out[i].Kind() < out[j].Kind()
		}
		return out[i].Detail() < out[j].Detail()
	})
	return out
}

// OK reports whether the candidate passed every rule.
func (vs Violations) OK() bool { return len(vs) == 0 }

func (vs Violations) Has(k Kind) bool {
	for _, v := range vs {
		if v.Kind() == k {
			return true
		}
	}
	return false
}

// Kinds returns the distinct kinds present, in set order.
func (vs Violations) Kinds() []Kind {
	var out []Kind
	for _, v := range vs {
		if len(out) == 0 || out[len(out)-1] != v.Kind() {
			out = append(out, v.Kind())
		}
	}
	return out
}

// Details returns the non-empty details for kind k.
func (vs Violations) Details(k Kind) []string {
	var out []string
	for _, v := range vs {
		if v.Kind() == k && v.Detail() != "" {
			out = append(out, v.Detail())
		}
	}
	return out
}

func (vs Violations) String() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}
