// Package contract checks generated exercises against the fixed shape rules:
// allowed verb, single-word answer, no suggested alternative. The checks are
// pattern based and lean towards rejecting.
package contract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// The hint line: The missing verb is 'dizer' (to say).
	reHint = regexp.MustCompile(`(?i)the\s+missing\s+verb\s+is\s*[*_]*["'‘’“”]?\s*(\p{L}+)`)

	reAnswer = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:correct|right|expected)\s+(?:answer|form|conjugation|word)\s+(?:is|was|would\s+be)\s*:?\s*[*_]*["'‘’“”]([^"'‘’“”\n]+)["'‘’“”]`),
		regexp.MustCompile(`(?i)\banswer\s*(?:is|:)\s*[*_]*["'‘’“”]([^"'‘’“”\n]+)["'‘’“”]`),
	}

	// Two blanks separated by whitespace ask for two words.
	reSplitBlank = regexp.MustCompile(`_{2,}[ \t]+_{2,}`)
)

// Exercise is the pre-processed view of a candidate shared by all rules.
type Exercise struct {
	Raw   string
	Norm  string // NFC, lower case
	Words []string
}

func newExercise(raw string) Exercise {
	n := normalize(raw)
	words := strings.FieldsFunc(n, func(r rune) bool { return !unicode.IsLetter(r) })
	return Exercise{Raw: raw, Norm: n, Words: words}
}

// Rule is one independent check.
type Rule interface {
	Name() string
	Check(ex Exercise) []Violation
}

// Validator is immutable once built and safe for concurrent use.
type Validator struct {
	version string
	allowed []string
	rules   []Rule
}

// New compiles p into a Validator.
func New(p Policy) (*Validator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	compound := make([]*regexp.Regexp, 0, len(p.CompoundPatterns))
	for _, pat := range p.CompoundPatterns {
		re, err := compileBounded(pat)
		if err != nil {
			return nil, fmt.Errorf("contract: compound pattern %q: %w", pat, err)
		}
		compound = append(compound, re)
	}
	hedges := make([]string, 0, len(p.HedgePhrases))
	for _, h := range p.HedgePhrases {
		if h = normalize(h); h != "" {
			hedges = append(hedges, h)
		}
	}
	allowed := make([]string, 0, len(p.AllowedVerbs))
	for _, v := range p.AllowedVerbs {
		if v = normalize(v); v != "" {
			allowed = append(allowed, v)
		}
	}
	return &Validator{
		version: p.Version,
		allowed: allowed,
		rules: []Rule{
			allowedVerbRule{allowed: wordSet(p.AllowedVerbs), regular: wordSet(p.RegularVerbs)},
			singleWordAnswerRule{compound: compound, nonVerbs: wordSet(p.NonVerbs)},
			alternativeRule{phrases: hedges},
		},
	}, nil
}

// MustNew is New for policies known to be valid.
func MustNew(p Policy) *Validator {
	v, err := New(p)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate runs every rule. Identical input always yields an identical set.
func (v *Validator) Validate(text string) Violations {
	ex := newExercise(text)
	var found []Violation
	for _, r := range v.rules {
		found = append(found, r.Check(ex)...)
	}
	return newViolations(found)
}

func (v *Validator) Version() string { return v.version }

// AllowedVerbs returns the normalized allowed infinitives in policy order.
func (v *Validator) AllowedVerbs() []string {
	return append([]string(nil), v.allowed...)
}

type allowedVerbRule struct {
	allowed map[string]struct{}
	regular map[string]struct{}
}

func (allowedVerbRule) Name() string { return "allowed-verb" }

func (r allowedVerbRule) Check(ex Exercise) []Violation {
	var out []Violation
	// A reply may carry feedback plus the next exercise; the last hint is the
	// one the learner will answer.
	hints := reHint.FindAllStringSubmatch(ex.Norm, -1)
	if len(hints) == 0 {
		out = append(out, DisallowedVerb{})
	} else {
		root := hints[len(hints)-1][1]
		if _, ok := r.allowed[root]; !ok {
			out = append(out, DisallowedVerb{FoundRoot: root})
		}
	}
	for _, w := range ex.Words {
		if _, ok := r.regular[w]; ok {
			out = append(out, DisallowedVerb{FoundRoot: w})
		}
	}
	return out
}

type singleWordAnswerRule struct {
	compound []*regexp.Regexp
	nonVerbs map[string]struct{}
}

func (singleWordAnswerRule) Name() string { return "single-word-answer" }

func (r singleWordAnswerRule) Check(ex Exercise) []Violation {
	var out []Violation
	for _, re := range reAnswer {
		for _, m := range re.FindAllStringSubmatch(ex.Norm, -1) {
			phrase := strings.TrimSpace(m[1])
			if len(strings.Fields(phrase)) > 1 {
				out = append(out, CompoundAnswer{FoundPhrase: phrase})
			}
		}
	}
	if m := reSplitBlank.FindString(ex.Norm); m != "" {
		out = append(out, CompoundAnswer{FoundPhrase: m})
	}
	for _, re := range r.compound {
		for _, m := range re.FindAllStringSubmatch(ex.Norm, -1) {
			words := strings.Fields(m[1])
			if _, ok := r.nonVerbs[words[len(words)-1]]; ok {
				continue
			}
			out = append(out, CompoundAnswer{FoundPhrase: m[1]})
		}
	}
	return out
}

type alternativeRule struct {
	phrases []string
}

func (alternativeRule) Name() string { return "no-better-alternative" }

func (r alternativeRule) Check(ex Exercise) []Violation {
	var out []Violation
	flat := strings.Join(strings.Fields(ex.Norm), " ")
	for _, p := range r.phrases {
		if strings.Contains(flat, p) {
			out = append(out, AmbiguousAlternativeSuggested{MatchedPhrase: p})
		}
	}
	return out
}
