package contract

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yaml
var defaultPolicyYAML []byte

// Policy is the versioned, data-only description of the exercise contract.
// A Validator is compiled from it.
type Policy struct {
	Version          string   `yaml:"version"`
	AllowedVerbs     []string `yaml:"allowed_verbs"`
	RegularVerbs     []string `yaml:"regular_verbs"`
	HedgePhrases     []string `yaml:"hedge_phrases"`
	CompoundPatterns []string `yaml:"compound_patterns"`
	NonVerbs         []string `yaml:"non_verbs"`
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() Policy {
	p, err := parsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("contract: embedded policy: %v", err))
	}
	return p
}

// LoadPolicy decodes a YAML policy. Fields left empty fall back to the
// embedded defaults, so an override file may carry only what it changes.
func LoadPolicy(r io.Reader) (Policy, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Policy{}, fmt.Errorf("contract: read policy: %w", err)
	}
	over, err := parsePolicy(raw)
	if err != nil {
		return Policy{}, err
	}
	p := DefaultPolicy()
	if over.Version != "" {
		p.Version = over.Version
	}
	if len(over.AllowedVerbs) > 0 {
		p.AllowedVerbs = over.AllowedVerbs
	}
	if len(over.RegularVerbs) > 0 {
		p.RegularVerbs = over.RegularVerbs
	}
	if len(over.HedgePhrases) > 0 {
		p.HedgePhrases = over.HedgePhrases
	}
	if len(over.CompoundPatterns) > 0 {
		p.CompoundPatterns = over.CompoundPatterns
	}
	if len(over.NonVerbs) > 0 {
		p.NonVerbs = over.NonVerbs
	}
	return p, p.Validate()
}

func LoadPolicyFile(path string) (Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return Policy{}, fmt.Errorf("contract: open policy: %w", err)
	}
	defer f.Close()
	return LoadPolicy(f)
}

func parsePolicy(raw []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("contract: decode policy: %w", err)
	}
	return p, nil
}

// WithAllowedVerbs returns a copy of p whose allowed set is replaced. Regular
// verbs that collide with the new allowed set are dropped from the regular
// list.
func (p Policy) WithAllowedVerbs(verbs []string) Policy {
	if len(verbs) == 0 {
		return p
	}
	out := p
	out.AllowedVerbs = append([]string(nil), verbs...)
	allowed := wordSet(verbs)
	out.RegularVerbs = out.RegularVerbs[:0:0]
	for _, v := range p.RegularVerbs {
		if _, ok := allowed[normalize(v)]; !ok {
			out.RegularVerbs = append(out.RegularVerbs, v)
		}
	}
	return out
}

// Validate reports structural problems: an empty allowed set, a verb listed as
// both allowed and regular, or a pattern that does not compile.
func (p Policy) Validate() error {
	if len(wordSet(p.AllowedVerbs)) == 0 {
		return errors.New("contract: policy has no allowed verbs")
	}
	allowed := wordSet(p.AllowedVerbs)
	for v := range wordSet(p.RegularVerbs) {
		if _, ok := allowed[v]; ok {
			return fmt.Errorf("contract: verb %q is both allowed and regular", v)
		}
	}
	for _, pat := range p.CompoundPatterns {
		if _, err := compileBounded(pat); err != nil {
			return fmt.Errorf("contract: compound pattern %q: %w", pat, err)
		}
	}
	return nil
}

// normalize folds a word for comparison: NFC so that precomposed and
// decomposed accents compare equal, then lower case.
func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

func wordSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = normalize(w); w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

// compileBounded wraps pat so it only matches on letter boundaries. RE2's \b
// is ASCII-only and splits words like "têm".
func compileBounded(pat string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?:^|[^\p{L}])(` + pat + `)(?:[^\p{L}]|$)`)
}
