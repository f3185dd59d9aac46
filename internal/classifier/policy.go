package classifier

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Policy is the tunable table behind the heuristic and keyword-count tiers
type Policy struct {
	Version      string            `yaml:"version"`
	Threshold    float64           `yaml:"threshold"`
	Keywords     []WeightedKeyword `yaml:"keywords"`
	PatternBonus float64           `yaml:"pattern_bonus"`
	Patterns     []string          `yaml:"patterns"`
	Structure    StructurePolicy   `yaml:"structure"`
	Confidence   ConfidencePolicy  `yaml:"confidence"`
	Fallback     FallbackPolicy    `yaml:"fallback"`

	compiled []*regexp.Regexp
	contact  *regexp.Regexp
}

// WeightedKeyword adds Weight to the score when Term occurs in a comment
type WeightedKeyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// StructurePolicy scores the shape of a comment rather than its words
type StructurePolicy struct {
	LongCommentWords int      `yaml:"long_comment_words"`
	LongCommentBonus float64  `yaml:"long_comment_bonus"`
	PunctuationBonus float64  `yaml:"punctuation_bonus"`
	PhoneBonus       float64  `yaml:"phone_bonus"`
	ContactPlatforms []string `yaml:"contact_platforms"`
	ContactBonus     float64  `yaml:"contact_bonus"`
}

// ConfidencePolicy maps a score to a confidence
type ConfidencePolicy struct {
	SeedingBase  float64 `yaml:"seeding_base"`
	SeedingSlope float64 `yaml:"seeding_slope"`
	SeedingMax   float64 `yaml:"seeding_max"`
	OrganicBase  float64 `yaml:"organic_base"`
	OrganicSlope float64 `yaml:"organic_slope"`
	OrganicMin   float64 `yaml:"organic_min"`
	Jitter       float64 `yaml:"jitter"`
	Floor        float64 `yaml:"floor"`
	Ceiling      float64 `yaml:"ceiling"`
}

// FallbackPolicy drives the keyword-count tier
type FallbackPolicy struct {
	Keywords            []string `yaml:"keywords"`
	SeedingMinMatches   int      `yaml:"seeding_min_matches"`
	SeedingConfidence   float64  `yaml:"seeding_confidence"`
	AmbiguousConfidence float64  `yaml:"ambiguous_confidence"`
	OrganicConfidence   float64  `yaml:"organic_confidence"`
}

// DefaultPolicy returns the policy embedded in the binary
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicyYAML)
}

// LoadPolicy reads a policy file, or the embedded default when path is empty
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) compile() error {
	if p.Threshold <= 0 {
		return errors.New("policy threshold must be positive")
	}
	if len(p.Keywords) == 0 {
		return errors.New("policy needs at least one weighted keyword")
	}
	if len(p.Fallback.Keywords) == 0 {
		return errors.New("policy fallback needs at least one keyword")
	}
	if p.Fallback.SeedingMinMatches < 2 {
		return errors.New("policy fallback seeding_min_matches must be at least 2")
	}
	if p.Confidence.Floor > p.Confidence.Ceiling {
		return fmt.Errorf("policy confidence floor %.2f exceeds ceiling %.2f", p.Confidence.Floor, p.Confidence.Ceiling)
	}

	seen := make(map[string]bool, len(p.Keywords))
	for _, kw := range p.Keywords {
		term := normalizeText(strings.TrimSpace(kw.Term))
		if term == "" {
			return errors.New("policy keyword term must not be empty")
		}
		if seen[term] {
			return fmt.Errorf("policy keyword %q listed twice", kw.Term)
		}
		seen[term] = true
	}

	p.compiled = make([]*regexp.Regexp, 0, len(p.Patterns))
	for _, pattern := range p.Patterns {
		re, err := regexp.Compile(normalizeText(pattern))
		if err != nil {
			return fmt.Errorf("compile policy pattern %q: %w", pattern, err)
		}
		p.compiled = append(p.compiled, re)
	}

	if len(p.Structure.ContactPlatforms) > 0 {
		quoted := make([]string, 0, len(p.Structure.ContactPlatforms))
		for _, name := range p.Structure.ContactPlatforms {
			quoted = append(quoted, regexp.QuoteMeta(normalizeText(name)))
		}
		p.contact = regexp.MustCompile(strings.Join(quoted, "|"))
	}

	return nil
}

// Terms returns the weighted keyword terms in policy order
func (p *Policy) Terms() []string {
	terms := make([]string, len(p.Keywords))
	for i, kw := range p.Keywords {
		terms[i] = kw.Term
	}
	return terms
}
