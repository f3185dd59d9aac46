package classifier

import (
	"context"

	"seedwatch/internal/domain"
)

// KeywordCountStrategy counts fallback keywords. A single match is treated as
// genuinely ambiguous and gets a random label.
type KeywordCountStrategy struct {
	fallback FallbackPolicy
	keywords *keywordMatcher
	rnd      Random
}

// NewKeywordCountStrategy creates the last-resort tier
func NewKeywordCountStrategy(policy *Policy, rnd Random) *KeywordCountStrategy {
	return &KeywordCountStrategy{
		fallback: policy.Fallback,
		keywords: newKeywordMatcher(policy.Fallback.Keywords),
		rnd:      rnd,
	}
}

// Name implements Strategy
func (k *KeywordCountStrategy) Name() string {
	return TierKeywordCount
}

// Matches returns the fallback keywords found in text
func (k *KeywordCountStrategy) Matches(text string) []string {
	return k.keywords.matchedTerms(normalizeText(text))
}

// Classify implements Strategy
func (k *KeywordCountStrategy) Classify(_ context.Context, text string) (Prediction, error) {
	matches := len(k.keywords.match(normalizeText(text)))

	switch {
	case matches >= k.fallback.SeedingMinMatches:
		return Prediction{Label: domain.LabelSeeding, Confidence: k.fallback.SeedingConfidence}, nil
	case matches > 0:
		return Prediction{Label: domain.Label(k.rnd.IntN(2)), Confidence: k.fallback.AmbiguousConfidence}, nil
	default:
		return Prediction{Label: domain.LabelNotSeeding, Confidence: k.fallback.OrganicConfidence}, nil
	}
}
