package classifier

import (
	"context"
	"math"
	"strings"

	"seedwatch/internal/domain"
	"seedwatch/pkg/utils"
)

// HeuristicStrategy scores a comment against the policy table. It performs
// no I/O and never fails.
type HeuristicStrategy struct {
	policy   *Policy
	keywords *keywordMatcher
	rnd      Random
}

// NewHeuristicStrategy creates the weighted-keyword tier
func NewHeuristicStrategy(policy *Policy, rnd Random) *HeuristicStrategy {
	return &HeuristicStrategy{
		policy:   policy,
		keywords: newKeywordMatcher(policy.Terms()),
		rnd:      rnd,
	}
}

// Name implements Strategy
func (h *HeuristicStrategy) Name() string {
	return TierHeuristic
}

// Score returns the seeding score of text. Keyword weights are summed in
// policy order so the result is identical for identical input.
func (h *HeuristicStrategy) Score(text string) float64 {
	lowered := normalizeText(text)
	structure := h.policy.Structure

	score := 0.0
	for _, idx := range h.keywords.match(lowered) {
		score += h.policy.Keywords[idx].Weight
	}

	for _, re := range h.policy.compiled {
		if re.MatchString(lowered) {
			score += h.policy.PatternBonus
		}
	}

	if len(strings.Fields(text)) > structure.LongCommentWords {
		score += structure.LongCommentBonus
	}

	if strings.ContainsAny(text, "!?") {
		score += structure.PunctuationBonus
	}

	if utils.ContainsPhoneNumber(text) {
		score += structure.PhoneBonus
	}

	if h.policy.contact != nil && h.policy.contact.MatchString(lowered) {
		score += structure.ContactBonus
	}

	return score
}

// Classify implements Strategy
func (h *HeuristicStrategy) Classify(_ context.Context, text string) (Prediction, error) {
	score := h.Score(text)
	conf := h.policy.Confidence

	var p Prediction
	if score >= h.policy.Threshold {
		p.Label = domain.LabelSeeding
		p.Confidence = math.Min(conf.SeedingBase+(score-h.policy.Threshold)*conf.SeedingSlope, conf.SeedingMax)
	} else {
		p.Label = domain.LabelNotSeeding
		p.Confidence = math.Max(conf.OrganicMin, conf.OrganicBase-score*conf.OrganicSlope)
	}

	jitter := (h.rnd.Float64()*2 - 1) * conf.Jitter
	p.Confidence = clamp(p.Confidence+jitter, conf.Floor, conf.Ceiling)

	return p, nil
}
