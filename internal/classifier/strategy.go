// Package classifier labels comments as seeding or organic using an ordered
// chain of strategies: a remote model, a weighted heuristic, and a plain
// keyword count. The first strategy to succeed decides the label.
package classifier

import (
	"context"
	"time"

	"seedwatch/internal/domain"
)

// Tier names reported on results and metrics
const (
	TierRemote       = "remote"
	TierHeuristic    = "heuristic"
	TierKeywordCount = "keyword_count"
	TierNone         = "none"
)

// Prediction is the label and confidence produced by one strategy
type Prediction struct {
	Label      domain.Label `json:"label"`
	Confidence float64      `json:"confidence"`
}

// Strategy is one tier of the classification chain. Classify returns an
// error when the tier cannot decide; the engine then tries the next tier.
type Strategy interface {
	Name() string
	Classify(ctx context.Context, text string) (Prediction, error)
}

// Observer receives classification events (metrics)
type Observer interface {
	ObserveClassification(tier string, label domain.Label, elapsed time.Duration)
	ObserveTierFailure(tier string)
	ObserveBatch(size int)
}

type nopObserver struct{}

func (nopObserver) ObserveClassification(string, domain.Label, time.Duration) {}
func (nopObserver) ObserveTierFailure(string)                                 {}
func (nopObserver) ObserveBatch(int)                                          {}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
