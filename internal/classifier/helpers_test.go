package classifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"seedwatch/internal/domain"
)

// fixedRandom returns constant values. f = 0.5 means zero jitter.
type fixedRandom struct {
	f float64
	n int
}

func (r fixedRandom) Float64() float64 { return r.f }
func (r fixedRandom) IntN(int) int     { return r.n }

func noJitter() Random { return fixedRandom{f: 0.5} }

func mustDefaultPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := DefaultPolicy()
	require.NoError(t, err)
	return p
}

// stubStrategy returns a canned prediction, error or panic
type stubStrategy struct {
	name    string
	fn      func(ctx context.Context, text string) (Prediction, error)
	mu      sync.Mutex
	calls   int
	lastCtx context.Context
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Classify(ctx context.Context, text string) (Prediction, error) {
	s.mu.Lock()
	s.calls++
	s.lastCtx = ctx
	s.mu.Unlock()
	return s.fn(ctx, text)
}

func (s *stubStrategy) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingObserver struct {
	mu       sync.Mutex
	tiers    map[string]int
	failures map[string]int
	batches  []int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{tiers: map[string]int{}, failures: map[string]int{}}
}

func (o *recordingObserver) ObserveClassification(tier string, _ domain.Label, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tiers[tier]++
}

func (o *recordingObserver) ObserveTierFailure(tier string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[tier]++
}

func (o *recordingObserver) ObserveBatch(size int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, size)
}
