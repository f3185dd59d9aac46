package source

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedwatch/internal/ingest"
	"seedwatch/pkg/logger"
)

type stubFetcher struct {
	platform   Platform
	configured bool
	records    []ingest.Record
	err        error
}

func (s stubFetcher) Platform() Platform { return s.platform }
func (s stubFetcher) Configured() bool   { return s.configured }
func (s stubFetcher) Fetch(context.Context, Target) ([]ingest.Record, error) {
	return s.records, s.err
}

type fetchRecorder struct {
	outcomes map[string][]error
}

func (r *fetchRecorder) ObserveSourceFetch(platform string, err error) {
	r.outcomes[platform] = append(r.outcomes[platform], err)
}

func TestRegistry_Fetch(t *testing.T) {
	boom := stderrors.New("boom")
	rec := &fetchRecorder{outcomes: map[string][]error{}}
	r := NewRegistry(logger.NewNop(), rec,
		stubFetcher{platform: PlatformTikTok, configured: true, records: []ingest.Record{{"text": "a"}}},
		stubFetcher{platform: PlatformYouTube, configured: true, err: boom},
	)

	records, err := r.Fetch(context.Background(), Target{Platform: PlatformTikTok})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = r.Fetch(context.Background(), Target{Platform: PlatformYouTube})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []error{nil}, rec.outcomes["tiktok"])
	assert.Equal(t, []error{boom}, rec.outcomes["youtube"])
}

func TestRegistry_NotConfigured(t *testing.T) {
	r := NewRegistry(logger.NewNop(), nil, stubFetcher{platform: PlatformTikTok})

	_, err := r.Fetch(context.Background(), Target{Platform: PlatformTikTok})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = r.Fetch(context.Background(), Target{Platform: PlatformYouTube})
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.Equal(t, map[Platform]bool{PlatformTikTok: false}, r.Status())
}

func TestExponentialBackoff(t *testing.T) {
	p := ExponentialBackoff{MaxAttempts: 4, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	tests := []struct {
		attempt int
		want    time.Duration
		ok      bool
	}{
		{1, 100 * time.Millisecond, true},
		{2, 200 * time.Millisecond, true},
		{3, 300 * time.Millisecond, true},
		{4, 0, false},
	}
	for _, tt := range tests {
		got, ok := p.Backoff(tt.attempt, stderrors.New("x"))
		assert.Equal(t, tt.ok, ok, "attempt %d", tt.attempt)
		assert.Equal(t, tt.want, got, "attempt %d", tt.attempt)
	}

	p.IsRetryable = func(error) bool { return false }
	_, ok := p.Backoff(1, stderrors.New("x"))
	assert.False(t, ok)
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), fastRetry, func(int) error {
			calls++
			if calls < 3 {
				return stderrors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := retry(ctx, fastRetry, func(int) error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}
