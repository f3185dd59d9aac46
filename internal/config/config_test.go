package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HUGGINGFACE_TOKEN", "")
	t.Setenv("RATE_LIMIT_REQUESTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Hour, cfg.RateLimitWindow)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.BatchPause)
	assert.Equal(t, 1000, cfg.MaxBatchSize)
	assert.Equal(t, []string{".json", ".csv"}, cfg.AllowedFileTypes)
	assert.False(t, cfg.RemoteModelEnabled())
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSizeBytes())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "60")
	t.Setenv("HUGGINGFACE_TOKEN", "hf_test")
	t.Setenv("MODEL_RPS", "2.5")
	t.Setenv("TIKTOK_MS_TOKENS", "tok-a, tok-b,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.True(t, cfg.RemoteModelEnabled())
	assert.Equal(t, 2.5, cfg.ModelRPS)
	assert.Equal(t, []string{"tok-a", "tok-b"}, cfg.TikTokMSTokens)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"single", "http://a", []string{"http://a"}},
		{"spaces and blanks", " a , ,b ", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseList(tt.input))
		})
	}
}

func TestGetIntEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("BATCH_SIZE", "ten")
	assert.Equal(t, 10, getIntEnv("BATCH_SIZE", 10))
}

func TestLoad_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative comment cap", "MAX_COMMENTS_PER_VIDEO", "-1"},
		{"zero rate limit", "RATE_LIMIT_REQUESTS", "0"},
		{"negative rate limit", "RATE_LIMIT_REQUESTS", "-5"},
		{"zero batch size", "BATCH_SIZE", "0"},
		{"zero retry attempts", "TIKTOK_MAX_ATTEMPTS", "0"},
		{"zero upload size", "MAX_FILE_SIZE_MB", "0"},
		{"zero rate window", "RATE_LIMIT_WINDOW", "0"},
		{"negative cache ttl", "CACHE_TTL", "-10"},
		{"negative batch pause", "BATCH_PAUSE_MS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
