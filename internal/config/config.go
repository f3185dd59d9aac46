package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	AppName        string
	AppVersion     string
	Port           string
	Environment    string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	RequestTimeout time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Remote model
	HuggingFaceAPIURL string
	HuggingFaceToken  string
	ModelTimeout      time.Duration
	ModelSeedingLabel string
	ModelRPS          float64

	// Classification engine
	BatchSize            int
	BatchPause           time.Duration
	ClassifierPolicyFile string

	// Comment sources
	TikTokAPIBaseURL    string
	TikTokMSTokens      []string
	TikTokAPITimeout    time.Duration
	TikTokMaxAttempts   int
	MaxCommentsPerVideo int
	YouTubeAPIKey       string

	// File upload
	MaxFileSizeMB    int
	MaxBatchSize     int
	AllowedFileTypes []string

	// Caching
	CacheTTL           time.Duration
	StatsCacheTTL      time.Duration
	RedisURL           string
	PredictionCacheTTL time.Duration
	JanitorSchedule    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		AppName:        getEnv("APP_NAME", "Seedwatch Comment Seeding Detection API"),
		AppVersion:     getEnv("APP_VERSION", "1.0.0"),
		Port:           getEnv("PORT", "8000"),
		Environment:    getEnv("ENVIRONMENT", "production"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://localhost:8080")),
		RequestTimeout: getSecondsEnv("REQUEST_TIMEOUT", 180),

		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getSecondsEnv("RATE_LIMIT_WINDOW", 3600),

		HuggingFaceAPIURL: getEnv("HUGGINGFACE_API_URL", "https://api-inference.huggingface.co/models/minhhieu2610/visobert_comments_seeding"),
		HuggingFaceToken:  getEnv("HUGGINGFACE_TOKEN", ""),
		ModelTimeout:      getSecondsEnv("MODEL_TIMEOUT", 30),
		ModelSeedingLabel: getEnv("MODEL_SEEDING_LABEL", "SEEDING"),
		ModelRPS:          getFloatEnv("MODEL_RPS", 20),

		BatchSize:            getIntEnv("BATCH_SIZE", 10),
		BatchPause:           time.Duration(getIntEnv("BATCH_PAUSE_MS", 100)) * time.Millisecond,
		ClassifierPolicyFile: getEnv("CLASSIFIER_POLICY_FILE", ""),

		TikTokAPIBaseURL:    getEnv("TIKTOK_API_BASE_URL", "https://www.tiktok.com"),
		TikTokMSTokens:      parseList(getEnv("TIKTOK_MS_TOKENS", getEnv("MS_TOKEN", ""))),
		TikTokAPITimeout:    getSecondsEnv("TIKTOK_API_TIMEOUT", 30),
		TikTokMaxAttempts:   getIntEnv("TIKTOK_MAX_ATTEMPTS", 3),
		MaxCommentsPerVideo: getIntEnv("MAX_COMMENTS_PER_VIDEO", 500),
		YouTubeAPIKey:       getEnv("YOUTUBE_API_KEY", ""),

		MaxFileSizeMB:    getIntEnv("MAX_FILE_SIZE_MB", 10),
		MaxBatchSize:     getIntEnv("MAX_BATCH_SIZE", 1000),
		AllowedFileTypes: parseList(getEnv("ALLOWED_FILE_TYPES", ".json,.csv")),

		CacheTTL:           getSecondsEnv("CACHE_TTL", 3600),
		StatsCacheTTL:      getSecondsEnv("STATS_CACHE_TTL", 300),
		RedisURL:           getEnv("REDIS_URL", ""),
		PredictionCacheTTL: getSecondsEnv("PREDICTION_CACHE_TTL", 86400),
		JanitorSchedule:    getEnv("JANITOR_SCHEDULE", "@every 1m"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	positive := []struct {
		key   string
		value int
	}{
		{"RATE_LIMIT_REQUESTS", c.RateLimitRequests},
		{"BATCH_SIZE", c.BatchSize},
		{"TIKTOK_MAX_ATTEMPTS", c.TikTokMaxAttempts},
		{"MAX_COMMENTS_PER_VIDEO", c.MaxCommentsPerVideo},
		{"MAX_FILE_SIZE_MB", c.MaxFileSizeMB},
		{"MAX_BATCH_SIZE", c.MaxBatchSize},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", p.key, p.value)
		}
	}

	durations := []struct {
		key   string
		value time.Duration
	}{
		{"RATE_LIMIT_WINDOW", c.RateLimitWindow},
		{"CACHE_TTL", c.CacheTTL},
		{"STATS_CACHE_TTL", c.StatsCacheTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.key, d.value)
		}
	}

	if c.BatchPause < 0 {
		return fmt.Errorf("BATCH_PAUSE_MS must not be negative, got %s", c.BatchPause)
	}
	return nil
}

// RemoteModelEnabled reports whether the remote classification tier is configured
func (c *Config) RemoteModelEnabled() bool {
	return c.HuggingFaceToken != "" && c.HuggingFaceAPIURL != ""
}

// MaxFileSizeBytes returns the upload limit in bytes
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getSecondsEnv reads a whole number of seconds
func getSecondsEnv(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getIntEnv(key, fallbackSeconds)) * time.Second
}

// parseList parses a comma-separated value into a slice
func parseList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
