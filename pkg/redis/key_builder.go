package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("seedwatch:%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyPrediction returns the memo key for a remote prediction
func (kb *KeyBuilder) KeyPrediction(textHash string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPrediction, textHash))
}

// KeyPredictionPattern matches every memoized prediction in this environment
func (kb *KeyBuilder) KeyPredictionPattern() string {
	return kb.BuildKey(KeyPredictionPattern)
}
