package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"seedwatch/pkg/logger"
	"seedwatch/pkg/redis"
)

// RedisMemo stores remote predictions in Redis, keyed by a hash of the
// model endpoint and the normalized comment text
type RedisMemo struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	log       *logger.Logger
}

// NewRedisMemo creates a memo. namespace separates models sharing a Redis.
func NewRedisMemo(client *redis.Client, namespace string, ttl time.Duration, log *logger.Logger) *RedisMemo {
	if ttl <= 0 {
		ttl = redis.TTLPrediction
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisMemo{client: client, namespace: namespace, ttl: ttl, log: log}
}

func (m *RedisMemo) key(text string) string {
	return m.client.KeyBuilder.KeyPrediction(textHash(m.namespace, text))
}

// Get implements PredictionMemo
func (m *RedisMemo) Get(ctx context.Context, text string) (Prediction, bool) {
	raw, err := m.client.Get(ctx, m.key(text))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.log.Debug("prediction memo read failed", zap.Error(err))
		}
		return Prediction{}, false
	}

	var p Prediction
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		m.log.Debug("prediction memo entry unreadable, dropping", zap.Error(err))
		if err := m.client.Delete(ctx, m.key(text)); err != nil {
			m.log.Debug("prediction memo delete failed", zap.Error(err))
		}
		return Prediction{}, false
	}
	return p, true
}

// Set implements PredictionMemo
func (m *RedisMemo) Set(ctx context.Context, text string, p Prediction) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := m.client.Set(ctx, m.key(text), data, m.ttl); err != nil {
		m.log.Debug("prediction memo write failed", zap.Error(err))
	}
}

// Purge removes every memoized prediction and returns how many were removed
func (m *RedisMemo) Purge(ctx context.Context) (int, error) {
	return m.client.InvalidatePattern(ctx, m.client.KeyBuilder.KeyPredictionPattern())
}
