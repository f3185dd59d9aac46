package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"seedwatch/internal/cache"
	"seedwatch/internal/domain"
)

const (
	// KeyGlobalStats caches the aggregate statistics view
	KeyGlobalStats = "global_stats"
	// KeyURLResult caches the analysis of one URL
	KeyURLResult = "url:"
)

// PredictionPurger clears shared remote-model predictions
type PredictionPurger interface {
	Purge(ctx context.Context) (int, error)
}

// ClearResult is returned by a cache reset
type ClearResult struct {
	Message           string `json:"message"`
	ClearedEntries    int    `json:"cleared_entries"`
	PredictionsPurged int    `json:"predictions_purged"`
}

// CacheService provides cache-aside helpers over the in-process TTL cache
type CacheService struct {
	cache     *cache.Cache[any]
	purger    PredictionPurger
	resultTTL time.Duration
	statsTTL  time.Duration
	logger    *zap.Logger

	// statsGen changes on every invalidation; a stats computation that
	// overlapped one must not be cached
	statsMu  sync.Mutex
	statsGen uint64
}

// NewCacheService creates a new cache service. purger may be nil.
func NewCacheService(c *cache.Cache[any], purger PredictionPurger, resultTTL, statsTTL time.Duration, logger *zap.Logger) *CacheService {
	return &CacheService{
		cache:     c,
		purger:    purger,
		resultTTL: resultTTL,
		statsTTL:  statsTTL,
		logger:    logger,
	}
}

// GetURLResult returns the cached analysis of rawURL
func (c *CacheService) GetURLResult(rawURL string) (domain.AnalysisResult, bool) {
	v, ok := c.cache.Get(KeyURLResult + rawURL)
	if !ok {
		return domain.AnalysisResult{}, false
	}
	result, ok := v.(domain.AnalysisResult)
	if !ok {
		c.logger.Warn("URL cache entry has unexpected type, dropping", zap.String("url", rawURL))
		c.cache.Delete(KeyURLResult + rawURL)
		return domain.AnalysisResult{}, false
	}
	return result, true
}

// SetURLResult caches the analysis of rawURL
func (c *CacheService) SetURLResult(rawURL string, result domain.AnalysisResult) {
	c.cache.Set(KeyURLResult+rawURL, result, c.resultTTL)
}

// DeleteURLResult drops the cached analysis of rawURL
func (c *CacheService) DeleteURLResult(rawURL string) {
	c.cache.Delete(KeyURLResult + rawURL)
}

// GlobalStatsWithCache returns cached global stats or computes and caches them
func (c *CacheService) GlobalStatsWithCache(compute func() domain.GlobalStats) domain.GlobalStats {
	if v, ok := c.cache.Get(KeyGlobalStats); ok {
		if stats, ok := v.(domain.GlobalStats); ok {
			c.logger.Debug("Global stats cache hit")
			return stats
		}
	}

	c.logger.Debug("Global stats cache miss")
	c.statsMu.Lock()
	gen := c.statsGen
	c.statsMu.Unlock()

	stats := compute()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if c.statsGen != gen {
		c.logger.Debug("Global stats invalidated during computation, not caching")
		return stats
	}
	c.cache.Set(KeyGlobalStats, stats, c.statsTTL)
	return stats
}

// InvalidateGlobalStats drops the cached global stats
func (c *CacheService) InvalidateGlobalStats() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.statsGen++
	if c.cache.Delete(KeyGlobalStats) {
		c.logger.Debug("Global stats cache invalidated")
	}
}

// Stats returns the cache statistics
func (c *CacheService) Stats() cache.Stats {
	return c.cache.Stats()
}

// CleanupExpired removes expired entries
func (c *CacheService) CleanupExpired() int {
	return c.cache.CleanupExpired()
}

// Clear empties the cache and purges shared predictions. A purge failure is
// logged and does not fail the reset.
func (c *CacheService) Clear(ctx context.Context) ClearResult {
	c.statsMu.Lock()
	cleared := c.cache.Stats().TotalEntries
	c.cache.Clear()
	c.statsGen++
	c.statsMu.Unlock()

	result := ClearResult{Message: "Cache cleared successfully", ClearedEntries: cleared}
	if c.purger != nil {
		purged, err := c.purger.Purge(ctx)
		if err != nil {
			c.logger.Error("Failed to purge prediction cache", zap.Error(err))
		}
		result.PredictionsPurged = purged
	}

	c.logger.Info("Cache cleared",
		zap.Int("cleared_entries", cleared),
		zap.Int("predictions_purged", result.PredictionsPurged))
	return result
}
