package container

import (
	"fmt"
	"net/http"

	"seedwatch/internal/analysis"
	"seedwatch/internal/cache"
	"seedwatch/internal/classifier"
	"seedwatch/internal/config"
	"seedwatch/internal/metrics"
	"seedwatch/internal/ratelimit"
	"seedwatch/internal/scheduler"
	"seedwatch/internal/service"
	"seedwatch/internal/source"
	"seedwatch/pkg/logger"
	"seedwatch/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Metrics     *metrics.Metrics
	Cache       *service.CacheService
	Limiter     *ratelimit.Limiter
	Store       *analysis.Store
	Classifier  *classifier.Engine
	Sources     *source.Registry
	Services    *service.Services
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *logger.Logger) (*Container, error) {
	m := metrics.New()

	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without prediction memo")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without prediction memo")
	}

	deps := classifier.Deps{Logger: logger, Observer: m}
	var purger service.PredictionPurger
	if redisClient != nil {
		memo := classifier.NewRedisMemo(redisClient, cfg.HuggingFaceAPIURL, cfg.PredictionCacheTTL, logger)
		deps.Memo = memo
		purger = memo
	}

	engine, err := classifier.New(classifier.Config{
		RemoteURL:     cfg.HuggingFaceAPIURL,
		RemoteToken:   cfg.HuggingFaceToken,
		RemoteTimeout: cfg.ModelTimeout,
		SeedingLabel:  cfg.ModelSeedingLabel,
		RemoteRPS:     cfg.ModelRPS,
		BatchSize:     cfg.BatchSize,
		BatchPause:    cfg.BatchPause,
		PolicyFile:    cfg.ClassifierPolicyFile,
	}, deps)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	sources := source.NewRegistry(logger, m,
		source.NewTikTokSource(cfg.TikTokAPIBaseURL, cfg.TikTokMSTokens, cfg.MaxCommentsPerVideo, logger,
			source.WithTikTokHTTPClient(&http.Client{Timeout: cfg.TikTokAPITimeout}),
			source.WithTikTokRetryPolicy(source.DefaultRetryPolicy(cfg.TikTokMaxAttempts)),
		),
		source.NewYouTubeSource(cfg.YouTubeAPIKey, cfg.MaxCommentsPerVideo, logger),
	)

	resultCache := cache.New[any](cfg.CacheTTL, cache.WithObserver[any](m))
	cacheService := service.NewCacheService(resultCache, purger, cfg.CacheTTL, cfg.StatsCacheTTL, logger.Logger)

	store := analysis.NewStore(analysis.WithChangeHook(m.SetAnalysesStored))
	analysisService := service.NewAnalysisService(service.AnalysisConfig{
		MaxFileSize:      cfg.MaxFileSizeBytes(),
		MaxBatchSize:     cfg.MaxBatchSize,
		AllowedFileTypes: cfg.AllowedFileTypes,
	}, engine, sources, store, analysis.NewAggregator(), cacheService, logger.Logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		RedisClient: redisClient,
		Metrics:     m,
		Cache:       cacheService,
		Limiter:     ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow),
		Store:       store,
		Classifier:  engine,
		Sources:     sources,
		Services: &service.Services{
			Analysis: analysisService,
			Cache:    cacheService,
		},
	}, nil
}

// GetAnalysisService returns the analysis service
func (c *Container) GetAnalysisService() service.AnalysisService {
	return c.Services.Analysis
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// NewJanitor schedules expiry of cache entries and idle rate-limit windows
func (c *Container) NewJanitor() (*scheduler.Janitor, error) {
	return scheduler.NewJanitor(c.Config.JanitorSchedule, c.Logger,
		scheduler.Job{Name: "cache", Run: func() int {
			n := c.Cache.CleanupExpired()
			c.Metrics.CacheExpired(n)
			return n
		}},
		scheduler.Job{Name: "rate_limiter", Run: c.Limiter.Cleanup},
	)
}
