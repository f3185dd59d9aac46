package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"seedwatch/internal/container"
	"seedwatch/internal/middleware"
	"seedwatch/pkg/errors"
)

// NewRouter configures the HTTP router for the container's services
func NewRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log, c.Metrics))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RateLimit(c.Limiter, log, c.Metrics))
	r.Use(chiMiddleware.Compress(5))
	if cfg.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	}

	var redis HealthPinger
	if c.HasRedis() {
		redis = c.GetRedisClient()
	}

	info := AppInfo{Name: cfg.AppName, Version: cfg.AppVersion}
	healthHandler := NewHealthHandler(info, c.Services.Analysis, c.Services.Cache, redis, log)
	analysisHandler := NewAnalysisHandler(c.Services.Analysis, cfg.MaxFileSizeBytes(), log)
	cacheHandler := NewCacheHandler(c.Services.Cache, log)

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Check)
	r.Get("/docs", healthHandler.Docs)
	r.Get("/redoc", healthHandler.Docs)
	r.Method(http.MethodGet, "/metrics", c.Metrics.Handler())

	r.Route("/predict", func(r chi.Router) {
		r.Post("/url", analysisHandler.PredictURL)
		r.Post("/urls", analysisHandler.PredictURLs)
		r.Post("/file", analysisHandler.PredictFile)
	})

	r.Get("/stats", analysisHandler.Stats)
	r.Get("/download/{id}", analysisHandler.Download)

	r.Route("/analysis/{id}", func(r chi.Router) {
		r.Get("/", analysisHandler.GetAnalysis)
		r.Delete("/", analysisHandler.DeleteAnalysis)
		r.Get("/report", analysisHandler.GetReport)
	})

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", cacheHandler.Stats)
		r.Post("/clear", cacheHandler.Clear)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, req, errors.NewNotFoundError("Endpoint not found"), log)
	})

	log.Info("Router configured successfully")
	return r
}
