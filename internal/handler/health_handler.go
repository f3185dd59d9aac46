package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"seedwatch/internal/cache"
	"seedwatch/internal/classifier"
	"seedwatch/internal/service"
	"seedwatch/internal/source"
	"seedwatch/pkg/logger"
)

// HealthPinger checks an optional backing dependency
type HealthPinger interface {
	Health(ctx context.Context) error
}

// AppInfo identifies the running service
type AppInfo struct {
	Name    string
	Version string
}

// HealthHandler handles health, banner and documentation requests
type HealthHandler struct {
	info     AppInfo
	analysis service.AnalysisService
	cache    service.CacheManager
	redis    HealthPinger
	logger   *logger.Logger
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(info AppInfo, analysisService service.AnalysisService, cacheManager service.CacheManager, redis HealthPinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		info:     info,
		analysis: analysisService,
		cache:    cacheManager,
		redis:    redis,
		logger:   log,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string               `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Version   string               `json:"version"`
	Service   string               `json:"service"`
	Services  map[string]string    `json:"services"`
	Model     classifier.ModelInfo `json:"model"`
	System    SystemStatus         `json:"system"`
}

// SystemStatus reports in-memory state
type SystemStatus struct {
	CacheStats    cache.Stats `json:"cache_stats"`
	AnalysisCount int         `json:"analysis_count"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested")

	cacheStats := h.cache.Stats()
	services := map[string]string{
		"classifier": "operational",
		"cache":      fmt.Sprintf("operational (%d entries)", cacheStats.ActiveEntries),
		"redis":      "disabled",
	}
	for platform, configured := range h.analysis.SourceStatus() {
		status := "not configured"
		if configured {
			status = "operational"
		}
		services[string(platform)] = status
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("Redis health check failed")
			services["redis"] = "unavailable"
		} else {
			services["redis"] = "operational"
		}
	}

	respondJSON(w, h.logger, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.info.Version,
		Service:   h.info.Name,
		Services:  services,
		Model:     h.analysis.ModelInfo(),
		System: SystemStatus{
			CacheStats:    cacheStats,
			AnalysisCount: h.analysis.Count(),
		},
	})
}

// Endpoint documents one route
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Endpoints lists the public API
var Endpoints = []Endpoint{
	{http.MethodGet, "/", "Service banner"},
	{http.MethodGet, "/health", "Liveness and dependency status"},
	{http.MethodPost, "/predict/url", `Analyze the comments of one video. Body: {"url": "..."}`},
	{http.MethodPost, "/predict/urls", `Analyze the combined comments of up to 10 videos. Body: {"urls": ["..."]}`},
	{http.MethodPost, "/predict/file", `Analyze an uploaded JSON or CSV file (multipart field "file")`},
	{http.MethodGet, "/stats", "Aggregate statistics across stored analyses"},
	{http.MethodGet, "/analysis/{id}", "Paginated analysis (page, per_page)"},
	{http.MethodGet, "/analysis/{id}/report", "Detailed report of an analysis"},
	{http.MethodDelete, "/analysis/{id}", "Delete an analysis"},
	{http.MethodGet, "/download/{id}", "CSV export of an analysis"},
	{http.MethodGet, "/cache/stats", "Cache statistics"},
	{http.MethodPost, "/cache/clear", "Clear the cache"},
	{http.MethodGet, "/metrics", "Prometheus metrics"},
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message": h.info.Name,
		"version": h.info.Version,
		"status":  "operational",
		"endpoints": map[string]string{
			"predict_url":  "/predict/url",
			"predict_urls": "/predict/urls",
			"predict_file": "/predict/file",
			"stats":        "/stats",
			"download":     "/download/{analysis_id}",
			"health":       "/health",
			"docs":         "/docs",
		},
		"features": []string{
			"Single URL analysis",
			"Batch URL processing",
			"File upload support (JSON/CSV)",
			"Remote model with heuristic fallback",
			"Real-time statistics",
			"CSV export",
		},
	})
}

// Docs handles GET /docs and GET /redoc
func (h *HealthHandler) Docs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"title":     h.info.Name,
		"version":   h.info.Version,
		"endpoints": Endpoints,
		"sources":   []source.Platform{source.PlatformTikTok, source.PlatformYouTube},
	})
}
