package handler

import (
	"net/http"

	"seedwatch/internal/service"
	"seedwatch/pkg/logger"
)

// CacheHandler serves cache introspection and reset
type CacheHandler struct {
	cache  service.CacheManager
	logger *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cacheManager service.CacheManager, log *logger.Logger) *CacheHandler {
	return &CacheHandler{cache: cacheManager, logger: log}
}

// Stats handles GET /cache/stats
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.cache.Stats())
}

// Clear handles POST /cache/clear
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.cache.Clear(r.Context()))
}
