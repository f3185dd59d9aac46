package handler

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"seedwatch/internal/analysis"
	"seedwatch/internal/service"
	"seedwatch/pkg/errors"
	"seedwatch/pkg/logger"
)

// multipartOverhead allows for the multipart envelope around the file
const multipartOverhead = 1 << 20

// URLRequest is the body of POST /predict/url
type URLRequest struct {
	URL string `json:"url"`
}

// MultiURLRequest is the body of POST /predict/urls
type MultiURLRequest struct {
	URLs []string `json:"urls"`
}

// DeleteResponse is returned by DELETE /analysis/{id}
type DeleteResponse struct {
	Message    string `json:"message"`
	AnalysisID string `json:"analysis_id"`
}

// AnalysisHandler serves the prediction and analysis endpoints
type AnalysisHandler struct {
	analysis    service.AnalysisService
	maxFileSize int64
	logger      *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService service.AnalysisService, maxFileSize int64, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis:    analysisService,
		maxFileSize: maxFileSize,
		logger:      log,
	}
}

// PredictURL handles POST /predict/url
func (h *AnalysisHandler) PredictURL(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.analysis.AnalyzeURL(r.Context(), req.URL)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// PredictURLs handles POST /predict/urls
func (h *AnalysisHandler) PredictURLs(w http.ResponseWriter, r *http.Request) {
	var req MultiURLRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.analysis.AnalyzeURLs(r.Context(), req.URLs)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// PredictFile handles POST /predict/file with a multipart "file" field
func (h *AnalysisHandler) PredictFile(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(w, r, h.logger, errors.NewValidationError(
				fmt.Sprintf("File too large. Maximum size: %dMB", h.maxFileSize/(1024*1024)), nil))
			return
		}
		respondError(w, r, h.logger, errors.NewValidationError("A file must be uploaded in the \"file\" field", nil))
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		respondError(w, r, h.logger, errors.NewValidationError("Invalid filename", nil))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("Failed to read uploaded file", nil))
		return
	}

	result, err := h.analysis.AnalyzeFile(r.Context(), header.Filename, data)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// GetAnalysis handles GET /analysis/{id}?page&per_page
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", analysis.DefaultPage)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	perPage, err := queryInt(r, "per_page", analysis.DefaultPerPage)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.analysis.Page(chi.URLParam(r, "id"), page, perPage)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// GetReport handles GET /analysis/{id}/report
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.Report(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, report)
}

// DeleteAnalysis handles DELETE /analysis/{id}
func (h *AnalysisHandler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.analysis.Delete(id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, DeleteResponse{
		Message:    "Analysis deleted successfully",
		AnalysisID: id,
	})
}

// Download handles GET /download/{id} and streams the analysis as CSV
func (h *AnalysisHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.analysis.Get(id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := analysis.WriteCSV(&buf, result); err != nil {
		respondError(w, r, h.logger, errors.NewInternalError("Failed to export analysis", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", analysis.ExportFilename(id)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WithError(err).WithField("analysis_id", id).Warn("Failed to write CSV export")
	}
}

// Stats handles GET /stats
func (h *AnalysisHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.analysis.GlobalStats())
}

// queryInt reads an integer query parameter, returning fallback when absent
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(
			fmt.Sprintf("Query parameter %q must be an integer", name),
			map[string]interface{}{name: raw})
	}
	return v, nil
}
