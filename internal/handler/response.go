package handler

import (
	"encoding/json"
	"net/http"

	"seedwatch/internal/middleware"
	"seedwatch/pkg/errors"
	"seedwatch/pkg/logger"
)

func respondJSON(w http.ResponseWriter, log *logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// respondError maps err onto the error envelope. Errors that are not
// application errors are reported as a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	middleware.WriteError(w, r, errors.As(err), log)
}

// decodeJSON decodes the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidationError("Invalid request body", map[string]interface{}{"reason": err.Error()})
	}
	return nil
}
