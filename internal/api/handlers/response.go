package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/pkg/logger"
)

// ListResponse wraps row results
type ListResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the error payload of every endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError maps engine errors onto status codes.
// Data source failures are logged and hidden behind fallback.
func respondServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error, fallback string) {
	var ve *contracts.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, contracts.ErrTimeout):
		log.WithError(err).WithField("path", r.URL.Path).Warn("Request timed out")
		respondError(w, http.StatusGatewayTimeout, fallback+" timed out")
	default:
		log.WithError(err).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"query":  r.URL.RawQuery,
		}).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "Failed to load "+fallback)
	}
}

// decodeJSON reads a request body into dest; unknown fields are ignored
func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return contracts.NewValidationError("body", "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return contracts.NewValidationError("body", "malformed JSON: %v", err)
	}
	return nil
}
