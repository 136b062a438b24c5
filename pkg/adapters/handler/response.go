package handler

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/log"
)

// APIError is the structured error body returned to the management API.
// Field names the failing input for creation/update validation errors.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("http")
		logger.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message, field string) {
	writeJSON(w, status, errorEnvelope{Error: APIError{Code: code, Message: message, Field: field}})
}

// writeDomainError maps domain errors onto HTTP responses in one place so
// every handler reports the same way.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDestination):
		writeError(w, http.StatusBadRequest, "INVALID_DESTINATION", "target must be an absolute http(s) URL", "target_url")
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "INVALID_CODE", "code must be 3-32 characters of A-Za-z0-9_- and not a reserved word", "code")
	case errors.Is(err, domain.ErrCodeTaken):
		writeError(w, http.StatusConflict, "CODE_TAKEN", "custom code already in use", "code")
	case errors.Is(err, domain.ErrPlanLimitReached):
		writeError(w, http.StatusPaymentRequired, "PLAN_LIMIT", "workspace has reached its active link limit", "")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", "")
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		// Operational alarm, not a user mistake.
		logger := log.WithComponent("http")
		logger.Error().Err(err).Msg("code generator exhausted retries")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not allocate a short code", "")
	default:
		logger := log.WithComponent("http")
		logger.Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error", "")
	}
}
