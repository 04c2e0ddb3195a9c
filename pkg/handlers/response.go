// Package handlers serves the HTTP API the web UI talks to.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/llm"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// ApiResponse is the success envelope of every /api endpoint.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeData wraps data in a success envelope.
func writeData(w http.ResponseWriter, logger *zap.Logger, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeError maps a service error onto a status and error code. Messages
// are sanitized; dbt diagnostics are passed through unchanged.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("code", code),
			zap.String("error", logging.SanitizeError(err)))
	}
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

func classifyError(err error) (int, string, string) {
	var (
		missing     *apperrors.MissingRequiredFieldError
		unknown     *apperrors.UnknownPatternError
		lookup      *apperrors.SchemaLookupError
		compilation *apperrors.CompilationFailedError
		llmErr      *llm.Error
	)

	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest, "missing_required_field", missing.Error()
	case errors.As(err, &unknown):
		return http.StatusBadRequest, "unknown_pattern", unknown.Error()
	case errors.As(err, &compilation):
		return http.StatusUnprocessableEntity, "compilation_failed", compilation.Stderr
	case errors.As(err, &lookup):
		switch lookup.Kind {
		case apperrors.SchemaLookupNotFound:
			return http.StatusNotFound, "not_found", logging.SanitizeError(err)
		case apperrors.SchemaLookupPermissionDenied:
			return http.StatusForbidden, "permission_denied", logging.SanitizeError(err)
		case apperrors.SchemaLookupInvalidIdentifier:
			return http.StatusBadRequest, "invalid_identifier", logging.SanitizeError(err)
		default:
			return http.StatusServiceUnavailable, "warehouse_unavailable", logging.SanitizeError(err)
		}
	case errors.Is(err, apperrors.ErrInvalidLiteral):
		return http.StatusBadRequest, "invalid_literal", err.Error()
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request", logging.SanitizeError(err)
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found", logging.SanitizeError(err)
	case errors.Is(err, apperrors.ErrToolUnavailable):
		return http.StatusServiceUnavailable, "tool_unavailable", logging.SanitizeError(err)
	case errors.Is(err, apperrors.ErrLLMNotConfigured):
		return http.StatusServiceUnavailable, "llm_not_configured", err.Error()
	case errors.As(err, &llmErr):
		return http.StatusBadGateway, "llm_error", logging.SanitizeError(err)
	default:
		return http.StatusInternalServerError, "internal_error", logging.SanitizeError(err)
	}
}

// decodeBody reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrInvalidRequest, err)
	}
	return nil
}
