package response

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/accounts-api/internal/apperr"
	"github.com/diagnosis/accounts-api/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    apperr.Kind       `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

const internalMessage = "Internal server error"

// WriteJSON encodes data as the response body with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Error is the one place errors become HTTP responses. Server side failures
// are logged with their cause and reported with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err, internalMessage)
	}

	status := apperr.HTTPStatus(e.Kind)
	body := ErrorResponse{
		Error:   e.Message,
		Code:    e.Kind,
		Details: e.Details,
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"message", e.Message,
			"error", err,
		)
		body.Error = internalMessage
		body.Details = nil
	}

	WriteJSON(w, r, status, body)
}

// DecodeJSON reads a JSON request body into dst, rejecting unknown shapes
// with a validation error.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apperr.Validation("Request body is required", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid JSON format", map[string]string{"body": err.Error()})
	}
	return nil
}
