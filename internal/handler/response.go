package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/papervenue/internal/domain"
)

// formatTime renders a timestamp as RFC 3339 UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status
// code, error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// WriteDomainError maps domain sentinel errors and validation errors to
// HTTP status codes.
func WriteDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrInstrumentNotFound),
		errors.Is(err, domain.ErrWebhookNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), humanize(err))
	case errors.Is(err, domain.ErrAccountAlreadyExists),
		errors.Is(err, domain.ErrOrderNotCancellable),
		errors.Is(err, domain.ErrFeedAlreadyRunning),
		errors.Is(err, domain.ErrFeedNotRunning):
		WriteError(w, http.StatusConflict, err.Error(), humanize(err))
	case errors.Is(err, domain.ErrNoQuote):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), humanize(err))
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// humanize turns a snake_case sentinel into a readable message.
func humanize(err error) string {
	return strings.ReplaceAll(err.Error(), "_", " ")
}

// ParseJSON decodes the request body as JSON into v. It validates the
// Content-Type header and rejects unknown fields.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}
