// Package httpserver implements the JSON HTTP surface of the interview
// service: request decoding, validation, error mapping, and the middleware
// stack. Route wiring lives in internal/app.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}

// writeError maps a domain error to the HTTP error envelope. Unrecognized
// errors become opaque 500s; their detail stays in the logs, not the body.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, domain.ErrUpstreamStatus):
		status, code = http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("internal error", slog.Any("error", err))
		msg = "internal error"
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: msg}})
}

// writeValidationError reports field-level validation failures as a 400 with
// per-field details.
func writeValidationError(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
		Code:    "INVALID_ARGUMENT",
		Message: "request validation failed",
		Details: details,
	}})
}
