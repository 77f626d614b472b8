// Package http exposes the application as a JSON API.
//
// This file implements the builder for JSON responses and the mapping from
// domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response. 204 responses carry no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func ErrorResponse(statusCode int, message string, details ...string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(ErrorBody{Error: message, Details: details})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrConstraintViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// FromError builds the error response for err. Client errors list every
// validation problem; server errors never leak internals.
func FromError(err error) *JSONResponseBuilder {
	status := StatusFor(err)
	switch status {
	case http.StatusConflict:
		return ErrorResponse(status, core.ErrEmailTaken.Error())
	case http.StatusUnauthorized:
		return ErrorResponse(status, core.ErrInvalidCredentials.Error())
	case http.StatusUnprocessableEntity:
		return ErrorResponse(status, "validation failed", validationDetails(err)...)
	case http.StatusNotFound:
		return ErrorResponse(status, "not found")
	case http.StatusServiceUnavailable:
		return ErrorResponse(status, "storage unavailable")
	}
	return InternalServerError()
}

// validationDetails returns the known validation sentinels found in err.
func validationDetails(err error) []string {
	known := []error{
		core.ErrInvalidAmount,
		core.ErrInvalidKind,
		core.ErrInvalidDate,
		core.ErrFutureDate,
		core.ErrEmptyCategory,
		core.ErrCategoryMismatch,
		core.ErrEmptyEmail,
		core.ErrEmptyPassword,
	}
	var out []string
	for _, k := range known {
		if errors.Is(err, k) {
			out = append(out, k.Error())
		}
	}
	if len(out) == 0 {
		// fall back to the innermost message
		msg := err.Error()
		if i := strings.LastIndex(msg, ": "); i >= 0 {
			msg = msg[i+2:]
		}
		out = append(out, msg)
	}
	return out
}
