// Package http serves the wealth tracking JSON API.
//
// This file holds the response builder: a fluent API that sets headers and
// status and encodes the body, so every handler answers the same way.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"wealthtrack/internal/export"
	"wealthtrack/internal/ledger"
	"wealthtrack/internal/log"
	"wealthtrack/internal/middleware/trace"
	"wealthtrack/internal/services"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// ResponseBuilder collects a response before writing it.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.headers["Content-Type"] = contentTypeJSON
	b.body, b.err = json.Marshal(v)
	return b
}

// Raw sets an already encoded body.
func (b *ResponseBuilder) Raw(contentType string, body []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = body
	return b
}

// Write sends the built response. An encoding failure becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		slog.Error("Failed to encode response", "error", b.err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(r *http.Request, statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(ErrorBody{Error: message, RequestID: trace.GetRequestID(r.Context())})
}

func BadRequestError(r *http.Request, message string) *ResponseBuilder {
	return ErrorResponse(r, http.StatusBadRequest, message)
}

func NotFoundError(r *http.Request, message string) *ResponseBuilder {
	return ErrorResponse(r, http.StatusNotFound, message)
}

func UnprocessableEntityError(r *http.Request, message string) *ResponseBuilder {
	return ErrorResponse(r, http.StatusUnprocessableEntity, message)
}

// InternalServerError hides the cause from the client.
func InternalServerError(r *http.Request) *ResponseBuilder {
	return ErrorResponse(r, http.StatusInternalServerError, "internal error")
}

// ErrorFor maps a service error to its response: missing records are 404,
// rejected input is 422, everything else is a logged 500.
func ErrorFor(r *http.Request, err error) *ResponseBuilder {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return NotFoundError(r, err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, export.ErrUnknownEntity):
		return UnprocessableEntityError(r, err.Error())
	case errors.Is(err, errBadRequest):
		return BadRequestError(r, err.Error())
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldError, err,
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	return InternalServerError(r)
}
