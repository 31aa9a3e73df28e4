// Package models contains the data structures used throughout the application.
package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// Error kinds for media resolution and search.
var (
	// ErrInvalidInput means the supplied string is not a recognized video URL or identifier.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamFormat means an expected node or token was missing from an upstream response.
	ErrUpstreamFormat = errors.New("upstream format error")

	// ErrUpstreamRequest means the upstream HTTP call failed or returned a non-success status.
	ErrUpstreamRequest = errors.New("upstream request error")

	// ErrTimeout means a stage exceeded its time budget.
	ErrTimeout = errors.New("timeout")

	// ErrTooManyRequests is returned by the rate limiter.
	ErrTooManyRequests = errors.New("too many requests")
)

// ResolutionError describes a failed resolution or search call.
type ResolutionError struct {
	// Kind is one of the error kinds declared above
	Kind error

	// Stage is the negotiation stage that failed, empty outside the pipeline
	Stage string

	// Field is the scraped field that was missing, if any
	Field string

	// Status is the upstream HTTP status, if one was received
	Status int

	// Err is the underlying cause
	Err error
}

// Error returns the error message
func (e *ResolutionError) Error() string {
	msg := e.Kind.Error()
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: missing %s", msg, e.Field)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind
func (e *ResolutionError) Is(target error) bool {
	return e.Kind == target
}

// NewResolutionError creates a new ResolutionError of the given kind
func NewResolutionError(kind error, stage string, err error) *ResolutionError {
	return &ResolutionError{
		Kind:  kind,
		Stage: stage,
		Err:   err,
	}
}

// MissingField creates an upstream format error for a field absent from a fragment
func MissingField(stage, field string) *ResolutionError {
	return &ResolutionError{
		Kind:  ErrUpstreamFormat,
		Stage: stage,
		Field: field,
	}
}

// ErrorKind returns a short label for the error kind, used as a metrics label
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUpstreamFormat):
		return "upstream_format"
	case errors.Is(err, ErrUpstreamRequest):
		return "upstream_request"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTooManyRequests):
		return "rate_limited"
	default:
		return "internal"
	}
}

// ErrorResponse represents the standard error response format for APIs
type ErrorResponse struct {
	// Success is always false for error responses
	Success bool `json:"success"`

	// Error contains information about the error
	Error struct {
		// Code is the HTTP status code
		Code int `json:"code"`

		// Kind is the error kind label
		Kind string `json:"kind"`

		// Message is a human-readable error message
		Message string `json:"message"`

		// Details contains additional context for the error
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// NewErrorResponse creates a new ErrorResponse from an error
func NewErrorResponse(err error) ErrorResponse {
	response := ErrorResponse{
		Success: false,
	}

	response.Error.Code = MapErrorToHTTPStatus(err)
	response.Error.Kind = ErrorKind(err)

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		response.Error.Message = resErr.Kind.Error()
		details := map[string]any{}
		if resErr.Stage != "" {
			details["stage"] = resErr.Stage
		}
		if resErr.Field != "" {
			details["field"] = resErr.Field
		}
		if resErr.Status != 0 {
			details["upstreamStatus"] = resErr.Status
		}
		if len(details) > 0 {
			response.Error.Details = details
		}
		return response
	}

	response.Error.Message = "An unexpected error occurred"

	// Include the original error message in non-production environments
	if os.Getenv("APP_ENV") != "production" {
		response.Error.Details = map[string]any{
			"originalError": err.Error(),
		}
	}

	return response
}

// MapErrorToHTTPStatus maps error kinds to HTTP status codes
func MapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamFormat),
		errors.Is(err, ErrUpstreamRequest):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
