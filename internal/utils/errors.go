// Package utils provides utility functions used throughout the application.
package utils

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"norelock.dev/mediagrab/backend/internal/models"
)

// AppError represents an application error with context.
// It implements the error interface and carries the HTTP status
// that the API layer should return for it.
type AppError struct {
	// Original is the underlying error that caused this error
	Original error
	// Message is a human-readable error message
	Message string
	// Code is the HTTP status code that should be returned
	Code int
	// Details contains additional error context
	Details map[string]any
}

// Error returns the error message, satisfying the error interface.
func (e *AppError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Original)
	}
	return e.Message
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Original
}

// WithDetails adds context to the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	maps.Copy(e.Details, details)
	return e
}

// NewAppError creates a new AppError.
func NewAppError(err error, message string, code int) *AppError {
	return &AppError{
		Original: err,
		Message:  message,
		Code:     code,
		Details:  make(map[string]any),
	}
}

// BadRequestError creates a new 400 Bad Request error.
func BadRequestError(message string, err error) *AppError {
	if message == "" {
		message = "Invalid request"
	}
	return NewAppError(err, message, http.StatusBadRequest)
}

// StatusCode returns the HTTP status code for the error.
// Domain error kinds from the models package are mapped as well.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return models.MapErrorToHTTPStatus(err)
}

// ErrorResponse creates a standardized response format for API errors.
func ErrorResponse(err error) map[string]any {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		}
	}

	return map[string]any{
		"error": err.Error(),
		"code":  StatusCode(err),
		"kind":  models.ErrorKind(err),
	}
}
