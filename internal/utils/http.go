// Package utils provides utility functions used throughout the application.
package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"norelock.dev/mediagrab/backend/internal/models"
)

// APIResponse represents a standard API response.
type APIResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// ValidationErrorItem represents a single validation error.
type ValidationErrorItem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RespondWithJSON sends a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		// Headers are already sent, nothing left to do on failure
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondWithData wraps data in a successful APIResponse.
func RespondWithData(w http.ResponseWriter, data any) {
	RespondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondWithError sends an error response with the given status code and message.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	response := APIResponse{
		Success: false,
		Error: map[string]string{
			"message": message,
		},
	}
	RespondWithJSON(w, statusCode, response)
}

// RespondWithDomainError maps err to its HTTP status and writes an error response.
// An AppError keeps its own code, anything else becomes a models.ErrorResponse.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondWithJSON(w, appErr.Code, APIResponse{Success: false, Error: ErrorResponse(err)})
		return
	}

	response := models.NewErrorResponse(err)
	RespondWithJSON(w, response.Error.Code, response)
}

// RespondWithValidationError sends a validation error response.
func RespondWithValidationError(w http.ResponseWriter, err error) {
	var validationErrors []ValidationErrorItem

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			field := e.Field()
			if len(field) > 0 {
				field = strings.ToLower(field[:1]) + field[1:]
			}

			var message string
			switch e.Tag() {
			case "required":
				message = field + " is required"
			case "min":
				message = field + " must be at least " + e.Param()
			case "max":
				message = field + " must be at most " + e.Param()
			default:
				message = field + " failed validation: " + e.Tag()
			}

			validationErrors = append(validationErrors, ValidationErrorItem{
				Field:   field,
				Message: message,
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationErrorItem{
			Field:   "general",
			Message: err.Error(),
		})
	}

	response := APIResponse{
		Success: false,
		Error: map[string]any{
			"message": "Validation failed",
			"errors":  validationErrors,
		},
	}

	RespondWithJSON(w, http.StatusBadRequest, response)
}

// GetRequestIP gets the client IP address from the request
func GetRequestIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}

	if strings.Contains(ip, ",") {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}

	// Strip the port, leaving bracketless IPv6 addresses alone
	if host, _, found := strings.Cut(ip, ":"); found && strings.Count(ip, ":") == 1 {
		ip = host
	}

	return ip
}
