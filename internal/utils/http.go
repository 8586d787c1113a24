// Package utils provides utility functions used throughout the application.
package utils

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"

	"github.com/go-playground/validator/v10"
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

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already out, only the log can tell
		GetLogger().Error("Failed to encode JSON response", err)
	}
}

// RespondWithData wraps data into a successful APIResponse.
func RespondWithData(w http.ResponseWriter, data any) {
	RespondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondWithError sends an error response with the given status code and message.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, APIResponse{
		Success: false,
		Error: map[string]string{
			"message": message,
		},
	})
}

// RespondWithAppError derives the status from err and writes an error
// response. Details of an AppError sit next to the message.
func RespondWithAppError(w http.ResponseWriter, err error) {
	body := map[string]any{}

	message := err.Error()
	var appErr *AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		maps.Copy(body, appErr.Details)
	}
	body["message"] = message

	RespondWithJSON(w, StatusCode(err), APIResponse{Success: false, Error: body})
}

// RespondWithValidationError sends a validation error response.
func RespondWithValidationError(w http.ResponseWriter, err error) {
	var items []ValidationErrorItem

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for field, message := range FormatValidationErrors(validationErrs) {
			items = append(items, ValidationErrorItem{Field: field, Message: message})
		}
	} else {
		items = append(items, ValidationErrorItem{
			Field:   "general",
			Message: err.Error(),
		})
	}

	RespondWithJSON(w, http.StatusBadRequest, APIResponse{
		Success: false,
		Error: map[string]any{
			"message": "Validation failed",
			"errors":  items,
		},
	})
}
