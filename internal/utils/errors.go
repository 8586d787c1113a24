// Package utils provides utility functions used throughout the application.
package utils

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"norelock.dev/listenify/gateway/internal/models"
)

// Common error types
var (
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("invalid request")
	ErrValidation  = errors.New("validation error")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("service unavailable")
)

// AppError represents an application error with context.
// It carries the HTTP status the error should be reported with.
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

// AddDetail adds a single detail to the error.
func (e *AppError) AddDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
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

// NotFoundError creates a new 404 Not Found error.
func NotFoundError(message string, err error) *AppError {
	if message == "" {
		message = "Resource not found"
	}
	return NewAppError(err, message, http.StatusNotFound)
}

// BadRequestError creates a new 400 Bad Request error.
func BadRequestError(message string, err error) *AppError {
	if message == "" {
		message = "Invalid request"
	}
	return NewAppError(err, message, http.StatusBadRequest)
}

// BadGatewayError creates a new 502 Bad Gateway error for upstream failures.
func BadGatewayError(message string, err error) *AppError {
	if message == "" {
		message = "Upstream request failed"
	}
	return NewAppError(err, message, http.StatusBadGateway)
}

// RateLimitError creates a new 429 Too Many Requests error.
func RateLimitError(message string, err error) *AppError {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return NewAppError(err, message, http.StatusTooManyRequests)
}

// StatusCode returns the HTTP status code for the error.
// Resolution errors from the models package are mapped onto the
// closest gateway status.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	var (
		transportErr *models.TransportError
		channelErr   *models.ChannelExtractionError
	)

	switch {
	case errors.Is(err, models.ErrRateLimited), errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrNoAudioStreams), errors.Is(err, models.ErrNoStreamURL):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.As(err, &transportErr), errors.As(err, &channelErr):
		return http.StatusBadGateway
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
