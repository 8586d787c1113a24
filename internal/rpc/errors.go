// Package rpc exposes the gateway operations over JSON-RPC 2.0, both on
// WebSocket connections and on plain HTTP.
package rpc

import (
	"fmt"

	"norelock.dev/listenify/gateway/internal/bridge"
)

// ErrorCode is a type for JSON-RPC error codes.
type ErrorCode int

// JSON-RPC 2.0 error codes
const (
	// Parse error: Invalid JSON was received by the server.
	ErrParseError ErrorCode = -32700

	// Invalid Request: The JSON sent is not a valid Request object.
	ErrInvalidRequest ErrorCode = -32600

	// Method not found: The method does not exist / is not available.
	ErrMethodNotFound ErrorCode = -32601

	// Invalid params: Invalid method parameter(s).
	ErrInvalidParams ErrorCode = -32602

	// Internal error: Internal JSON-RPC error.
	ErrInternalError ErrorCode = -32603

	// Server error: an operation failed, see the data member for its code.
	ErrServerError ErrorCode = -32000
)

// String returns a string representation of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrParseError:
		return "Parse error"
	case ErrInvalidRequest:
		return "Invalid request"
	case ErrMethodNotFound:
		return "Method not found"
	case ErrInvalidParams:
		return "Invalid params"
	case ErrInternalError:
		return "Internal error"
	case ErrServerError:
		return "Server error"
	default:
		return fmt.Sprintf("Error code %d", c)
	}
}

// OperationErrorData is the data member of a failed operation.
type OperationErrorData struct {
	// Code is the per-operation code, e.g. STREAM_ERROR
	Code string `json:"code"`
	// Reason is the diagnostic sub-kind, e.g. no_audio_streams
	Reason string `json:"reason"`
}

// NewParseError creates a new parse error.
func NewParseError(err error) *Error {
	return &Error{
		Code:    ErrParseError,
		Message: fmt.Sprintf("Parse error: %v", err),
	}
}

// NewInvalidRequestError creates a new invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Message: fmt.Sprintf("Invalid request: %s", message),
	}
}

// NewMethodNotFoundError creates a new method not found error.
func NewMethodNotFoundError(method string) *Error {
	return &Error{
		Code:    ErrMethodNotFound,
		Message: fmt.Sprintf("Method not found: %s", method),
	}
}

// NewInvalidParamsError creates a new invalid params error.
func NewInvalidParamsError(message string) *Error {
	return &Error{
		Code:    ErrInvalidParams,
		Message: fmt.Sprintf("Invalid params: %s", message),
	}
}

// NewOperationError converts a failed bridge outcome. The message keeps the
// "CODE: message" form.
func NewOperationError(err *bridge.OperationError) *Error {
	return &Error{
		Code:    ErrServerError,
		Message: err.Error(),
		Data:    OperationErrorData{Code: err.Code, Reason: err.Reason},
	}
}
