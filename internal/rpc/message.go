// Package rpc exposes the gateway operations over JSON-RPC 2.0, both on
// WebSocket connections and on plain HTTP.
package rpc

import (
	"bytes"
	"encoding/json"
)

// Version is the only JSON-RPC version accepted.
const Version = "2.0"

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	// JSONRPC is the version of the JSON-RPC protocol. Must be "2.0".
	JSONRPC string `json:"jsonrpc"`

	// Method is the name of the operation to be invoked.
	Method string `json:"method"`

	// Params holds the named arguments of the operation.
	Params json.RawMessage `json:"params,omitempty"`

	// ID is the identifier established by the client. If omitted, the request is a notification.
	ID any `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	// JSONRPC is the version of the JSON-RPC protocol. Must be "2.0".
	JSONRPC string `json:"jsonrpc"`

	// Result is the result of the invocation. Absent when there was an error.
	Result any `json:"result,omitempty"`

	// Error is the error object if the invocation failed.
	Error *Error `json:"error,omitempty"`

	// ID echoes the request identifier, null when it could not be read.
	ID any `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	// Code is the error code.
	Code ErrorCode `json:"code"`

	// Message is a short description of the error.
	Message string `json:"message"`

	// Data is additional information about the error.
	Data any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// NewResponse creates a new JSON-RPC 2.0 response.
func NewResponse(id any, result any) *Response {
	return &Response{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates a new JSON-RPC 2.0 error response.
func NewErrorResponse(id any, err *Error) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   err,
		ID:      id,
	}
}

// IsNotification returns true if the request is a notification (no ID).
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// decodeParams reads named params. Absent or null params give a nil map.
func decodeParams(raw json.RawMessage) (map[string]any, *Error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '{' {
		return nil, NewInvalidParamsError("params must be an object")
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}
	return args, nil
}

// isBatch reports whether payload is a JSON array.
func isBatch(payload []byte) bool {
	payload = bytes.TrimSpace(payload)
	return len(payload) > 0 && payload[0] == '['
}
