// Package jsonrpc provides a JSON-RPC 2.0 client for the gateway's /rpc
// endpoint.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only protocol version spoken.
const Version = "2.0"

// JSON-RPC 2.0 error codes
const (
	// Parse error: Invalid JSON was received by the server.
	ErrParseError = -32700

	// Invalid Request: The JSON sent is not a valid Request object.
	ErrInvalidRequest = -32600

	// Method not found: The method does not exist / is not available.
	ErrMethodNotFound = -32601

	// Invalid params: Invalid method parameter(s).
	ErrInvalidParams = -32602

	// Internal error: Internal JSON-RPC error.
	ErrInternalError = -32603

	// Server error: the operation ran and failed.
	ErrServerError = -32000
)

// ErrInvalidResponse is returned for replies that are not JSON-RPC 2.0.
var ErrInvalidResponse = errors.New("invalid response")

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	// ID is omitted for notifications
	ID any `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface. Operation errors already read
// "CODE: message" and are returned as is.
func (e *Error) Error() string {
	if e.Code == ErrServerError {
		return e.Message
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// OperationCode returns the operation error code carried in Data, "" for
// protocol errors.
func (e *Error) OperationCode() string {
	var data struct {
		Code string `json:"code"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &data) != nil {
		return ""
	}
	return data.Code
}

// NewRequest creates a new JSON-RPC 2.0 request. A nil id makes it a
// notification.
func NewRequest(method string, params any, id any) (*Request, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, err
		}
	}

	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  paramsJSON,
		ID:      id,
	}, nil
}

// ParseResponse parses and checks a single response.
func ParseResponse(data []byte) (*Response, error) {
	var res Response
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if res.JSONRPC != Version {
		return nil, fmt.Errorf("%w: version %q", ErrInvalidResponse, res.JSONRPC)
	}
	return &res, nil
}
