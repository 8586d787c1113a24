package bridge

import (
	"errors"
	"fmt"

	"norelock.dev/listenify/gateway/internal/models"
)

// Operation names accepted by Invoke
const (
	OpSearch           = "search"
	OpGetStreamURL     = "getStreamUrl"
	OpGetChannelVideos = "getChannelVideos"
)

// Error codes reported to callers, one per operation
const (
	CodeSearch  = "SEARCH_ERROR"
	CodeStream  = "STREAM_ERROR"
	CodeChannel = "CHANNEL_ERROR"
)

// Reasons classify the cause of an OperationError
const (
	ReasonRateLimited       = "rate_limited"
	ReasonTransport         = "transport"
	ReasonNoAudioStreams    = "no_audio_streams"
	ReasonNoStreamURL       = "no_stream_url"
	ReasonChannelExtraction = "channel_extraction"
	ReasonUpstream          = "upstream"
	ReasonInternal          = "internal"
	ReasonUnavailable       = "unavailable"
)

// ErrShutdown is the cause reported for work submitted after Shutdown.
var ErrShutdown = errors.New("bridge is shut down")

// OperationError is the only error shape that crosses the bridge.
type OperationError struct {
	// Code is the stable per-operation code, e.g. SEARCH_ERROR
	Code string `json:"code"`
	// Message is the human readable description of the cause
	Message string `json:"message"`
	// Reason is a stable sub-kind for diagnostics
	Reason string `json:"reason"`

	cause error
}

// Error renders "CODE: message".
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the classified cause.
func (e *OperationError) Unwrap() error {
	return e.cause
}

// Outcome is what a callback receives: a value, an error, or a
// not-implemented marker for unknown operations.
type Outcome struct {
	Value          any
	Err            *OperationError
	NotImplemented bool
}

// OK reports whether the outcome carries a value.
func (o Outcome) OK() bool {
	return o.Err == nil && !o.NotImplemented
}

// codeFor maps an operation to its error code.
func codeFor(op string) string {
	switch op {
	case OpSearch:
		return CodeSearch
	case OpGetStreamURL:
		return CodeStream
	case OpGetChannelVideos:
		return CodeChannel
	default:
		return ""
	}
}

// newOperationError classifies err for op.
func newOperationError(op string, err error) *OperationError {
	return &OperationError{
		Code:    codeFor(op),
		Message: err.Error(),
		Reason:  Classify(err),
		cause:   err,
	}
}

// Classify returns the Reason matching err. The most specific kind wins.
func Classify(err error) string {
	var (
		channelErr   *models.ChannelExtractionError
		transportErr *models.TransportError
	)

	switch {
	case errors.Is(err, ErrShutdown):
		return ReasonUnavailable
	case errors.Is(err, models.ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, models.ErrNoAudioStreams):
		return ReasonNoAudioStreams
	case errors.Is(err, models.ErrNoStreamURL):
		return ReasonNoStreamURL
	case errors.As(err, &transportErr):
		return ReasonTransport
	case errors.As(err, &channelErr):
		return ReasonChannelExtraction
	default:
		return ReasonUpstream
	}
}
