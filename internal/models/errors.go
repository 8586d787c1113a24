// Package models contains the data structures used throughout the application.
package models

import (
	"errors"
	"fmt"
)

// Common error types for the resolution domain
var (
	// ErrUnsupportedOperation is returned for operation names the gateway does not know.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrRateLimited marks every RateLimitedError for errors.Is checks.
	ErrRateLimited = errors.New("rate limited by origin")

	// ErrNoAudioStreams marks every NoAudioStreamsError.
	ErrNoAudioStreams = errors.New("could not get audio streams")

	// ErrNoStreamURL marks every NoStreamURLError.
	ErrNoStreamURL = errors.New("no stream URL available")
)

// TransportError is a network level failure (DNS, dial, TLS, timeout) while
// executing an HTTP exchange.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error returns the error message
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitedError is returned when the origin answers with HTTP 429.
type RateLimitedError struct {
	// URL is the URL of the request that was rejected.
	URL string
}

// Error returns the error message
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by origin: %s", e.URL)
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// ChannelExtractionError wraps any failure that happened while listing a channel.
type ChannelExtractionError struct {
	ChannelURL string
	Err        error
}

// Error returns the error message
func (e *ChannelExtractionError) Error() string {
	return fmt.Sprintf("channel extraction failed for %s: %v", e.ChannelURL, e.Err)
}

// Unwrap returns the underlying error
func (e *ChannelExtractionError) Unwrap() error {
	return e.Err
}

// NoAudioStreamsError is returned when a video exposes no audio-only streams.
// VideoStreamCount is diagnostic only; video streams are never used as a fallback.
type NoAudioStreamsError struct {
	VideoID          string
	VideoStreamCount int
}

// Error returns the error message
func (e *NoAudioStreamsError) Error() string {
	return fmt.Sprintf("%s for %s (%d video streams)", ErrNoAudioStreams, e.VideoID, e.VideoStreamCount)
}

// Is makes errors.Is(err, ErrNoAudioStreams) match.
func (e *NoAudioStreamsError) Is(target error) bool {
	return target == ErrNoAudioStreams
}

// NoStreamURLError is returned when the selected stream has neither a URL nor content.
type NoStreamURLError struct {
	VideoID string
}

// Error returns the error message
func (e *NoStreamURLError) Error() string {
	return fmt.Sprintf("%s for %s", ErrNoStreamURL, e.VideoID)
}

// Is makes errors.Is(err, ErrNoStreamURL) match.
func (e *NoStreamURLError) Is(target error) bool {
	return target == ErrNoStreamURL
}
