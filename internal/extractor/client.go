// Package extractor provides the metadata and stream extraction backends
// consumed by the media resolver.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"norelock.dev/listenify/gateway/internal/models"
)

// WatchURLPrefix is the canonical watch URL every video id is appended to.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// ErrInvalidWatchURL is returned when a watch URL carries no video id.
var ErrInvalidWatchURL = errors.New("invalid watch URL")

// Searcher performs metadata searches. Only the first page is returned.
type Searcher interface {
	SearchByQuery(ctx context.Context, text string) ([]models.SearchItem, error)
}

// StreamSource lists the stream descriptors of a video.
type StreamSource interface {
	GetStreamDescriptors(ctx context.Context, watchURL string) (*models.StreamSet, error)
}

// Client is the full extraction contract the resolver depends on.
type Client interface {
	Searcher
	StreamSource
}

// Composite pairs an independent searcher with a stream source.
type Composite struct {
	Searcher
	StreamSource
}

// NewComposite returns a Client backed by s for search and src for streams.
func NewComposite(s Searcher, src StreamSource) *Composite {
	return &Composite{Searcher: s, StreamSource: src}
}

// StatusError is returned when the extraction API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

// Error returns the error message
func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return fmt.Sprintf("extractor returned %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("extractor returned %d for %s: %s", e.StatusCode, e.URL, msg)
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return WatchURLPrefix + videoID
}

// VideoIDFromWatchURL extracts the v parameter of a watch URL.
func VideoIDFromWatchURL(watchURL string) (string, error) {
	u, err := url.Parse(watchURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidWatchURL, err)
	}
	id := u.Query().Get("v")
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidWatchURL, watchURL)
	}
	return id, nil
}

// canonicalURL resolves a possibly relative item path against the watch host.
func canonicalURL(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return "https://www.youtube.com" + raw
}
