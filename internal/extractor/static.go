package extractor

import (
	"context"

	"norelock.dev/listenify/gateway/internal/models"
)

// StaticClient answers every call with fixed demo data. It backs offline
// runs of the CLI and keeps the wiring testable without a network.
type StaticClient struct{}

// Demo values returned by StaticClient
const (
	DemoVideoID   = "test123"
	DemoTitle     = "Test Song"
	DemoArtist    = "Test Artist"
	DemoStreamURL = "https://example.com/test.mp3"
)

// SearchByQuery returns a single demo track regardless of text.
func (StaticClient) SearchByQuery(context.Context, string) ([]models.SearchItem, error) {
	return []models.SearchItem{{
		Kind:         models.KindStream,
		URL:          WatchURL(DemoVideoID),
		Name:         DemoTitle,
		UploaderName: DemoArtist,
	}}, nil
}

// GetStreamDescriptors returns one demo audio stream.
func (StaticClient) GetStreamDescriptors(context.Context, string) (*models.StreamSet, error) {
	return &models.StreamSet{
		AudioStreams: []models.StreamDescriptor{{AverageBitrate: 128000, URL: DemoStreamURL, MimeType: "audio/mpeg"}},
	}, nil
}
