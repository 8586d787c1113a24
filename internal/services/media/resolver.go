// Package media provides media resolution and search functionality.
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"norelock.dev/listenify/gateway/internal/extractor"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Result limits
const (
	SearchLimit  = 20
	ChannelLimit = 50
)

// idMarker separates the video id from the rest of a watch URL.
const idMarker = "watch?v="

// Placeholder values for fields the extraction layer cannot provide
const (
	placeholderSubscribers = "0"
	placeholderViews       = "0"
)

// Resolver turns extraction results into caller-facing records.
type Resolver struct {
	client extractor.Client
	logger *utils.Logger
}

// NewResolver creates a new media resolver around an extraction client.
func NewResolver(client extractor.Client, logger *utils.Logger) *Resolver {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Resolver{
		client: client,
		logger: logger.Named("media_resolver"),
	}
}

// Search returns up to SearchLimit tracks for query in extractor order.
// Playlists, channels and any other non-track items are discarded.
func (r *Resolver) Search(ctx context.Context, query string) ([]models.TrackRecord, error) {
	r.logger.Debug("Searching for media", "query", query)

	items, err := r.client.SearchByQuery(ctx, query)
	if err != nil {
		r.logger.Error("Search failed", err, "query", query)
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	tracks := lo.Filter(items, func(item models.SearchItem, _ int) bool {
		return item.IsTrack()
	})

	return lo.Map(truncate(tracks, SearchLimit), func(item models.SearchItem, _ int) models.TrackRecord {
		return toTrackRecord(item)
	}), nil
}

// ListChannelItems approximates a channel listing: the last path segment of
// channelURL is searched for and only tracks whose uploader matches it
// case-insensitively are kept.
func (r *Resolver) ListChannelItems(ctx context.Context, channelURL string) (*models.ChannelRecord, error) {
	token := channelToken(channelURL)
	r.logger.Debug("Listing channel items", "channelUrl", channelURL, "token", token)

	items, err := r.client.SearchByQuery(ctx, token)
	if err != nil {
		r.logger.Error("Channel extraction failed", err, "channelUrl", channelURL)
		return nil, &models.ChannelExtractionError{ChannelURL: channelURL, Err: err}
	}

	matches := lo.Filter(items, func(item models.SearchItem, _ int) bool {
		return item.IsTrack() && strings.EqualFold(item.UploaderName, token)
	})

	videos := lo.Map(truncate(matches, ChannelLimit), func(item models.SearchItem, _ int) models.TrackRecord {
		record := toTrackRecord(item)
		record.Views = placeholderViews
		return record
	})

	return &models.ChannelRecord{
		Name:            token,
		SubscriberCount: placeholderSubscribers,
		AvatarURL:       "",
		Videos:          videos,
	}, nil
}

// ResolveStream picks the audio stream with the highest average bitrate for
// videoID and returns its URL, or its inline content when it has no URL.
// Video-only streams are never used.
func (r *Resolver) ResolveStream(ctx context.Context, videoID string) (*models.StreamResolution, error) {
	watchURL := extractor.WatchURL(videoID)

	set, err := r.client.GetStreamDescriptors(ctx, watchURL)
	if err != nil {
		r.logger.Error("Stream extraction failed", err, "videoId", videoID)
		return nil, fmt.Errorf("resolve stream %q: %w", videoID, err)
	}

	r.logger.Debug("Stream descriptors received",
		"videoId", videoID,
		"audioStreams", len(set.AudioStreams),
		"videoStreams", len(set.VideoStreams),
	)

	if len(set.AudioStreams) == 0 {
		err := &models.NoAudioStreamsError{VideoID: videoID, VideoStreamCount: len(set.VideoStreams)}
		r.logger.Error("No audio streams", err, "videoId", videoID, "videoStreams", len(set.VideoStreams))
		return nil, err
	}

	// Strict comparison keeps the first of equally good streams
	best := lo.MaxBy(set.AudioStreams, func(a, b models.StreamDescriptor) bool {
		return a.AverageBitrate > b.AverageBitrate
	})

	location := best.Location()
	if location == "" {
		return nil, &models.NoStreamURLError{VideoID: videoID}
	}

	r.logger.Debug("Selected audio stream", "videoId", videoID, "bitrate", best.AverageBitrate, "url", utils.TruncateString(location, 120))
	return &models.StreamResolution{URL: location}, nil
}

// toTrackRecord maps a track-type search item to its record.
func toTrackRecord(item models.SearchItem) models.TrackRecord {
	thumbnail := ""
	if len(item.Thumbnails) > 0 {
		thumbnail = item.Thumbnails[0].URL
	}

	return models.TrackRecord{
		ID:           VideoIDFromURL(item.URL),
		Title:        item.Name,
		Artist:       item.UploaderName,
		Album:        "",
		ThumbnailURL: thumbnail,
	}
}

// VideoIDFromURL returns everything after "watch?v=" in u, or "" when the
// marker is absent.
func VideoIDFromURL(u string) string {
	_, id, found := strings.Cut(u, idMarker)
	if !found {
		return ""
	}
	return id
}

// channelToken returns the text after the last "/" of channelURL. A URL
// ending in "/" yields an empty token.
func channelToken(channelURL string) string {
	if i := strings.LastIndex(channelURL, "/"); i >= 0 {
		return channelURL[i+1:]
	}
	return channelURL
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
