package extractor

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
)

// youtubePageSize mirrors the first-page size of the Piped search.
const youtubePageSize = 25

// apiKeyHeader carries the key so that it never appears in logged URLs.
const apiKeyHeader = "X-Goog-Api-Key"

// YouTubeSearcher implements Searcher on top of the YouTube Data API.
type YouTubeSearcher struct {
	service *youtube.Service
	logger  *utils.Logger
}

// NewYouTubeSearcher creates the API service once. Every API call goes out
// through doer, so quota rejections surface as *models.RateLimitedError.
func NewYouTubeSearcher(ctx context.Context, doer transport.Doer, apiKey string, logger *utils.Logger, opts ...option.ClientOption) (*YouTubeSearcher, error) {
	if logger == nil {
		logger = utils.GetLogger()
	}

	var extra *transport.Header
	if apiKey != "" {
		extra = transport.NewHeader()
		extra.Set(apiKeyHeader, apiKey)
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(transport.NewClient(doer, extra))}, opts...)

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &YouTubeSearcher{
		service: service,
		logger:  logger.Named("youtube_searcher"),
	}, nil
}

// SearchByQuery runs search.list and maps every result kind.
func (s *YouTubeSearcher) SearchByQuery(ctx context.Context, text string) ([]models.SearchItem, error) {
	s.logger.Debug("Searching YouTube", "query", text)

	response, err := s.service.Search.List([]string{"id", "snippet"}).
		Q(text).
		MaxResults(youtubePageSize).
		Context(ctx).
		Do()
	if err != nil {
		s.logger.Error("Failed to search YouTube", err, "query", text)
		return nil, fmt.Errorf("failed to search YouTube: %w", err)
	}

	items := make([]models.SearchItem, 0, len(response.Items))
	for _, result := range response.Items {
		if result.Id == nil {
			continue
		}

		item := models.SearchItem{}
		switch result.Id.Kind {
		case "youtube#video":
			item.Kind = models.KindStream
			item.URL = WatchURL(result.Id.VideoId)
		case "youtube#playlist":
			item.Kind = models.KindPlaylist
			item.URL = "https://www.youtube.com/playlist?list=" + result.Id.PlaylistId
		case "youtube#channel":
			item.Kind = models.KindChannel
			item.URL = "https://www.youtube.com/channel/" + result.Id.ChannelId
		default:
			continue
		}

		if result.Snippet != nil {
			item.Name = result.Snippet.Title
			item.UploaderName = result.Snippet.ChannelTitle
			item.Thumbnails = thumbnails(result.Snippet.Thumbnails)
		}
		items = append(items, item)
	}

	return items, nil
}

// thumbnails flattens the API thumbnail set, smallest first.
func thumbnails(details *youtube.ThumbnailDetails) []models.Thumbnail {
	if details == nil {
		return nil
	}

	var out []models.Thumbnail
	for _, t := range []*youtube.Thumbnail{details.Default, details.Medium, details.High, details.Standard, details.Maxres} {
		if t == nil || t.Url == "" {
			continue
		}
		out = append(out, models.Thumbnail{URL: t.Url, Width: int(t.Width), Height: int(t.Height)})
	}
	return out
}
