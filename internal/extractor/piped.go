package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
)

// PipedClient talks to a Piped-compatible JSON API through the transport adapter.
type PipedClient struct {
	baseURL string
	doer    transport.Doer
	logger  *utils.Logger
}

type pipedSearchResponse struct {
	Items []pipedItem `json:"items"`
}

type pipedItem struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Thumbnail    string `json:"thumbnail"`
	UploaderName string `json:"uploaderName"`
}

type pipedStreamsResponse struct {
	AudioStreams []pipedStream `json:"audioStreams"`
	VideoStreams []pipedStream `json:"videoStreams"`
}

type pipedStream struct {
	URL      string `json:"url"`
	Bitrate  int    `json:"bitrate"`
	MimeType string `json:"mimeType"`
}

// NewPipedClient creates a client for the API rooted at baseURL.
func NewPipedClient(baseURL string, doer transport.Doer, logger *utils.Logger) *PipedClient {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &PipedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		logger:  logger.Named("piped"),
	}
}

// SearchByQuery returns the first result page for text.
func (c *PipedClient) SearchByQuery(ctx context.Context, text string) ([]models.SearchItem, error) {
	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, url.Values{
		"q":      {text},
		"filter": {"all"},
	}.Encode())

	var resp pipedSearchResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	items := make([]models.SearchItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		item := models.SearchItem{
			Kind:         pipedKind(it.Type),
			URL:          canonicalURL(it.URL),
			Name:         it.Title,
			UploaderName: it.UploaderName,
		}
		// Channels and playlists carry "name" instead of "title"
		if item.Name == "" {
			item.Name = it.Name
		}
		if it.Thumbnail != "" {
			item.Thumbnails = []models.Thumbnail{{URL: it.Thumbnail}}
		}
		items = append(items, item)
	}

	c.logger.Debug("Search completed", "query", text, "items", len(items))
	return items, nil
}

// GetStreamDescriptors lists the audio and video streams of the video
// referenced by watchURL.
func (c *PipedClient) GetStreamDescriptors(ctx context.Context, watchURL string) (*models.StreamSet, error) {
	id, err := VideoIDFromWatchURL(watchURL)
	if err != nil {
		return nil, err
	}

	var resp pipedStreamsResponse
	if err := c.getJSON(ctx, c.baseURL+"/streams/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}

	return &models.StreamSet{
		AudioStreams: toDescriptors(resp.AudioStreams),
		VideoStreams: toDescriptors(resp.VideoStreams),
	}, nil
}

// getJSON executes a GET and decodes a 2xx body into dest.
func (c *PipedClient) getJSON(ctx context.Context, endpoint string, dest any) error {
	h := transport.NewHeader()
	h.Set("Accept", "application/json")

	res, err := c.doer.Execute(ctx, transport.Get(endpoint, h))
	if err != nil {
		return err
	}
	if !res.OK() {
		return &StatusError{StatusCode: res.StatusCode, URL: endpoint, Body: res.Body}
	}
	if err := json.Unmarshal([]byte(res.Body), dest); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func pipedKind(t string) models.ItemKind {
	switch t {
	case "stream":
		return models.KindStream
	case "playlist":
		return models.KindPlaylist
	case "channel":
		return models.KindChannel
	default:
		return models.ItemKind(t)
	}
}

func toDescriptors(streams []pipedStream) []models.StreamDescriptor {
	out := make([]models.StreamDescriptor, 0, len(streams))
	for _, s := range streams {
		out = append(out, models.StreamDescriptor{
			AverageBitrate: s.Bitrate,
			URL:            s.URL,
			MimeType:       s.MimeType,
		})
	}
	return out
}
