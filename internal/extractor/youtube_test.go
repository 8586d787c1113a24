package extractor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"errors"
	"strings"
	"testing"

	"google.golang.org/api/option"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
)

const youtubeSearchBody = `{
  "kind": "youtube#searchListResponse",
  "items": [
    {
      "kind": "youtube#searchResult",
      "id": {"kind": "youtube#video", "videoId": "vid1"},
      "snippet": {
        "title": "Track One",
        "channelTitle": "Artist",
        "thumbnails": {
          "default": {"url": "https://i/d.jpg", "width": 120, "height": 90},
          "high": {"url": "https://i/h.jpg", "width": 480, "height": 360}
        }
      }
    },
    {
      "kind": "youtube#searchResult",
      "id": {"kind": "youtube#channel", "channelId": "UC1"},
      "snippet": {"title": "Artist", "channelTitle": "Artist"}
    },
    {
      "kind": "youtube#searchResult",
      "id": {"kind": "youtube#playlist", "playlistId": "PL1"},
      "snippet": {"title": "Best of", "channelTitle": "Artist"}
    }
  ]
}`

func TestYouTubeSearcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/search") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "artist" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		if r.Header.Get("X-Goog-Api-Key") != "key" || r.URL.Query().Has("key") {
			t.Errorf("API key must travel in the header only, url %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, youtubeSearchBody)
	}))
	defer srv.Close()

	s, err := NewYouTubeSearcher(context.Background(), newTestDoer(), "key", utils.NewNopLogger(),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewYouTubeSearcher: %v", err)
	}

	items, err := s.SearchByQuery(context.Background(), "artist")
	if err != nil {
		t.Fatalf("SearchByQuery: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}

	video := items[0]
	if video.Kind != models.KindStream || video.URL != WatchURL("vid1") || video.UploaderName != "Artist" {
		t.Errorf("video = %+v", video)
	}
	if len(video.Thumbnails) != 2 || video.Thumbnails[0].URL != "https://i/d.jpg" {
		t.Errorf("thumbnails = %+v", video.Thumbnails)
	}
	if items[1].Kind != models.KindChannel || items[2].Kind != models.KindPlaylist {
		t.Errorf("kinds = %s, %s", items[1].Kind, items[2].Kind)
	}
}

func TestYouTubeSearcherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"quota exceeded"}}`)
	}))
	defer srv.Close()

	s, err := NewYouTubeSearcher(context.Background(), newTestDoer(), "key", utils.NewNopLogger(),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewYouTubeSearcher: %v", err)
	}
	_, err = s.SearchByQuery(context.Background(), "x")
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, models.ErrRateLimited) {
		t.Errorf("403 must not read as rate limited: %v", err)
	}
}

func TestYouTubeSearcherRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota"}}`)
	}))
	defer srv.Close()

	s, err := NewYouTubeSearcher(context.Background(), newTestDoer(), "key", utils.NewNopLogger(),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewYouTubeSearcher: %v", err)
	}

	_, err = s.SearchByQuery(context.Background(), "x")
	var rle *models.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if !strings.HasPrefix(rle.URL, srv.URL+"/") || strings.Contains(rle.URL, "key") {
		t.Errorf("URL = %q", rle.URL)
	}
}

func TestCompositeRoutesCalls(t *testing.T) {
	srv := newPipedServer(t)
	piped := newPiped(srv)
	c := NewComposite(StaticClient{}, piped)

	items, err := c.SearchByQuery(context.Background(), "ignored")
	if err != nil || len(items) != 1 || items[0].Name != DemoTitle {
		t.Fatalf("search went to the wrong backend: %+v, %v", items, err)
	}
	set, err := c.GetStreamDescriptors(context.Background(), WatchURL("abc"))
	if err != nil || len(set.AudioStreams) != 2 {
		t.Fatalf("streams went to the wrong backend: %+v, %v", set, err)
	}
}

func TestNewFromConfig(t *testing.T) {
	doer := transport.NewDownloader(transport.WithLogger(utils.NewNopLogger()))

	c, err := New(context.Background(), config.ExtractorConfig{PipedBaseURL: "http://piped.local"}, doer, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*PipedClient); !ok {
		t.Errorf("default backend = %T, want *PipedClient", c)
	}

	c, err = New(context.Background(), config.ExtractorConfig{
		PipedBaseURL:  "http://piped.local",
		SearchBackend: config.SearchBackendYouTube,
		YouTubeAPIKey: "key",
	}, doer, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("New youtube: %v", err)
	}
	if _, ok := c.(*Composite); !ok {
		t.Errorf("youtube backend = %T, want *Composite", c)
	}

	if _, err := New(context.Background(), config.ExtractorConfig{SearchBackend: "bing"}, doer, utils.NewNopLogger()); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
