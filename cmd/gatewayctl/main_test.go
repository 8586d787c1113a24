package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/extractor"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/rpc"
	"norelock.dev/listenify/gateway/internal/services/media"
	"norelock.dev/listenify/gateway/internal/utils"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestOfflineSearch(t *testing.T) {
	out, _, err := run(t, "--offline", "search", "any", "thing")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var tracks []models.TrackRecord
	if err := json.Unmarshal([]byte(out), &tracks); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(tracks) != 1 || tracks[0].ID != extractor.DemoVideoID || tracks[0].Title != extractor.DemoTitle {
		t.Errorf("tracks = %+v", tracks)
	}
}

func TestOfflineStream(t *testing.T) {
	out, _, err := run(t, "--offline", "stream", extractor.DemoVideoID)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var url string
	if err := json.Unmarshal([]byte(out), &url); err != nil {
		t.Fatal(err)
	}
	if url != extractor.DemoStreamURL {
		t.Errorf("url = %q", url)
	}
}

func TestOfflineChannel(t *testing.T) {
	// Channel listing matches uploader names, the demo uploader has a space
	out, _, err := run(t, "--offline", "channel", "https://www.youtube.com/c/"+extractor.DemoArtist)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}

	var channel models.ChannelRecord
	if err := json.Unmarshal([]byte(out), &channel); err != nil {
		t.Fatal(err)
	}
	if channel.Name != extractor.DemoArtist || len(channel.Videos) != 1 || channel.Videos[0].Views != "0" {
		t.Errorf("channel = %+v", channel)
	}
}

func TestArgumentValidation(t *testing.T) {
	if _, _, err := run(t, "--offline", "search"); err == nil {
		t.Error("search without a query should fail")
	}
	if _, _, err := run(t, "--offline", "stream", "a", "b"); err == nil {
		t.Error("stream with two ids should fail")
	}
	if _, _, err := run(t, "--offline", "--remote", "http://localhost:1", "stream", "a"); err == nil {
		t.Error("--offline and --remote are mutually exclusive")
	}
}

func TestRemote(t *testing.T) {
	logger := utils.NewNopLogger()
	b := bridge.New(media.NewResolver(extractor.StaticClient{}, logger), bridge.Options{Workers: 1}, logger, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Shutdown(ctx)
	})

	srv := httptest.NewServer(rpc.NewHTTPHandler(rpc.NewRouter(b, logger), logger))
	defer srv.Close()

	out, _, err := run(t, "--remote", srv.URL, "stream", extractor.DemoVideoID)
	if err != nil {
		t.Fatalf("remote stream: %v", err)
	}
	if strings.TrimSpace(out) != `"`+extractor.DemoStreamURL+`"` {
		t.Errorf("output = %q", out)
	}
}

func TestRPCEndpoint(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8080":      "http://localhost:8080/rpc",
		"http://localhost:8080/":     "http://localhost:8080/rpc",
		"http://localhost:8080/rpc":  "http://localhost:8080/rpc",
		"https://gw.example/api/rpc": "https://gw.example/api/rpc",
	}
	for in, want := range tests {
		if got := rpcEndpoint(in); got != want {
			t.Errorf("rpcEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
