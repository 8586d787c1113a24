package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

type stubOrchestrator struct{}

func (stubOrchestrator) Search(_ context.Context, query string) ([]models.TrackRecord, error) {
	if query == "fail" {
		return nil, &models.RateLimitedError{URL: "https://upstream/search"}
	}
	return []models.TrackRecord{{ID: "abc", Title: query, Artist: "Artist"}}, nil
}

func (stubOrchestrator) ListChannelItems(_ context.Context, channelURL string) (*models.ChannelRecord, error) {
	return &models.ChannelRecord{Name: "Artist", SubscriberCount: "0", Videos: []models.TrackRecord{}}, nil
}

func (stubOrchestrator) ResolveStream(_ context.Context, videoID string) (*models.StreamResolution, error) {
	if videoID == "silent" {
		return nil, &models.NoAudioStreamsError{VideoID: videoID, VideoStreamCount: 2}
	}
	return &models.StreamResolution{URL: "https://cdn.example/" + videoID}, nil
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	b := bridge.New(stubOrchestrator{}, bridge.Options{Workers: 2, QueueSize: 8}, utils.NewNopLogger(), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Shutdown(ctx)
	})
	return NewRouter(b, utils.NewNopLogger())
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    ErrorCode          `json:"code"`
		Message string             `json:"message"`
		Data    OperationErrorData `json:"data"`
	} `json:"error"`
	ID any `json:"id"`
}

func postRPC(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeOne(t *testing.T, rec *httptest.ResponseRecorder) wireResponse {
	t.Helper()
	var resp wireResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHTTPSearch(t *testing.T) {
	h := NewHTTPHandler(newTestRouter(t), utils.NewNopLogger())

	rec := postRPC(t, h, `{"jsonrpc":"2.0","method":"search","params":{"query":"lofi"},"id":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	resp := decodeOne(t, rec)
	if resp.Error != nil {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
	var tracks []models.TrackRecord
	if err := json.Unmarshal(resp.Result, &tracks); err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].Title != "lofi" || tracks[0].ID != "abc" {
		t.Errorf("tracks = %+v", tracks)
	}
	if resp.ID != float64(1) {
		t.Errorf("id = %v", resp.ID)
	}
}

func TestHTTPOperationErrors(t *testing.T) {
	h := NewHTTPHandler(newTestRouter(t), utils.NewNopLogger())

	tests := []struct {
		name       string
		body       string
		wantCode   string
		wantReason string
	}{
		{
			name:       "search rate limited",
			body:       `{"jsonrpc":"2.0","method":"search","params":{"query":"fail"},"id":"a"}`,
			wantCode:   bridge.CodeSearch,
			wantReason: bridge.ReasonRateLimited,
		},
		{
			name:       "stream without audio",
			body:       `{"jsonrpc":"2.0","method":"getStreamUrl","params":{"id":"silent"},"id":"b"}`,
			wantCode:   bridge.CodeStream,
			wantReason: bridge.ReasonNoAudioStreams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeOne(t, postRPC(t, h, tt.body))
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != ErrServerError {
				t.Errorf("code = %d", resp.Error.Code)
			}
			if !strings.HasPrefix(resp.Error.Message, tt.wantCode+": ") {
				t.Errorf("message = %q", resp.Error.Message)
			}
			if resp.Error.Data.Code != tt.wantCode || resp.Error.Data.Reason != tt.wantReason {
				t.Errorf("data = %+v", resp.Error.Data)
			}
		})
	}
}

func TestHTTPProtocolErrors(t *testing.T) {
	h := NewHTTPHandler(newTestRouter(t), utils.NewNopLogger())

	tests := []struct {
		name string
		body string
		want ErrorCode
	}{
		{"parse error", `{"jsonrpc":`, ErrParseError},
		{"wrong version", `{"jsonrpc":"1.0","method":"search","id":1}`, ErrInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrInvalidRequest},
		{"positional params", `{"jsonrpc":"2.0","method":"search","params":["x"],"id":1}`, ErrInvalidParams},
		{"unknown method", `{"jsonrpc":"2.0","method":"download","id":1}`, ErrMethodNotFound},
		{"empty batch", `[]`, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeOne(t, postRPC(t, h, tt.body))
			if resp.Error == nil || resp.Error.Code != tt.want {
				t.Errorf("error = %+v, want code %d", resp.Error, tt.want)
			}
		})
	}
}

func TestHTTPMissingParamsReadAsEmpty(t *testing.T) {
	h := NewHTTPHandler(newTestRouter(t), utils.NewNopLogger())

	resp := decodeOne(t, postRPC(t, h, `{"jsonrpc":"2.0","method":"getStreamUrl","id":7}`))
	if resp.Error != nil {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
	var url string
	if err := json.Unmarshal(resp.Result, &url); err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example/" {
		t.Errorf("url = %q", url)
	}
}

func TestHTTPNotification(t *testing.T) {
	h := NewHTTPHandler(newTestRouter(t), utils.NewNopLogger())

	rec := postRPC(t, h, `{"jsonrpc":"2.0","method":"search","params":{"query":"x"}}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHTTPBatch(t *testing.T) {
	h := NewHTTPHandler(newTestRouter(t), utils.NewNopLogger())

	body := `[
		{"jsonrpc":"2.0","method":"search","params":{"query":"a"},"id":1},
		{"jsonrpc":"2.0","method":"getStreamUrl","params":{"id":"xyz"},"id":2},
		{"jsonrpc":"2.0","method":"getChannelVideos","params":{"channelUrl":"https://youtube.com/c/Artist"}},
		{"jsonrpc":"2.0","method":"nope","id":3},
		42
	]`
	rec := postRPC(t, h, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var responses []wireResponse
	if err := json.NewDecoder(rec.Body).Decode(&responses); err != nil {
		t.Fatal(err)
	}
	// The notification gets no response
	if len(responses) != 4 {
		t.Fatalf("got %d responses, want 4", len(responses))
	}

	if responses[0].ID != float64(1) || responses[0].Error != nil {
		t.Errorf("first = %+v", responses[0])
	}
	if !bytes.Contains(responses[1].Result, []byte("https://cdn.example/xyz")) {
		t.Errorf("second = %s", responses[1].Result)
	}
	if responses[2].Error == nil || responses[2].Error.Code != ErrMethodNotFound {
		t.Errorf("third = %+v", responses[2])
	}
	if responses[3].Error == nil || responses[3].Error.Code != ErrInvalidRequest || responses[3].ID != nil {
		t.Errorf("fourth = %+v", responses[3])
	}
}

func TestRouterNotImplementedOnOrigin(t *testing.T) {
	router := newTestRouter(t)

	var posted int
	origin := bridge.ExecutorFunc(func(fn func()) {
		posted++
		fn()
	})

	done := make(chan *Response, 1)
	router.Route(&Request{JSONRPC: Version, Method: "other", ID: 1}, origin, func(r *Response) { done <- r })

	resp := <-done
	if resp.Error == nil || resp.Error.Code != ErrMethodNotFound {
		t.Errorf("response = %+v", resp)
	}
	if posted != 1 {
		t.Errorf("reply should be posted to origin once, got %d", posted)
	}
}

func newWSServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(newTestRouter(t), config.WebSocketConfig{
		MaxMessageSize: 8192,
		WriteWait:      time.Second,
		PongWait:       10 * time.Second,
		PingPeriod:     5 * time.Second,
	}, utils.NewNopLogger(), nil)

	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	t.Cleanup(srv.Close)
	return s, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) wireResponse {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp wireResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func TestWebSocketRoundTrip(t *testing.T) {
	_, srv := newWSServer(t)
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"getStreamUrl","params":{"id":"xyz"},"id":"s1"}`)); err != nil {
		t.Fatal(err)
	}
	resp := readResponse(t, conn)
	if resp.ID != "s1" || resp.Error != nil {
		t.Fatalf("response = %+v", resp)
	}
	var url string
	_ = json.Unmarshal(resp.Result, &url)
	if url != "https://cdn.example/xyz" {
		t.Errorf("url = %q", url)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"getStreamUrl","params":{"id":"silent"},"id":"s2"}`)); err != nil {
		t.Fatal(err)
	}
	resp = readResponse(t, conn)
	if resp.Error == nil || resp.Error.Data.Reason != bridge.ReasonNoAudioStreams {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebSocketManyRequests(t *testing.T) {
	_, srv := newWSServer(t)
	conn := dial(t, srv)

	const n = 10
	for i := 0; i < n; i++ {
		msg, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"method":  "search",
			"params":  map[string]any{"query": "q"},
			"id":      i,
		})
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			t.Fatal(err)
		}
	}

	seen := make(map[float64]bool)
	for i := 0; i < n; i++ {
		resp := readResponse(t, conn)
		if resp.Error != nil {
			t.Fatalf("unexpected error %+v", resp.Error)
		}
		seen[resp.ID.(float64)] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct ids, want %d", len(seen), n)
	}
}

func TestWebSocketProtocolErrors(t *testing.T) {
	_, srv := newWSServer(t)
	conn := dial(t, srv)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	if resp := readResponse(t, conn); resp.Error == nil || resp.Error.Code != ErrParseError {
		t.Errorf("parse: %+v", resp)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"jsonrpc":"2.0","method":"search","id":1}]`))
	if resp := readResponse(t, conn); resp.Error == nil || resp.Error.Code != ErrInvalidRequest {
		t.Errorf("batch: %+v", resp)
	}
}

func TestWebSocketShutdown(t *testing.T) {
	s, srv := newWSServer(t)
	conn := dial(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for s.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.GetClientCount() != 1 {
		t.Fatalf("client count = %d", s.GetClientCount())
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.GetClientCount() != 0 {
		t.Errorf("client count after shutdown = %d", s.GetClientCount())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}
