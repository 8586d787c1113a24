package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"norelock.dev/listenify/gateway/internal/models"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", BadRequestError("", nil), http.StatusBadRequest},
		{"upstream rate limit", fmt.Errorf("search: %w", &models.RateLimitedError{URL: "u"}), http.StatusTooManyRequests},
		{"no audio", &models.NoAudioStreamsError{VideoID: "v"}, http.StatusNotFound},
		{"no url", &models.NoStreamURLError{VideoID: "v"}, http.StatusNotFound},
		{"unsupported", models.ErrUnsupportedOperation, http.StatusNotImplemented},
		{"transport", &models.TransportError{Method: "GET", URL: "u", Err: errors.New("x")}, http.StatusBadGateway},
		{"channel", &models.ChannelExtractionError{ChannelURL: "u", Err: errors.New("x")}, http.StatusBadGateway},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"validation", ErrValidation, http.StatusUnprocessableEntity},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorDetails(t *testing.T) {
	err := NotFoundError("", ErrNotFound).AddDetail("id", "abc").WithDetails(map[string]any{"kind": "stream"})

	if !errors.Is(err, ErrNotFound) || StatusCode(err) != http.StatusNotFound {
		t.Error("expected not found error")
	}
	if err.Details["id"] != "abc" || err.Details["kind"] != "stream" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestRespondWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithAppError(rec, BadGatewayError("Upstream failed", errors.New("dial")).
		AddDetail("reason", "transport").
		AddDetail("message", "ignored"))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body struct {
		Success bool              `json:"success"`
		Error   map[string]string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Success || body.Error["message"] != "Upstream failed" || body.Error["reason"] != "transport" {
		t.Errorf("body = %+v", body)
	}
}

func TestSanitize(t *testing.T) {
	if got := SanitizeQuery("  lofi <b>beats</b><script>alert(1)</script>   to study "); got != "lofi beats to study" {
		t.Errorf("SanitizeQuery = %q", got)
	}

	long := make([]rune, MaxQueryLength+10)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeQuery(string(long)); len([]rune(got)) != MaxQueryLength {
		t.Errorf("query not truncated, length %d", len([]rune(got)))
	}

	if got := SanitizeURL(" https://www.youtube.com/c/Artist "); got != "https://www.youtube.com/c/Artist" {
		t.Errorf("SanitizeURL = %q", got)
	}
	for _, bad := range []string{"ftp://x/y", "javascript:alert(1)", "https://", "::"} {
		if got := SanitizeURL(bad); got != "" {
			t.Errorf("SanitizeURL(%q) = %q, want empty", bad, got)
		}
	}
}

func TestValidateVar(t *testing.T) {
	if err := ValidateVar("dQw4w9WgXcQ", "video_id"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	if err := ValidateVar("../etc", "video_id"); err == nil {
		t.Error("invalid id accepted")
	}
	if err := ValidateVar("https://youtube.com/c/Artist", "channel_url"); err != nil {
		t.Errorf("valid channel rejected: %v", err)
	}
	if err := ValidateVar("Artist", "channel_url"); err == nil {
		t.Error("bare name accepted as channel URL")
	}
}

func TestFormatValidationErrors(t *testing.T) {
	type request struct {
		Query string `json:"q" validate:"required"`
		Limit int    `json:"limit" validate:"max=20"`
	}

	errs := FormatValidationErrors(Validate(request{Limit: 30}))
	if errs["q"] != "This field is required" {
		t.Errorf("q = %q", errs["q"])
	}
	if errs["limit"] != "Value must be less than or equal to 20" {
		t.Errorf("limit = %q", errs["limit"])
	}
}

func TestHelpers(t *testing.T) {
	if got := TruncateString("abcdefgh", 6); got != "abc..." {
		t.Errorf("TruncateString = %q", got)
	}
	if got := TruncateString("abc", 6); got != "abc" {
		t.Errorf("TruncateString = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := GetRequestIP(req); got != "192.0.2.1" {
		t.Errorf("GetRequestIP = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug").String() != "debug" {
		t.Error("debug not parsed")
	}
	if ParseLevel("nonsense").String() != "info" {
		t.Error("unknown level should fall back to info")
	}
}
