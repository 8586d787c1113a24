package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(window time.Duration, limit int) (*RateLimiter, *time.Time) {
	rl := NewRateLimiter(window, limit)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterTake(t *testing.T) {
	rl, now := newTestLimiter(time.Minute, 2)
	ctx := context.Background()

	for i, wantRemaining := range []int{1, 0} {
		res, err := rl.Take(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed || res.Remaining != wantRemaining {
			t.Fatalf("take %d: %+v", i, res)
		}
		*now = now.Add(10 * time.Second)
	}

	res, _ := rl.Take(ctx, "a")
	if res.Allowed {
		t.Fatal("third request in window should be denied")
	}
	// First request was 20s ago, it leaves the window in 40s
	if res.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", res.RetryAfter)
	}

	// Other keys are independent
	if res, _ := rl.Take(ctx, "b"); !res.Allowed {
		t.Error("key b should be allowed")
	}

	*now = now.Add(41 * time.Second)
	if res, _ := rl.Take(ctx, "a"); !res.Allowed {
		t.Error("request should be allowed once the window slides")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, now := newTestLimiter(time.Second, 5)
	_, _ = rl.Take(context.Background(), "a")

	*now = now.Add(2 * time.Second)
	rl.cleanup()

	if len(rl.requests) != 0 {
		t.Errorf("expected expired keys to be removed, got %d", len(rl.requests))
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := map[time.Duration]int{
		0:                       1,
		300 * time.Millisecond:  1,
		1500 * time.Millisecond: 2,
		40 * time.Second:        40,
	}
	for in, want := range tests {
		if got := RetryAfterSeconds(in); got != want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", in, got, want)
		}
	}
}

type failingLimiter struct{}

func (failingLimiter) Take(context.Context, string) (*LimitResult, error) {
	return nil, errors.New("store down")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(time.Minute, 1)
	handler := RateLimitMiddleware(rl, DefaultKeyFunc, NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/media/search", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("unexpected headers %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}

	var body APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Success {
		t.Error("expected unsuccessful response")
	}
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	handler := RateLimitMiddleware(failingLimiter{}, DefaultKeyFunc, NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestDefaultKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/media/stream/abc", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := DefaultKeyFunc(req); got != "ip:203.0.113.7" {
		t.Errorf("DefaultKeyFunc = %q", got)
	}
}
