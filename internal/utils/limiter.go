// Package utils provides utility functions used throughout the application.
package utils

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// LimitResult describes the outcome of one rate limit check.
type LimitResult struct {
	// Allowed reports whether the request may proceed
	Allowed bool
	// Limit is the number of requests permitted per window
	Limit int
	// Remaining is the number of requests left in the current window
	Remaining int
	// ResetAfter is the time until the oldest counted request leaves the window
	ResetAfter time.Duration
	// RetryAfter is the time the caller should wait when not allowed
	RetryAfter time.Duration
}

// Limiter is a sliding-window rate limiter keyed by caller.
type Limiter interface {
	Take(ctx context.Context, key string) (*LimitResult, error)
}

// RateLimiter provides a simple in-memory rate limiting functionality.
type RateLimiter struct {
	// requests maps keys to the timestamps of requests made
	requests map[string][]time.Time

	// window defines the time period for limiting
	window time.Duration

	// limit is the maximum number of requests allowed in the window
	limit int

	// now is replaced in tests
	now func() time.Time

	mu sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the specified window and limit.
func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		now:      time.Now,
	}
}

// Take records a request for key if it fits in the window.
func (rl *RateLimiter) Take(_ context.Context, key string) (*LimitResult, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.prune(key, now)

	result := &LimitResult{Limit: rl.limit}

	if rl.limit <= 0 {
		result.Allowed = true
		return result, nil
	}

	if len(valid) >= rl.limit {
		wait := valid[0].Add(rl.window).Sub(now)
		result.ResetAfter = wait
		result.RetryAfter = wait
		return result, nil
	}

	valid = append(valid, now)
	rl.requests[key] = valid

	result.Allowed = true
	result.Remaining = rl.limit - len(valid)
	result.ResetAfter = valid[0].Add(rl.window).Sub(now)
	return result, nil
}

// prune drops timestamps outside the window and returns what is left, oldest first.
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	times := rl.requests[key]

	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	valid := times[i:]

	if len(valid) == 0 {
		delete(rl.requests, key)
		return nil
	}
	rl.requests[key] = valid
	return valid
}

// CleanupLoop periodically cleans up expired entries.
// It should be started in a goroutine.
func (rl *RateLimiter) CleanupLoop(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes expired entries from the requests map.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.requests {
		rl.prune(key, now)
	}
}

// RateLimitMiddleware is an HTTP middleware that applies rate limiting.
// Limiter failures let the request through.
func RateLimitMiddleware(limiter Limiter, keyFunc func(*http.Request) string, logger *Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = GetLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)

			result, err := limiter.Take(r.Context(), key)
			if err != nil {
				logger.Warn("Rate limiter unavailable", "key", key, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			// Set rate limit headers
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(result.RetryAfter)))
				RespondWithAppError(w, RateLimitError("Too many requests", ErrRateLimited))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RetryAfterSeconds rounds d up to whole seconds, at least 1.
func RetryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

// DefaultKeyFunc creates a rate limit key based on the client's IP address.
func DefaultKeyFunc(r *http.Request) string {
	return fmt.Sprintf("ip:%s", GetRequestIP(r))
}
