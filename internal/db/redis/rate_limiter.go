// Package redis provides Redis database connectivity and operations.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"norelock.dev/listenify/gateway/internal/utils"
)

const (
	// RateLimitKeyPrefix is the prefix for rate limit keys
	RateLimitKeyPrefix = "ratelimit"
)

// RateLimiter implements a sliding-window limiter shared by every gateway
// instance pointing at the same Redis.
type RateLimiter struct {
	client *Client
	logger *utils.Logger

	limit  int
	window time.Duration

	// now is replaced in tests
	now func() time.Time
}

var _ utils.Limiter = (*RateLimiter)(nil)

// NewRateLimiter creates a new rate limiter allowing limit requests per window
func NewRateLimiter(client *Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: client.Logger().Named("ratelimit"),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Take checks if a request for identifier is allowed and records it when it is
func (rl *RateLimiter) Take(ctx context.Context, identifier string) (*utils.LimitResult, error) {
	key := FormatKey(RateLimitKeyPrefix, identifier)

	now := rl.now()
	windowStartMs := now.Add(-rl.window).UnixMilli()

	pipe := rl.client.TxPipeline()

	// Remove tokens older than the window
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStartMs, 10))

	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		rl.logger.Error("Failed to execute rate limit pipeline", err, "key", key)
		return nil, err
	}

	count := int(countCmd.Val())
	result := &utils.LimitResult{Limit: rl.limit}

	if count >= rl.limit {
		wait := rl.window
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestTime := time.UnixMilli(int64(oldest[0].Score))
			wait = oldestTime.Add(rl.window).Sub(now)
		}
		result.RetryAfter = wait
		result.ResetAfter = wait

		rl.logger.Debug("Rate limit exceeded", "key", key, "retryAfter", wait.String())
		return result, nil
	}

	// Unique members keep requests in the same millisecond apart
	nowMs := now.UnixMilli()
	add := rl.client.TxPipeline()
	add.ZAdd(ctx, key, &redis.Z{Score: float64(nowMs), Member: uuid.NewString()})
	add.PExpire(ctx, key, rl.window*2)
	if _, err := add.Exec(ctx); err != nil {
		rl.logger.Error("Failed to add token to rate limit", err, "key", key)
		return nil, err
	}

	result.Allowed = true
	result.Remaining = rl.limit - count - 1
	result.ResetAfter = rl.window
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		result.ResetAfter = time.UnixMilli(int64(oldest[0].Score)).Add(rl.window).Sub(now)
	}
	return result, nil
}
