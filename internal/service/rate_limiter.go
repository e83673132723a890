package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gatehouse/gatehouse/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a sliding-window request limiter backed by Redis. It guards
// the credential endpoints at the transport boundary; account-level cool-downs
// (e.g. confirmation resend) live in the lifecycle services instead.
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow records one request under key and reports whether it fits inside the
// window. A Redis outage fails open so the identity service keeps answering.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key

	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(now.Add(-window).Unix(), 10)).Err(); err != nil {
		return true, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	if count >= int64(limit) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.Unix()),
		Member: member,
	}).Err(); err != nil {
		return true, fmt.Errorf("failed to record request: %w", err)
	}

	// Expiry keeps idle keys from accumulating.
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	return true, nil
}
