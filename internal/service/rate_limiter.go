package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of one rate limit check
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is a sliding window limiter backed by a Redis sorted set per key
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// Allow records a hit for key unless limit hits already fall inside window
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateDecision, error) {
	now := r.now()
	redisKey := "ratelimit:" + key
	floor := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+floor)
		count = pipe.ZCard(ctx, redisKey)
		oldest = pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read rate window: %w", err)
	}

	decision := &RateDecision{Limit: limit}
	used := int(count.Val())

	if used >= limit {
		decision.RetryAfter = window
		if first := oldest.Val(); len(first) > 0 {
			decision.RetryAfter = time.UnixMilli(int64(first[0].Score)).Add(window).Sub(now)
		}
		return decision, nil
	}

	_, err = r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, redisKey, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: strconv.FormatInt(now.UnixNano(), 10),
		})
		pipe.PExpire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record request: %w", err)
	}

	decision.Allowed = true
	decision.Remaining = limit - used - 1
	return decision, nil
}
