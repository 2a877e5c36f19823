package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/donation-service/pkg/database"
)

// OTPThrottle limits how often recovery messages are sent to one address
type OTPThrottle interface {
	Allow(ctx context.Context, key string) error
}

type redisOTPThrottle struct {
	redis       *database.Redis
	cooldown    time.Duration
	window      time.Duration
	maxInWindow int
}

// NewOTPThrottle creates a Redis backed throttle with a per-request cooldown and a window cap
func NewOTPThrottle(redis *database.Redis, cooldown, window time.Duration, maxInWindow int) OTPThrottle {
	return &redisOTPThrottle{
		redis:       redis,
		cooldown:    cooldown,
		window:      window,
		maxInWindow: maxInWindow,
	}
}

// Allow returns an error wrapping ErrTooManyRequests when key is throttled
func (t *redisOTPThrottle) Allow(ctx context.Context, key string) error {
	lastKey := fmt.Sprintf("otp:last:%s", key)
	countKey := fmt.Sprintf("otp:count:%s", key)

	// Claim the cooldown slot atomically so concurrent requests cannot all pass
	acquired, err := t.redis.Client.SetNX(ctx, lastKey, "1", t.cooldown).Result()
	if err != nil {
		return fmt.Errorf("failed to set otp cooldown: %w", err)
	}
	if !acquired {
		ttl, err := t.redis.Client.TTL(ctx, lastKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check otp cooldown: %w", err)
		}
		return fmt.Errorf("please wait %d seconds before requesting another code: %w", int(ttl.Round(time.Second).Seconds()), ErrTooManyRequests)
	}

	// Increment count within window
	count, err := t.redis.Client.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("failed to count otp requests: %w", err)
	}
	if count == 1 {
		if err := t.redis.Client.Expire(ctx, countKey, t.window).Err(); err != nil {
			return fmt.Errorf("failed to set otp window: %w", err)
		}
	}

	if count > int64(t.maxInWindow) {
		return fmt.Errorf("too many code requests, try again later: %w", ErrTooManyRequests)
	}

	return nil
}
