package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "lock:reconcile:sweep"

// releaseScript deletes the lock only if it is still held by the caller
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepLock serializes reconciliation sweeps across instances
type SweepLock struct {
	redis *database.Redis
	owner string
}

// NewSweepLock creates a lock identified by owner
func NewSweepLock(redis *database.Redis, owner string) *SweepLock {
	return &SweepLock{redis: redis, owner: owner}
}

// Acquire takes the lock for ttl, reporting false if another owner holds it
func (l *SweepLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.redis.Client.SetNX(ctx, sweepLockKey, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock if this owner still holds it
func (l *SweepLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.redis.Client, []string{sweepLockKey}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to release sweep lock: %w", err)
	}
	return nil
}
