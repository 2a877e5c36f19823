package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/prperemyshlev/donation-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	limiter := service.NewRateLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "203.0.113.7", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "203.0.113.7", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	d, err = limiter.Allow(ctx, "198.51.100.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiter_RedisDown(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)
	limiter := service.NewRateLimiter(rdb)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "203.0.113.7", 3, time.Minute)
	assert.Error(t, err)
}
