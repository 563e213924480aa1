package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "dashboard:ALL:free", DashboardCacheKey("", false))
	assert.Equal(t, "dashboard:TOR:premium", DashboardCacheKey("tor", true))
	assert.Equal(t, "player:8479318", PlayerCacheKey("8479318"))
	assert.Equal(t, "performance:30", PerformanceCacheKey(30))
}

func TestInvalidatePicks(t *testing.T) {
	cache := newMemoryCache()
	ctx := context.Background()
	for _, key := range []string{DashboardCacheKey("", true), PlayerCacheKey("1"), PerformanceCacheKey(7), "nhl:standings/now"} {
		assert.NoError(t, cache.Set(ctx, key, 1, time.Minute))
	}

	InvalidatePicks(ctx, cache, quietLogger())

	assert.False(t, cache.has(DashboardCacheKey("", true)))
	assert.False(t, cache.has(PlayerCacheKey("1")))
	assert.False(t, cache.has(PerformanceCacheKey(7)))
	assert.True(t, cache.has("nhl:standings/now"))

	// a nil cache is a no-op
	InvalidatePicks(ctx, nil, quietLogger())
}

func TestCacheServiceUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	svc := NewCacheService(client)
	ctx := context.Background()

	var dest string
	err := svc.Get(ctx, "missing", &dest)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, svc.Set(ctx, "key", "value", time.Minute))
	assert.Error(t, svc.Ping(ctx))
	assert.NoError(t, svc.Delete(ctx))
	assert.Error(t, svc.Set(ctx, "bad", func() {}, time.Minute))
}
