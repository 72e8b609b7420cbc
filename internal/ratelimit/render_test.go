package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/gstinvoice/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestRenderLimiter_DisabledAllowsEverything(t *testing.T) {
	limiter, err := NewRenderLimiter(RenderLimiterParams{
		Lc:  fxtest.NewLifecycle(t),
		Cfg: config.Config{},
		Log: zap.NewNop(),
	})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowMerchant(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	release, err := limiter.Acquire(context.Background(), "m1", "ord_1")
	require.NoError(t, err)
	release()
}

func TestRenderLimiter_RequiresSettingsWhenEnabled(t *testing.T) {
	_, err := NewRenderLimiter(RenderLimiterParams{
		Lc:  fxtest.NewLifecycle(t),
		Cfg: config.Config{RateLimit: config.RateLimitConfig{Enabled: true}},
		Log: zap.NewNop(),
	})
	assert.ErrorContains(t, err, "redis addr")

	_, err = NewRenderLimiter(RenderLimiterParams{
		Lc:  fxtest.NewLifecycle(t),
		Cfg: config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: "localhost:6379"}},
		Log: zap.NewNop(),
	})
	assert.ErrorContains(t, err, "must be positive")
}

func TestRenderKeys(t *testing.T) {
	assert.Equal(t, "invoice:render:merchant:m1", renderMerchantKey(" m1 "))
	assert.Equal(t, "invoice:render:lock:m1:ord_1", renderLockKey("m1", "ord_1"))
}

func TestTokenBucketValidation(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 0))
	assert.Equal(t, 20*time.Second, defaultBucketTTL(1, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Equal(t, 1.5, castToFloat("1.5"))
	assert.Equal(t, 0.0, castToFloat("x"))
	assert.Equal(t, 4.0, castToFloat(int64(4)))
}

func TestParseBucketReply(t *testing.T) {
	res, err := parseBucketReply([]interface{}{int64(1), int64(4), int64(1_700_000_000_000)}, 2, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)

	res, err = parseBucketReply([]interface{}{int64(0), int64(0), int64(1_700_000_000_000)}, 2, 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_700_000_000_500), res.ResetTime)

	_, err = parseBucketReply([]interface{}{int64(1)}, 2, 5)
	assert.Error(t, err)
}

func TestLocker_NotConfigured(t *testing.T) {
	var locker *Locker
	lease, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.Nil(t, lease)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), &Lease{Key: "k", Token: "t"}))
}
