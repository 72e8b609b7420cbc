package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gstinvoice/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyRenderMerchant = "invoice:render:merchant:%s"
	keyRenderLock     = "invoice:render:lock:%s:%s"
)

var (
	ErrNotConfigured = errors.New("rate_limiter_not_configured")
	ErrRateLimited   = errors.New("render_rate_limited")
	ErrRenderBusy    = errors.New("render_in_progress")
)

// RenderLimiter throttles document generation per merchant and keeps one
// generation per document in flight. A nil limiter allows everything.
type RenderLimiter struct {
	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
	log     *zap.Logger
}

type RenderLimiterParams struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

func NewRenderLimiter(p RenderLimiterParams) (*RenderLimiter, error) {
	limitCfg := p.Cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.RenderRate <= 0 || limitCfg.RenderBurst <= 0 {
		return nil, errors.New("render rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})

	return newRenderLimiter(client, limitCfg, p.Log), nil
}

func newRenderLimiter(client *redis.Client, cfg config.RateLimitConfig, log *zap.Logger) *RenderLimiter {
	ttl := time.Duration(cfg.RenderLockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RenderLimiter{
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    cfg.RenderRate,
		burst:   cfg.RenderBurst,
		lockTTL: ttl,
		log:     log.Named("ratelimit.render"),
	}
}

func (l *RenderLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowMerchant takes one render token from the merchant's bucket.
// Redis failures fail open; invoicing must not depend on the limiter.
func (l *RenderLimiter) AllowMerchant(ctx context.Context, merchantID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	res, err := l.bucket.Allow(ctx, renderMerchantKey(merchantID), l.rate, l.burst)
	if err != nil {
		l.log.Warn("render rate limit unavailable", zap.String("merchant_id", merchantID), zap.Error(err))
		return &RateLimitResult{Allowed: true}, nil
	}
	if !res.Allowed {
		return res, ErrRateLimited
	}
	return res, nil
}

// Acquire locks one document for generation. The returned release func is
// always safe to call.
func (l *RenderLimiter) Acquire(ctx context.Context, merchantID, documentRef string) (func(), error) {
	noop := func() {}
	if !l.Enabled() {
		return noop, nil
	}

	key := renderLockKey(merchantID, documentRef)
	lease, err := l.locker.TryLock(ctx, key, l.lockTTL)
	if err != nil {
		l.log.Warn("render lock unavailable", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	if lease == nil {
		return noop, ErrRenderBusy
	}
	return func() {
		// the request context may already be done
		if err := l.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
			l.log.Warn("render lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func renderMerchantKey(merchantID string) string {
	return fmt.Sprintf(keyRenderMerchant, strings.TrimSpace(merchantID))
}

func renderLockKey(merchantID, documentRef string) string {
	return fmt.Sprintf(keyRenderLock, strings.TrimSpace(merchantID), strings.TrimSpace(documentRef))
}
