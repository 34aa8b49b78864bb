// Package ratelimit implements a Redis-backed fixed-window rate limiter
// for the tracking endpoints. Limits are per identity, keeping one noisy
// client from drowning everyone else's events.
//
// The limiter fails open: tracking is best-effort telemetry, and a Redis
// outage must never make the product look broken.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lunary/analytics/internal/pkg/logger"
)

// Limiter counts requests per identity in fixed UTC-aligned windows.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	log    *logger.Logger
	now    func() time.Time
}

// New creates a Limiter allowing limit requests per window per identity.
// A nil client disables limiting entirely (single-instance dev setups).
func New(client *redis.Client, limit int, window time.Duration, log *logger.Logger) *Limiter {
	return &Limiter{client: client, limit: limit, window: window, log: log, now: time.Now}
}

// Allow reports whether the identity may proceed. The counter key embeds
// the window start, so INCR plus a one-shot EXPIRE is race-safe: every
// racing request increments the same bucket and the bucket self-destructs
// after the window passes.
func (l *Limiter) Allow(ctx context.Context, identity string) bool {
	if l.client == nil || l.limit <= 0 {
		return true
	}

	windowStart := l.now().UTC().Truncate(l.window).Unix()
	key := fmt.Sprintf("lunary:ratelimit:%s:%d", identity, windowStart)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("rate limiter unavailable, failing open", "error", err)
		return true
	}
	if count == 1 {
		// Keep expired buckets from accumulating. 2x window covers clock skew.
		l.client.Expire(ctx, key, 2*l.window)
	}
	return count <= int64(l.limit)
}
