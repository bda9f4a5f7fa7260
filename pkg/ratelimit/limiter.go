// Package ratelimit implements fixed-window request limits stored in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/claims-fraud/pkg/config"
)

// Rule is the number of requests allowed per window
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one Allow call
type Result struct {
	Allowed     bool
	Remaining   int
	RetryAfter  time.Duration
	EndpointKey string
	IdentityKey string
}

// Limiter counts requests per endpoint and identity in Redis
type Limiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	now    func() time.Time
}

// NewLimiter creates a limiter on client
func NewLimiter(client *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{client: client, cfg: cfg, now: time.Now}
}

// WithNow overrides the clock
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow counts one request of identity against endpoint. A disabled limiter or
// a non-positive rule limit always allows.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string, rule Rule) (Result, error) {
	result := Result{Allowed: true, Remaining: rule.Limit, EndpointKey: endpoint, IdentityKey: identity}
	if !l.cfg.Enabled || rule.Limit <= 0 || rule.Window <= 0 {
		return result, nil
	}

	now := l.now()
	windowStart := now.Truncate(rule.Window)
	key := l.key(endpoint, identity, windowStart)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return result, fmt.Errorf("rate limit incr %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			return result, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	}

	result.Remaining = rule.Limit - int(count)
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if int(count) > rule.Limit {
		result.Allowed = false
		result.RetryAfter = windowStart.Add(rule.Window).Sub(now)
	}
	return result, nil
}

func (l *Limiter) key(endpoint, identity string, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", l.cfg.RedisPrefix, endpoint, identity, windowStart.Unix())
}
