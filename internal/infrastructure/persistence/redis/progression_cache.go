package redis

import (
	"context"
	"errors"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/pkg/circuitbreaker"
)

// ProgressionCache implements progression.Cache on top of the generic Cache.
type ProgressionCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewProgressionCache creates a new ProgressionCache. A non-positive ttl
// falls back to TTLProgressionCache.
func NewProgressionCache(cache *Cache, ttl time.Duration) *ProgressionCache {
	if ttl <= 0 {
		ttl = TTLProgressionCache
	}
	return &ProgressionCache{cache: cache, ttl: ttl}
}

// WithBreaker guards reads and writes with cb. While cb is open, Get reports
// a miss and Set is skipped.
func (c *ProgressionCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *ProgressionCache {
	c.breaker = cb
	return c
}

var _ progression.Cache = (*ProgressionCache)(nil)

// Get returns the cached snapshot, or nil on a miss.
func (c *ProgressionCache) Get(ctx context.Context, userID string) (*progression.UserProgression, error) {
	var p *progression.UserProgression
	err := c.guard(ctx, func(ctx context.Context) error {
		var cached progression.UserProgression
		if err := c.cache.Get(ctx, ProgressionKey(userID), &cached); err != nil {
			if errors.Is(err, ErrCacheMiss) {
				return nil
			}
			return err
		}
		p = &cached
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Set stores a snapshot of the progression.
func (c *ProgressionCache) Set(ctx context.Context, p *progression.UserProgression) error {
	if p == nil {
		return nil
	}
	return c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, ProgressionKey(p.UserID), p, c.ttl)
	})
}

// Invalidate drops the cached snapshot. It always reaches Redis, even with
// the breaker open, so a recovered cache never serves a stale snapshot.
func (c *ProgressionCache) Invalidate(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, ProgressionKey(userID))
}

func (c *ProgressionCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.ExecuteWithFallback(ctx, fn, func(error) error { return nil })
}
