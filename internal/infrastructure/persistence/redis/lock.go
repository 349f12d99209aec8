package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/studypet/studypet-hub/internal/domain/shared"
	"github.com/studypet/studypet-hub/pkg/retry"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockConfig configures the per-user lock.
type LockConfig struct {
	// TTL bounds how long a crashed holder can block other writers.
	TTL time.Duration

	// Wait is how long Lock polls a busy lock before giving up.
	Wait time.Duration

	// RetryInterval is the delay between polls.
	RetryInterval time.Duration
}

// DefaultLockConfig returns the default lock timings.
func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL:           TTLUserLock,
		Wait:          2 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// Locker serializes writers of one user's progression across processes.
type Locker struct {
	client  *redis.Client
	ttl     time.Duration
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewLocker creates a Locker backed by the cache's client.
func NewLocker(cache *Cache, cfg LockConfig, logger *slog.Logger) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = TTLUserLock
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Locker{
		client: cache.Client(),
		ttl:    cfg.TTL,
		retrier: retry.LockRetrier(cfg.Wait, cfg.RetryInterval),
		logger: logger.With("component", "redis_locker"),
	}
}

// Lock acquires the lock for userID and returns its release function.
// It returns shared.ErrLockNotAcquired when the lock stays busy for the whole wait.
func (l *Locker) Lock(ctx context.Context, userID string) (func(), error) {
	key := LockKey("user:" + userID)
	token := uuid.NewString()

	err := l.retrier.Do(ctx, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return retry.Retryable(shared.ErrLockNotAcquired)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", "user_id", userID, "error", err)
		}
	}
	return release, nil
}
