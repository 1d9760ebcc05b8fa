// Package lock serializes mutations of one sale across service replicas
// using Redis locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"

	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

const (
	DefaultTTL     = 10 * time.Second
	DefaultRetries = 20
	DefaultBackoff = 50 * time.Millisecond
)

// Config tunes lock acquisition.
type Config struct {
	TTL     time.Duration
	Retries int
	Backoff time.Duration
}

// RedisLocker hands out redislock locks.
type RedisLocker struct {
	client *redislock.Client
	cfg    Config
	logger *slog.Logger
}

// NewRedisLocker creates a locker on top of a Redis client. Zero config
// fields take the package defaults.
func NewRedisLocker(client redislock.RedisClient, cfg Config, logger *slog.Logger) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &RedisLocker{client: redislock.New(client), cfg: cfg, logger: logger}
}

// SaleKey is the lock key guarding one sale.
func SaleKey(saleID string) string {
	return "lock:sale:" + saleID
}

// Acquire obtains key, retrying with a linear backoff. When the lock stays
// held by someone else it returns a Conflict error. The returned release
// function is safe to call once the caller's context is gone.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lk, err := l.client.Obtain(ctx, key, l.cfg.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.cfg.Backoff), l.cfg.Retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperrors.Conflict("resource is being modified by another request, retry later")
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := lk.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.WarnContext(ctx, "failed to release lock",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return release, nil
}
