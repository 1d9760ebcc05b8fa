// Package cache keeps computed sales analytics in Redis. Entries are keyed by
// a per-farm version number; bumping the version invalidates every entry of
// the farm at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = time.Minute

// AnalyticsCache is a versioned JSON cache with stampede protection.
type AnalyticsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewAnalyticsCache creates the cache. A nil client turns it into a
// pass-through that always calls the loader.
func NewAnalyticsCache(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *AnalyticsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AnalyticsCache{client: client, ttl: ttl, logger: logger}
}

func versionKey(farmID string) string {
	return "analytics:farm:" + farmID + ":version"
}

// Version returns the farm's cache version. A farm that was never
// invalidated is at version 0.
func (c *AnalyticsCache) Version(ctx context.Context, farmID string) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(farmID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey joins parts under the farm's namespace and appends its version.
func (c *AnalyticsCache) BuildKey(ctx context.Context, farmID string, parts ...string) (string, error) {
	ver, err := c.Version(ctx, farmID)
	if err != nil {
		return "", err
	}
	segments := append([]string{"analytics", "farm", farmID}, parts...)
	return fmt.Sprintf("%s:%d", strings.Join(segments, ":"), ver), nil
}

// Fetch decodes the cached value for (farmID, parts) into dest, computing it
// with load on a miss. Concurrent misses for the same key share one load.
// Redis failures degrade to calling load directly.
func (c *AnalyticsCache) Fetch(ctx context.Context, farmID string, parts []string, dest any, load func(context.Context) (any, error)) error {
	if load == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, load)
	}

	key, err := c.BuildKey(ctx, farmID, parts...)
	if err != nil {
		c.warn(ctx, "read cache version", err)
		return loadInto(ctx, dest, load)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		c.warn(ctx, "read cache entry", err)
	}

	// A shared load outlives any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	resultCh := c.group.DoChan(key, func() (any, error) {
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			c.warn(loadCtx, "write cache entry", err)
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Invalidate bumps the farm's version so later reads miss.
func (c *AnalyticsCache) Invalidate(ctx context.Context, farmID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, versionKey(farmID)).Err(); err != nil {
		return fmt.Errorf("bump analytics version for farm %s: %w", farmID, err)
	}
	return nil
}

func (c *AnalyticsCache) warn(ctx context.Context, op string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, "analytics cache degraded",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

func loadInto(ctx context.Context, dest any, load func(context.Context) (any, error)) error {
	value, err := load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
