// Package cache provides an explicit, invalidatable TTL cache backed by
// Redis. It replaces the module-level in-process cache pattern spec §9's
// design notes flag as a concurrency hazard: every entry is namespaced by
// prefix, carries its own TTL, and offers an explicit Invalidate instead of
// living forever in process memory.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLCache stores JSON-encoded values under a namespaced key prefix, the
// same rc.Get/rc.Set-with-TTL shape the teacher's campaign_flow.go uses for
// its audience-spec cache, generalized into a reusable component instead of
// a one-off inline helper.
type TTLCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a TTLCache namespaced under prefix, defaulting every Set to
// ttl unless overridden via SetWithTTL.
func New(rc *redis.Client, prefix string, ttl time.Duration) *TTLCache {
	return &TTLCache{rc: rc, prefix: prefix, ttl: ttl}
}

func (c *TTLCache) key(k string) string {
	return c.prefix + ":" + k
}

// Get looks up key and decodes it into dest. Returns ok=false on a cache
// miss or decode failure; callers fall through to the authoritative source
// on either, since this cache is never the source of truth.
func (c *TTLCache) Get(ctx context.Context, key string, dest any) (ok bool) {
	raw, err := c.rc.Get(ctx, c.key(key)).Bytes()
	if err != nil || len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// Set stores value under key with the cache's default TTL.
func (c *TTLCache) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *TTLCache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, c.key(key), raw, ttl).Err()
}

// Invalidate removes key from the cache, used whenever the underlying data
// mutates (token revocation, a budget-changing write).
func (c *TTLCache) Invalidate(ctx context.Context, key string) error {
	return c.rc.Del(ctx, c.key(key)).Err()
}
