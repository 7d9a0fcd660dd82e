package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsCache stores statistics responses per tenant. Entries are keyed by
// the tenant's current version, so bumping the version orphans every
// cached entry of that tenant at once; orphans expire on their TTL.
type StatsCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = TTLStatsCache
	}
	return &StatsCache{Redis: rdb, TTL: ttl}
}

func (c *StatsCache) version(ctx context.Context, tenantID string) (int64, error) {
	v, err := c.Redis.Get(ctx, fmt.Sprintf(KeyStatsVersion, tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get decodes the cached value into out. ok is false on a miss. ver is the
// tenant version the lookup ran under; pass it to Set so a value computed
// before a concurrent Invalidate lands under the orphaned version.
func (c *StatsCache) Get(ctx context.Context, tenantID, kind, params string, out any) (ver int64, ok bool, err error) {
	ver, err = c.version(ctx, tenantID)
	if err != nil {
		return 0, false, err
	}
	b, err := c.Redis.Get(ctx, fmt.Sprintf(KeyStatsEntry, tenantID, ver, kind, params)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ver, false, nil
	}
	if err != nil {
		return ver, false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return ver, false, err
	}
	return ver, true, nil
}

func (c *StatsCache) Set(ctx context.Context, tenantID string, ver int64, kind, params string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, fmt.Sprintf(KeyStatsEntry, tenantID, ver, kind, params), b, c.TTL).Err()
}

// Invalidate bumps the tenant's version.
func (c *StatsCache) Invalidate(ctx context.Context, tenantID string) error {
	return c.Redis.Incr(ctx, fmt.Sprintf(KeyStatsVersion, tenantID)).Err()
}
