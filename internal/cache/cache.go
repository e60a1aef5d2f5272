// Package cache is a Redis cache-aside layer for spot lookups. All
// operations degrade to no-ops when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"backend-spotfinder/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const SpotTTL = 5 * time.Minute

type Cache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// GetSpot returns the cached JSON for a spot, or nil on a miss.
func (c *Cache) GetSpot(ctx context.Context, spotID string) ([]byte, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, spotKey(spotID)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	metrics.CacheHits.Inc()
	return data, nil
}

// SetSpot stores a spot response.
func (c *Cache) SetSpot(ctx context.Context, spotID string, v any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, spotKey(spotID), b, SpotTTL).Err()
}

// Invalidate drops cached entries after a mutation.
func (c *Cache) Invalidate(ctx context.Context, spotIDs ...string) error {
	if c == nil || c.rdb == nil || len(spotIDs) == 0 {
		return nil
	}
	keys := make([]string, len(spotIDs))
	for i, id := range spotIDs {
		keys[i] = spotKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func spotKey(spotID string) string {
	return "spot:" + spotID
}
