package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ChartCache implements domain.ChartCache with JSON string values.
//
// Key schema:
//
//	chart:{cacheKey} - JSON ChartRecord
//	chart:id:{id}    - cacheKey of the record
type ChartCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewChartCache creates a ChartCache whose entries expire after ttl.
func NewChartCache(c *Client, ttl time.Duration) *ChartCache {
	return &ChartCache{rdb: c.rdb, ttl: ttl}
}

func chartKey(key string) string  { return "chart:" + key }
func chartIDKey(id string) string { return "chart:id:" + id }

// Set stores rec under its cache key and indexes it by ID.
func (cc *ChartCache) Set(ctx context.Context, rec domain.ChartRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal chart %s: %w", rec.ID, err)
	}

	pipe := cc.rdb.TxPipeline()
	pipe.Set(ctx, chartKey(rec.CacheKey), data, cc.ttl)
	if rec.ID != "" {
		pipe.Set(ctx, chartIDKey(rec.ID), rec.CacheKey, cc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set chart %s: %w", rec.CacheKey, err)
	}
	return nil
}

// Get returns the record cached under key, or domain.ErrNotFound.
func (cc *ChartCache) Get(ctx context.Context, key string) (domain.ChartRecord, error) {
	data, err := cc.rdb.Get(ctx, chartKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ChartRecord{}, domain.ErrNotFound
		}
		return domain.ChartRecord{}, fmt.Errorf("redis: get chart %s: %w", key, err)
	}

	var rec domain.ChartRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.ChartRecord{}, fmt.Errorf("redis: unmarshal chart %s: %w", key, err)
	}
	return rec, nil
}

// GetByID resolves the ID index and returns the record.
func (cc *ChartCache) GetByID(ctx context.Context, id string) (domain.ChartRecord, error) {
	key, err := cc.rdb.Get(ctx, chartIDKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ChartRecord{}, domain.ErrNotFound
		}
		return domain.ChartRecord{}, fmt.Errorf("redis: get chart id %s: %w", id, err)
	}
	return cc.Get(ctx, key)
}

// Invalidate removes the record cached under key. The ID index entry is left
// to expire; a dangling index resolves to domain.ErrNotFound.
func (cc *ChartCache) Invalidate(ctx context.Context, key string) error {
	if err := cc.rdb.Del(ctx, chartKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate chart %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ChartCache = (*ChartCache)(nil)
