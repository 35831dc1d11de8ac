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

// EphemerisCache implements domain.EphemerisCache. Positions are keyed by
// body and instant:
//
//	ephem:{body}:{RFC3339Nano UTC}
type EphemerisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewEphemerisCache creates an EphemerisCache whose entries expire after ttl.
func NewEphemerisCache(c *Client, ttl time.Duration) *EphemerisCache {
	return &EphemerisCache{rdb: c.rdb, ttl: ttl}
}

func ephemerisKey(body domain.Body, at time.Time) string {
	return "ephem:" + string(body) + ":" + at.UTC().Format(time.RFC3339Nano)
}

// GetPosition returns a cached position or domain.ErrNotFound.
func (ec *EphemerisCache) GetPosition(ctx context.Context, body domain.Body, at time.Time) (domain.EclipticPosition, error) {
	key := ephemerisKey(body, at)
	data, err := ec.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EclipticPosition{}, domain.ErrNotFound
		}
		return domain.EclipticPosition{}, fmt.Errorf("redis: get position %s: %w", key, err)
	}

	var pos domain.EclipticPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return domain.EclipticPosition{}, fmt.Errorf("redis: unmarshal position %s: %w", key, err)
	}
	// Keep the caller's instant so repeated lookups compare equal.
	pos.At = at
	return pos, nil
}

// SetPosition caches pos.
func (ec *EphemerisCache) SetPosition(ctx context.Context, pos domain.EclipticPosition) error {
	key := ephemerisKey(pos.Body, pos.At)
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("redis: marshal position %s: %w", key, err)
	}
	if err := ec.rdb.Set(ctx, key, data, ec.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set position %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.EphemerisCache = (*EphemerisCache)(nil)
