package domain

import (
	"context"
	"time"
)

// ChartCache holds computed charts keyed by the request fingerprint, with a
// secondary index by record ID.
type ChartCache interface {
	Set(ctx context.Context, rec ChartRecord) error
	Get(ctx context.Context, key string) (ChartRecord, error)
	GetByID(ctx context.Context, id string) (ChartRecord, error)
	Invalidate(ctx context.Context, key string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
