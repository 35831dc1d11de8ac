// Package redis keeps the chart service's shared state in Redis so several
// API instances see the same charts, locks and rate-limit windows.
//
// Key layout:
//
//	chart:{cache key}       chart record JSON
//	chart:id:{id}           cache key of a chart record
//	ephem:{body}:{instant}  ephemeris sample JSON
//	lock:{name}             lock token
//	ratelimit:{key}         sliding window (sorted set)
//
// Batch progress is published on batch:progress:{id}; finished batches are
// appended to the batch:events stream.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// clientName tags our connections in CLIENT LIST.
const clientName = "natalchart"

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	// Timeout bounds dialling and every read and write. Zero keeps the
	// go-redis defaults.
	Timeout time.Duration
}

func (cfg ClientConfig) options() *redis.Options {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		ClientName: clientName,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Client is the shared connection pool every adapter in this package is
// built from.
type Client struct {
	rdb *redis.Client
}

// New connects to cfg.Addr and fails fast when the server does not answer.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	rdb := redis.NewClient(cfg.options())
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping is the readiness check reported by /api/health.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the pool. Adapters built from c stop working.
func (c *Client) Close() error {
	return c.rdb.Close()
}
