// Package cache holds rate limits, submission locks and the API key cache,
// in Redis or in process.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PoolConfig sizes the Redis connection pool. Zero fields keep go-redis defaults.
type PoolConfig struct {
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
}

// Cache is the Redis-backed implementation shared by every instance.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, poolCfg PoolConfig) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	poolCfg.apply(opt)

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func (p PoolConfig) apply(opt *redis.Options) {
	if p.PoolSize > 0 {
		opt.PoolSize = p.PoolSize
	}
	if p.MinIdleConns > 0 {
		opt.MinIdleConns = p.MinIdleConns
	}
	if p.PoolTimeout > 0 {
		opt.PoolTimeout = p.PoolTimeout
	}
}

// Ping backs the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the Redis client for the lead event publisher and worker.
func (c *Cache) Client() *redis.Client {
	return c.client
}
