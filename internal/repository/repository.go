// Package repository stores waitlist leads and admin API keys in PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes the connection pool. Zero fields keep pgxpool defaults.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

// Repository is the Postgres-backed lead store and API key store.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, poolCfg PoolConfig) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolCfg.apply(config)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

func (p PoolConfig) apply(config *pgxpool.Config) {
	if p.MaxConns > 0 {
		config.MaxConns = p.MaxConns
	}
	if p.MinConns > 0 {
		config.MinConns = p.MinConns
	}
	if p.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = p.MaxConnIdleTime
	}
}

// Ping backs the readiness check.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}
