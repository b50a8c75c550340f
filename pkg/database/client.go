// Package database manages the PostgreSQL connection pool and schema
// migrations. All coordination between pipeline workers happens through
// this database, never through in-process queues.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps the pgx connection pool shared by every store.
type Client struct {
	pool       *pgxpool.Pool
	connString string
	logger     *slog.Logger
}

// NewClient creates a connection pool, verifies connectivity, and returns
// a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger := slog.Default().With("component", "database")
	logger.Info("Database connection established",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns)

	return &Client{pool: pool, connString: cfg.DatabaseURL, logger: logger}, nil
}

// Pool exposes the underlying pgx pool for the stores.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// ConnString returns the DSN the pool was built from, for components that
// need a dedicated connection outside the pool (the NOTIFY listener).
func (c *Client) ConnString() string {
	return c.connString
}

// Close shuts the pool down, waiting for acquired connections to be
// released.
func (c *Client) Close() {
	c.logger.Info("Closing database connection pool")
	c.pool.Close()
}
