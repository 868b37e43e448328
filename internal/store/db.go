package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/inocula/internal/config"
)

// Connect opens a pgx pool for a PostgreSQL URL and verifies connectivity.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Open selects a backend from the URL scheme. PostgreSQL URLs are migrated from
// migrationsDir before the pool is opened; sqlite:// URLs carry their own schema.
// The returned func releases the underlying connections.
func Open(ctx context.Context, cfg config.DatabaseConfig, migrationsDir string) (Store, func(), error) {
	if path, ok := strings.CutPrefix(cfg.URL, "sqlite://"); ok {
		s, err := NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	if err := RunMigrations(cfg.URL, migrationsDir); err != nil {
		return nil, nil, err
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewPostgresStore(pool), pool.Close, nil
}
