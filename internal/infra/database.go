package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the PostgreSQL pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// NewPostgresPool configures and returns a PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Migration creates or upgrades the tables owned by one package.
type Migration struct {
	Name string
	Run  func(ctx context.Context, db *pgxpool.Pool) error
}

// Migrate applies migrations in order and stops at the first failure.
// Each migration must be safe to run repeatedly.
func Migrate(ctx context.Context, db *pgxpool.Pool, logger *slog.Logger, migrations ...Migration) error {
	for _, m := range migrations {
		start := time.Now()
		if err := m.Run(ctx, db); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		logger.Info("migration applied", slog.String("name", m.Name), slog.Duration("duration", time.Since(start)))
	}
	return nil
}
