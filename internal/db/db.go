// Package db opens the relay's backing database and applies its schema.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"

	"github.com/garrettladley/imisrelay/internal/migrations"
	pgmigrations "github.com/garrettladley/imisrelay/internal/migrations/postgres"
	"github.com/garrettladley/imisrelay/internal/storage"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type Config struct {
	Driver Driver `env:"DRIVER" envDefault:"sqlite"`
	Path   string `env:"PATH" envDefault:"notifications.db"`
	URL    string `env:"URL"`
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("sqlite driver requires DATABASE_PATH")
		}
	case DriverPostgres:
		if c.URL == "" {
			return errors.New("postgres driver requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	return nil
}

// Open connects to the configured database, applies pending migrations and
// returns the matching store.
func Open(ctx context.Context, cfg Config) (storage.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverPostgres:
		pool, err := OpenPostgres(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return storage.NewPostgresStore(pool), nil
	default:
		sqlDB, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLiteStore(sqlDB), nil
	}
}

// Reset drops and recreates every relay table.
func Reset(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch cfg.Driver {
	case DriverPostgres:
		pool, err := connectPostgres(ctx, cfg.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		return pgmigrations.Reset(ctx, pool)
	default:
		sqlDB, err := connectSQLite(ctx, cfg.Path)
		if err != nil {
			return err
		}
		defer func() { _ = sqlDB.Close() }()
		return migrations.Reset(ctx, sqlDB)
	}
}

func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	sqlDB, err := connectSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Apply(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return sqlDB, nil
}

func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := connectPostgres(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := pgmigrations.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return pool, nil
}

func connectSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return sqlDB, nil
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
