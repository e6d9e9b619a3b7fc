// Package postgres implements the repository interfaces on PostgreSQL via
// pgx's connection pool. It is selected with database.driver = "postgres" or
// by setting DATABASE_URL.
//
// LOCKING:
// Unlike the SQLite store, many transactions run at once here. Read-modify-write
// methods take row locks with SELECT ... FOR UPDATE, so concurrent updates of
// the same skill, selection or reset marker queue behind each other while
// different users proceed in parallel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/repository"
)

var _ repository.Store = (*DB)(nil)

const connectTimeout = 5 * time.Second

// DB wraps a pgx pool and implements repository.Store.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to url, sizes the pool and runs migrations.
func New(ctx context.Context, url string, poolSize int) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	}
	cfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     BIGINT UNIQUE,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS progress (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			skill   TEXT NOT NULL,
			xp      INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
			level   INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
			PRIMARY KEY (user_id, skill)
		);

		CREATE TABLE IF NOT EXISTS daily (
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			challenge TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (user_id, challenge)
		);

		CREATE TABLE IF NOT EXISTS config (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS selected_titles (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			names   JSONB NOT NULL DEFAULT '[]'
		);

		CREATE TABLE IF NOT EXISTS selected_badges (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			names   JSONB NOT NULL DEFAULT '[]'
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		repository.ResetMarkerKey, repository.NeverReset,
	)
	if err != nil {
		return fmt.Errorf("seeding reset marker: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction and maps errors through wrap.
func (db *DB) withTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	if err := pgx.BeginFunc(ctx, db.pool, fn); err != nil {
		return wrap(op, err)
	}
	return nil
}

// wrap annotates a pgx error. AppErrors pass through; transient failures
// become apperror.Unavailable.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isTransient(err) {
		return apperror.Unavailable("postgres: "+op, err)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

func isTransient(err error) bool {
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			strings.HasPrefix(pgErr.Code, "53"), // insufficient resources
			pgErr.Code == "40001",               // serialization failure
			pgErr.Code == "40P01",               // deadlock detected
			pgErr.Code == "57P01":               // admin shutdown
			return true
		}
		return false
	}
	return strings.Contains(err.Error(), "closed pool")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
