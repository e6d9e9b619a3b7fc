// Package sqlite implements the repository interfaces on SQLite through the
// pure Go modernc.org/sqlite driver.
//
// ONE CONNECTION:
// The pool is capped at a single connection. SQLite allows one writer at a
// time anyway, and with one connection every transaction is serialized inside
// the process, which is what makes UpdateSkill and ResetIfStale atomic
// without SQLITE_BUSY upgrades. It also keeps a ":memory:" database alive for
// the lifetime of the *DB (each new connection would otherwise get a fresh,
// empty database).
//
// The flip side: code running inside withTx must only use the *sql.Tx it is
// given. Touching db.conn from inside a transaction would wait forever for the
// connection the transaction is holding.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	driver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/skilltree.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// The category of a skill is not a column: it always comes from the catalog.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
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
			completed BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, challenge)
		);

		CREATE TABLE IF NOT EXISTS config (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS selected_titles (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			names   TEXT NOT NULL DEFAULT '[]'
		);

		CREATE TABLE IF NOT EXISTS selected_badges (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			names   TEXT NOT NULL DEFAULT '[]'
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`,
		repository.ResetMarkerKey, repository.NeverReset,
	)
	if err != nil {
		return fmt.Errorf("seeding reset marker: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (db *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op+": begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(op+": commit", err)
	}
	committed = true
	return nil
}

// wrap annotates a driver error. AppErrors pass through untouched; transient
// failures become apperror.Unavailable.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isTransient(err) {
		return apperror.Unavailable("sqlite: "+op, err)
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *driver.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR,
			sqlite3.SQLITE_FULL, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOMEM:
			return true
		}
	}
	// database/sql does not export its "closed" sentinel.
	return strings.Contains(err.Error(), "database is closed")
}

func isUniqueViolation(err error) bool {
	var se *driver.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
