package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/skilltree/internal/repository"
)

// LastResetDate returns the stored reset marker.
func (db *DB) LastResetDate(ctx context.Context) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM config WHERE key = ?`, repository.ResetMarkerKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.NeverReset, nil
	}
	if err != nil {
		return "", wrap("reading reset marker", err)
	}
	return value, nil
}

// ResetIfStale clears all completion flags and advances the marker in one
// transaction. A date at or before the marker is a no-op. If the marker update fails the clear is rolled back with it,
// and the next check simply repeats both.
func (db *DB) ResetIfStale(ctx context.Context, today string) (bool, error) {
	reset := false

	err := db.withTx(ctx, "daily reset", func(tx *sql.Tx) error {
		var last string
		err := tx.QueryRowContext(ctx,
			`SELECT value FROM config WHERE key = ?`, repository.ResetMarkerKey,
		).Scan(&last)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			last = repository.NeverReset
		case err != nil:
			return fmt.Errorf("reading marker: %w", err)
		}

		// Dates are YYYY-MM-DD, so string order is calendar order.
		if last >= today {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE daily SET completed = 0`); err != nil {
			return fmt.Errorf("clearing challenges: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO config (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			repository.ResetMarkerKey, today,
		)
		if err != nil {
			return fmt.Errorf("advancing marker: %w", err)
		}
		reset = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reset, nil
}
