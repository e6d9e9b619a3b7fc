package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/skilltree/internal/repository"
)

func (db *DB) LastResetDate(ctx context.Context) (string, error) {
	var value string
	err := db.pool.QueryRow(ctx,
		`SELECT value FROM config WHERE key = $1`, repository.ResetMarkerKey,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.NeverReset, nil
	}
	if err != nil {
		return "", wrap("reading reset marker", err)
	}
	return value, nil
}

// ResetIfStale locks the marker row, so of several processes racing on the
// same day exactly one clears the flags; the rest find the marker current.
func (db *DB) ResetIfStale(ctx context.Context, today string) (bool, error) {
	reset := false

	err := db.withTx(ctx, "daily reset", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
			repository.ResetMarkerKey, repository.NeverReset,
		)
		if err != nil {
			return fmt.Errorf("seeding marker: %w", err)
		}

		var last string
		err = tx.QueryRow(ctx,
			`SELECT value FROM config WHERE key = $1 FOR UPDATE`, repository.ResetMarkerKey,
		).Scan(&last)
		if err != nil {
			return fmt.Errorf("locking marker: %w", err)
		}
		// Dates are YYYY-MM-DD, so string order is calendar order.
		if last >= today {
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE daily SET completed = FALSE WHERE completed`); err != nil {
			return fmt.Errorf("clearing challenges: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE config SET value = $1 WHERE key = $2`, today, repository.ResetMarkerKey,
		); err != nil {
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
