package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
)

// ListChallenges returns a user's daily challenges ordered by name.
func (db *DB) ListChallenges(ctx context.Context, userID string) ([]model.DailyChallenge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT challenge, completed FROM daily WHERE user_id = ? ORDER BY challenge`, userID)
	if err != nil {
		return nil, wrap("listing challenges", err)
	}
	defer rows.Close()

	var out []model.DailyChallenge
	for rows.Next() {
		var c model.DailyChallenge
		if err := rows.Scan(&c.Name, &c.Completed); err != nil {
			return nil, wrap("scanning challenge", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterating challenges", err)
	}
	return out, nil
}

// CompleteChallenge sets the completed flag of one challenge.
func (db *DB) CompleteChallenge(ctx context.Context, userID, challenge string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE daily SET completed = 1 WHERE user_id = ? AND challenge = ?`, userID, challenge)
	if err != nil {
		return wrap("completing challenge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("completing challenge", fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return apperror.NotFound("challenge", challenge)
	}
	return nil
}
