package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
)

func (db *DB) ListChallenges(ctx context.Context, userID string) ([]model.DailyChallenge, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT challenge, completed FROM daily WHERE user_id = $1 ORDER BY challenge`, userID)
	if err != nil {
		return nil, wrap("listing challenges", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DailyChallenge, error) {
		var c model.DailyChallenge
		err := row.Scan(&c.Name, &c.Completed)
		return c, err
	})
	if err != nil {
		return nil, wrap("listing challenges", err)
	}
	return out, nil
}

func (db *DB) CompleteChallenge(ctx context.Context, userID, challenge string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE daily SET completed = TRUE WHERE user_id = $1 AND challenge = $2`, userID, challenge)
	if err != nil {
		return wrap("completing challenge", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("challenge", challenge)
	}
	return nil
}
