package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
)

// ListSkills returns every skill record of a user.
// An unknown user yields an empty slice, not an error.
func (db *DB) ListSkills(ctx context.Context, userID string) ([]model.SkillRecord, error) {
	records, err := listSkills(ctx, db.conn, userID)
	if err != nil {
		return nil, wrap("listing skills", err)
	}
	return records, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listSkills(ctx context.Context, q querier, userID string) ([]model.SkillRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, skill, xp, level FROM progress WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.SkillRecord
	for rows.Next() {
		var r model.SkillRecord
		if err := rows.Scan(&r.UserID, &r.Skill, &r.XP, &r.Level); err != nil {
			return nil, fmt.Errorf("scanning skill: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpdateSkill runs a read-modify-write on one skill record inside a single
// transaction. The connection cap makes the transaction exclusive, so two
// concurrent gains on the same skill are applied one after the other.
func (db *DB) UpdateSkill(ctx context.Context, userID, skill string, fn func(rec *model.SkillRecord) error) (*model.SkillRecord, error) {
	var rec model.SkillRecord

	err := db.withTx(ctx, "update skill", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT user_id, skill, xp, level FROM progress WHERE user_id = ? AND skill = ?`,
			userID, skill,
		).Scan(&rec.UserID, &rec.Skill, &rec.XP, &rec.Level)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("skill", skill)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", skill, err)
		}

		if err := fn(&rec); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE progress SET xp = ?, level = ? WHERE user_id = ? AND skill = ?`,
			rec.XP, rec.Level, userID, skill,
		)
		if err != nil {
			return fmt.Errorf("writing %s: %w", skill, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
