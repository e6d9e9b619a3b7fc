package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
)

func (db *DB) ListSkills(ctx context.Context, userID string) ([]model.SkillRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id, skill, xp, level FROM progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, wrap("listing skills", err)
	}
	records, err := pgx.CollectRows(rows, scanSkill)
	if err != nil {
		return nil, wrap("listing skills", err)
	}
	return records, nil
}

func scanSkill(row pgx.CollectableRow) (model.SkillRecord, error) {
	var r model.SkillRecord
	err := row.Scan(&r.UserID, &r.Skill, &r.XP, &r.Level)
	return r, err
}

// UpdateSkill locks the record with FOR UPDATE for the duration of fn.
func (db *DB) UpdateSkill(ctx context.Context, userID, skill string, fn func(rec *model.SkillRecord) error) (*model.SkillRecord, error) {
	var rec model.SkillRecord

	err := db.withTx(ctx, "update skill", func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT user_id, skill, xp, level FROM progress
			 WHERE user_id = $1 AND skill = $2 FOR UPDATE`,
			userID, skill,
		).Scan(&rec.UserID, &rec.Skill, &rec.XP, &rec.Level)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("skill", skill)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", skill, err)
		}

		if err := fn(&rec); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE progress SET xp = $1, level = $2 WHERE user_id = $3 AND skill = $4`,
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
