package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
)

var selectionTables = map[model.SelectionKind]string{
	model.SelectionTitles: "selected_titles",
	model.SelectionBadges: "selected_badges",
}

func selectionTable(kind model.SelectionKind) (string, error) {
	table, ok := selectionTables[kind]
	if !ok {
		return "", fmt.Errorf("postgres: unknown selection kind %q", kind)
	}
	return table, nil
}

// GetSelection returns the stored selection, or an empty one. pgx decodes the
// JSONB array straight into the slice.
func (db *DB) GetSelection(ctx context.Context, userID string, kind model.SelectionKind) (model.Selection, error) {
	table, err := selectionTable(kind)
	if err != nil {
		return nil, err
	}

	sel := model.Selection{}
	err = db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT names FROM %s WHERE user_id = $1`, table), userID,
	).Scan(&sel)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Selection{}, nil
	}
	if err != nil {
		return nil, wrap("reading "+table, err)
	}
	if sel == nil {
		sel = model.Selection{}
	}
	return sel, nil
}

// UpdateSelection share-locks the user's skill records, creates the selection
// row if missing, locks it, applies fn and writes the result back. A
// concurrent UpdateSkill on the same user waits until fn's decision is
// committed.
func (db *DB) UpdateSelection(ctx context.Context, userID string, kind model.SelectionKind,
	fn func(current model.Selection, skills []model.SkillRecord) (model.Selection, error)) (model.Selection, error) {
	table, err := selectionTable(kind)
	if err != nil {
		return nil, err
	}

	var next model.Selection
	err = db.withTx(ctx, "update "+table, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT user_id, skill, xp, level FROM progress WHERE user_id = $1 FOR SHARE`, userID)
		if err != nil {
			return fmt.Errorf("locking skills: %w", err)
		}
		skills, err := pgx.CollectRows(rows, scanSkill)
		if err != nil {
			return fmt.Errorf("locking skills: %w", err)
		}
		if len(skills) == 0 {
			return apperror.NotFound("user", userID)
		}

		_, err = tx.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, table),
			userID,
		)
		if err != nil {
			return fmt.Errorf("creating selection: %w", err)
		}

		current := model.Selection{}
		err = tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT names FROM %s WHERE user_id = $1 FOR UPDATE`, table), userID,
		).Scan(&current)
		if err != nil {
			return fmt.Errorf("locking selection: %w", err)
		}
		if current == nil {
			current = model.Selection{}
		}

		if next, err = fn(current, skills); err != nil {
			return err
		}
		next = next.Dedupe()

		_, err = tx.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET names = $1 WHERE user_id = $2`, table),
			[]string(next), userID,
		)
		if err != nil {
			return fmt.Errorf("saving selection: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}
