package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
)

// selectionTables maps a kind to its table. Table names cannot be bound as
// parameters, so only these two constants are ever interpolated.
var selectionTables = map[model.SelectionKind]string{
	model.SelectionTitles: "selected_titles",
	model.SelectionBadges: "selected_badges",
}

func selectionTable(kind model.SelectionKind) (string, error) {
	table, ok := selectionTables[kind]
	if !ok {
		return "", fmt.Errorf("sqlite: unknown selection kind %q", kind)
	}
	return table, nil
}

// GetSelection returns the stored selection, or an empty one.
func (db *DB) GetSelection(ctx context.Context, userID string, kind model.SelectionKind) (model.Selection, error) {
	table, err := selectionTable(kind)
	if err != nil {
		return nil, err
	}

	var raw string
	err = db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT names FROM %s WHERE user_id = ?`, table), userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Selection{}, nil
	}
	if err != nil {
		return nil, wrap("reading "+table, err)
	}
	return decodeSelection(raw)
}

// UpdateSelection reads the user's skills and selection, transforms the
// selection and upserts it, all in one transaction.
func (db *DB) UpdateSelection(ctx context.Context, userID string, kind model.SelectionKind,
	fn func(current model.Selection, skills []model.SkillRecord) (model.Selection, error)) (model.Selection, error) {
	table, err := selectionTable(kind)
	if err != nil {
		return nil, err
	}

	var next model.Selection
	err = db.withTx(ctx, "update "+table, func(tx *sql.Tx) error {
		skills, err := listSkills(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("reading skills: %w", err)
		}
		if len(skills) == 0 {
			return apperror.NotFound("user", userID)
		}

		current := model.Selection{}
		var raw string
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT names FROM %s WHERE user_id = ?`, table), userID,
		).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("reading selection: %w", err)
		default:
			if current, err = decodeSelection(raw); err != nil {
				return err
			}
		}

		if next, err = fn(current, skills); err != nil {
			return err
		}

		encoded, err := json.Marshal(next.Dedupe())
		if err != nil {
			return fmt.Errorf("encoding selection: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (user_id, names) VALUES (?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET names = excluded.names`, table),
			userID, string(encoded),
		)
		if err != nil {
			return fmt.Errorf("saving selection: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next.Dedupe(), nil
}

func decodeSelection(raw string) (model.Selection, error) {
	sel := model.Selection{}
	if raw == "" {
		return sel, nil
	}
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return nil, fmt.Errorf("sqlite: decoding selection: %w", err)
	}
	if sel == nil {
		sel = model.Selection{}
	}
	return sel, nil
}
