package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/progression"
	"github.com/sakif/skilltree/internal/repository"
)

const userColumns = `id, username, password_hash, github_id, created_at, updated_at`

// CreateUser inserts a user and provisions all per-user rows in one
// transaction, so a user can never exist with a partial skill set.
func (db *DB) CreateUser(ctx context.Context, user *model.User, p repository.Provisioning) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	return db.withTx(ctx, "create user", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			user.ID, user.Username, user.PasswordHash, nullableGitHubID(user.GitHubID),
			user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", user.Username)
			}
			return fmt.Errorf("inserting user %s: %w", user.Username, err)
		}

		for _, skill := range p.Skills {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO progress (user_id, skill, xp, level) VALUES (?, ?, ?, ?)`,
				user.ID, skill, progression.Initial.XP, progression.Initial.Level,
			)
			if err != nil {
				return fmt.Errorf("provisioning skill %s: %w", skill, err)
			}
		}

		for _, challenge := range p.Challenges {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO daily (user_id, challenge, completed) VALUES (?, ?, 0)`,
				user.ID, challenge,
			)
			if err != nil {
				return fmt.Errorf("provisioning challenge %s: %w", challenge, err)
			}
		}
		return nil
	})
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by exact username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetUserByGitHubID retrieves the user linked to a GitHub account.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, "github id", fmt.Sprint(githubID),
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
}

func (db *DB) getUser(ctx context.Context, by, key, query string, arg any) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, wrap("getting user by "+by, err)
	}
	return u, nil
}

// ListUsers returns all users in creation order.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, rowid`)
	if err != nil {
		return nil, wrap("listing users", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("scanning user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterating users", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
