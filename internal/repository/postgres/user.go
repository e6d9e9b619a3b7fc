package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/progression"
	"github.com/sakif/skilltree/internal/repository"
)

const userColumns = `id, username, password_hash, github_id, created_at, updated_at`

// CreateUser inserts a user and provisions all per-user rows in one
// transaction. Provisioning rows go out as a single batch.
func (db *DB) CreateUser(ctx context.Context, user *model.User, p repository.Provisioning) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	return db.withTx(ctx, "create user", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			user.ID, user.Username, user.PasswordHash, nullableGitHubID(user.GitHubID),
			user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", user.Username)
			}
			return fmt.Errorf("inserting user %s: %w", user.Username, err)
		}

		batch := &pgx.Batch{}
		for _, skill := range p.Skills {
			batch.Queue(`INSERT INTO progress (user_id, skill, xp, level) VALUES ($1, $2, $3, $4)`,
				user.ID, skill, progression.Initial.XP, progression.Initial.Level)
		}
		for _, challenge := range p.Challenges {
			batch.Queue(`INSERT INTO daily (user_id, challenge, completed) VALUES ($1, $2, FALSE)`,
				user.ID, challenge)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("provisioning user %s: %w", user.Username, err)
		}
		return nil
	})
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, "github id", fmt.Sprint(githubID),
		`SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID)
}

func (db *DB) getUser(ctx context.Context, by, key, query string, arg any) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, wrap("getting user by "+by, err)
	}
	return u, nil
}

// ListUsers returns all users in creation order.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, wrap("listing users", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.User, error) {
		u, err := scanUser(row)
		if err != nil {
			return model.User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return nil, wrap("listing users", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u        model.User
		githubID *int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if githubID != nil {
		u.GitHubID = *githubID
	}
	return &u, nil
}

func nullableGitHubID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
