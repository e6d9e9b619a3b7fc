// Package repository declares the storage contracts. Implementations live in
// the sqlite and postgres subpackages; services depend only on these
// interfaces.
//
// ATOMICITY:
// Every method that changes state runs as one transaction. The callback-style
// methods (UpdateSkill, UpdateSelection) give the caller the current value and
// persist whatever the callback returns, with the row locked in between, so a
// read-compute-write cycle can never lose a concurrent update.
//
// ERRORS:
// Missing rows come back as apperror.ErrNotFound. Transient storage failures
// come back as apperror.ErrUnavailable. Anything else is an internal error.
package repository

import (
	"context"

	"github.com/sakif/skilltree/internal/model"
)

// ResetMarkerKey is the config key holding the last daily-reset date.
const ResetMarkerKey = "last_reset_date"

// NeverReset is the marker value before the first reset ever runs.
const NeverReset = "1970-01-01"

// Provisioning lists the per-user rows created together with a user.
type Provisioning struct {
	Skills     []string
	Challenges []string
}

type UserRepository interface {
	// CreateUser inserts the user together with one skill record (xp 0,
	// level 1) per skill and one uncompleted challenge per challenge name, in
	// a single transaction. Sets user.ID and timestamps. A taken username or
	// GitHub ID yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User, p Provisioning) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// ListUsers returns every user in creation order.
	ListUsers(ctx context.Context) ([]model.User, error)
}

type ProgressRepository interface {
	// ListSkills returns the user's skill records in no particular order.
	ListSkills(ctx context.Context, userID string) ([]model.SkillRecord, error)
	// UpdateSkill locks the (user, skill) record, passes it to fn, and
	// persists the record as fn left it. If fn returns an error nothing is
	// written and the error is returned unchanged.
	UpdateSkill(ctx context.Context, userID, skill string, fn func(rec *model.SkillRecord) error) (*model.SkillRecord, error)
}

type ChallengeRepository interface {
	ListChallenges(ctx context.Context, userID string) ([]model.DailyChallenge, error)
	// CompleteChallenge marks one challenge completed. Completing an already
	// completed challenge is not an error.
	CompleteChallenge(ctx context.Context, userID, challenge string) error
}

type ResetRepository interface {
	// LastResetDate returns the stored marker, NeverReset if it was never set.
	LastResetDate(ctx context.Context) (string, error)
	// ResetIfStale clears every completion flag and sets the marker to today,
	// in one transaction, unless the marker is already today or later. The
	// marker never moves backwards. Reports whether the clear happened.
	// Concurrent callers with the same date see exactly one true.
	ResetIfStale(ctx context.Context, today string) (bool, error)
}

type SelectionRepository interface {
	// GetSelection returns the stored set, empty if none was ever saved.
	GetSelection(ctx context.Context, userID string, kind model.SelectionKind) (model.Selection, error)
	// UpdateSelection locks the user's set, passes it to fn together with the
	// user's skill records read in the same transaction, and stores the
	// result (creating the record on first write, replacing it after). The
	// skill records cannot change until the transaction ends. A user with no
	// skill records yields apperror.ErrNotFound and fn is not called.
	UpdateSelection(ctx context.Context, userID string, kind model.SelectionKind,
		fn func(current model.Selection, skills []model.SkillRecord) (model.Selection, error)) (model.Selection, error)
}

// Store is the full storage surface owned by the server.
type Store interface {
	UserRepository
	ProgressRepository
	ChallengeRepository
	ResetRepository
	SelectionRepository
	Ping(ctx context.Context) error
	Close() error
}
