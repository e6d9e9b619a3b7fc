// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts come from one of two places: username/password registration, or a
// GitHub OAuth login. Either way we generate our own internal string ID (xid)
// and every other record (skills, challenges, selections) hangs off it.
//
// GitHubID 0 means "not linked"; GitHub never issues it. Storage maps 0 to
// NULL so the UNIQUE constraint on github_id ignores password-only users.
//
// PasswordHash is a bcrypt hash and never leaves the server (json:"-").
// GitHub-only users have an empty hash and cannot log in with a password.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"githubId,omitempty" db:"github_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
