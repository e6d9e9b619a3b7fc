package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

var testProvisioning = repository.Provisioning{
	Skills:     []string{"Strength", "Logic", "Vitality", "Planning"},
	Challenges: []string{"Gym", "Reading"},
}

// newTestDB returns an in-memory database closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates and provisions a user, failing the test on error.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), u, testProvisioning); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", username, err)
	}
	return u
}

func TestNew_SeedsResetMarker(t *testing.T) {
	db := newTestDB(t)

	got, err := db.LastResetDate(context.Background())
	if err != nil {
		t.Fatalf("LastResetDate() error = %v", err)
	}
	if got != repository.NeverReset {
		t.Errorf("LastResetDate() = %q, want %q", got, repository.NeverReset)
	}
}

func TestPing_ClosedDatabaseIsUnavailable(t *testing.T) {
	db, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	if err := db.Ping(context.Background()); !errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("Ping() on closed db error = %v, want ErrUnavailable", err)
	}
}
