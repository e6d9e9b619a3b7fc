package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser_ProvisionsEverything(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "alice")
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("CreateUser() did not fill ID/CreatedAt: %+v", u)
	}

	skills, err := db.ListSkills(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListSkills() error = %v", err)
	}
	if len(skills) != len(testProvisioning.Skills) {
		t.Fatalf("got %d skills, want %d", len(skills), len(testProvisioning.Skills))
	}
	for _, s := range skills {
		if s.XP != 0 || s.Level != 1 {
			t.Errorf("skill %s = xp %d level %d, want 0/1", s.Skill, s.XP, s.Level)
		}
	}

	challenges, err := db.ListChallenges(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListChallenges() error = %v", err)
	}
	if len(challenges) != 2 || challenges[0].Completed || challenges[1].Completed {
		t.Errorf("ListChallenges() = %+v", challenges)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	dup := &model.User{Username: "alice"}
	err := db.CreateUser(context.Background(), dup, testProvisioning)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser(duplicate) error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_FailedProvisioningLeavesNoUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// A repeated skill violates the (user_id, skill) primary key halfway
	// through provisioning; the whole transaction must roll back.
	bad := repository.Provisioning{Skills: []string{"Strength", "Strength"}}
	u := &model.User{Username: "bob"}
	if err := db.CreateUser(ctx, u, bad); err == nil {
		t.Fatal("CreateUser() with duplicate skills should fail")
	}

	if _, err := db.GetUserByUsername(ctx, "bob"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByUsername() after rollback error = %v, want ErrNotFound", err)
	}
	skills, _ := db.ListSkills(ctx, u.ID)
	if len(skills) != 0 {
		t.Errorf("partial skills left behind: %+v", skills)
	}
}

func TestCreateUser_GitHubIDOptional(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Two password users both have GitHubID 0, stored as NULL.
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	gh := &model.User{Username: "octocat", GitHubID: 42}
	if err := db.CreateUser(ctx, gh, testProvisioning); err != nil {
		t.Fatalf("CreateUser(github) error = %v", err)
	}
	got, err := db.GetUserByGitHubID(ctx, 42)
	if err != nil {
		t.Fatalf("GetUserByGitHubID() error = %v", err)
	}
	if got.ID != gh.ID || got.GitHubID != 42 {
		t.Errorf("GetUserByGitHubID() = %+v", got)
	}

	again := &model.User{Username: "octocat2", GitHubID: 42}
	if err := db.CreateUser(ctx, again, testProvisioning); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate github id error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestGetUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice")

	byID, err := db.GetUserByID(ctx, u.ID)
	if err != nil || byID.Username != "alice" || byID.PasswordHash != "hash" {
		t.Errorf("GetUserByID() = %+v, %v", byID, err)
	}
	byName, err := db.GetUserByUsername(ctx, "alice")
	if err != nil || byName.ID != u.ID {
		t.Errorf("GetUserByUsername() = %+v, %v", byName, err)
	}

	if _, err := db.GetUserByID(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByGitHubID(ctx, 7); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByGitHubID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListUsers_CreationOrder(t *testing.T) {
	db := newTestDB(t)
	names := []string{"carol", "alice", "bob"}
	for _, n := range names {
		createTestUser(t, db, n)
	}

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("ListUsers() returned %d users", len(users))
	}
	for i, n := range names {
		if users[i].Username != n {
			t.Errorf("users[%d] = %s, want %s", i, users[i].Username, n)
		}
	}
}
