package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
	"github.com/sakif/skilltree/internal/repository/sqlite"
)

// countingUsers counts username lookups that reach storage.
type countingUsers struct {
	repository.UserRepository
	byUsername int
}

func (c *countingUsers) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	c.byUsername++
	return c.UserRepository.GetUserByUsername(ctx, username)
}

type profileFixture struct {
	profiles *ProfileService
	progress *ProgressService
	unlocks  *UnlockService
	users    *countingUsers
	db       *sqlite.DB
}

func newProfileFixture(t *testing.T) profileFixture {
	t.Helper()
	c := newTestCatalog(t)
	db := newTestStore(t)
	users := &countingUsers{UserRepository: db}
	progress := NewProgressService(db, c, newTestLogger())
	challenges := NewChallengeService(db, c, newTestLogger())
	unlocks := NewUnlockService(db, db, c, true, newTestLogger())

	profiles, err := NewProfileService(users, progress, challenges, unlocks, 16, newTestLogger())
	require.NoError(t, err)
	return profileFixture{profiles: profiles, progress: progress, unlocks: unlocks, users: users, db: db}
}

func TestDashboard(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()
	userID := newTestUser(t, f.db, newTestCatalog(t), "alice")

	_, err := f.progress.GainXP(ctx, userID, "Discipline", 300)
	require.NoError(t, err)
	_, err = f.unlocks.ToggleTitle(ctx, userID, "Early Riser", model.ActionAdd)
	require.NoError(t, err)
	_, err = f.unlocks.ToggleBadge(ctx, userID, "Streak Keeper", model.ActionAdd)
	require.NoError(t, err)

	d, err := f.profiles.Dashboard(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", d.Username)
	assert.Len(t, d.Stats, 16)
	assert.Len(t, d.Challenges, 4)
	assert.Equal(t, []model.SelectedTitle{{Name: "Early Riser", Skill: "Discipline", Level: 2}}, d.SelectedTitles)
	require.Len(t, d.SelectedBadges, 1)
	assert.Equal(t, "Streak Keeper", d.SelectedBadges[0].Name)
}

func TestDashboard_UnknownUser(t *testing.T) {
	f := newProfileFixture(t)

	_, err := f.profiles.Dashboard(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPublicProfile(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()
	userID := newTestUser(t, f.db, newTestCatalog(t), "alice")

	_, err := f.progress.GainXP(ctx, userID, "Creativity", 1000)
	require.NoError(t, err)
	_, err = f.unlocks.ToggleTitle(ctx, userID, "Artisan", model.ActionAdd)
	require.NoError(t, err)

	p, err := f.profiles.PublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Len(t, p.UnlockedTitles["Creativity"], 2)
	require.Len(t, p.SelectedTitles, 1)
	assert.Equal(t, "Artisan", p.SelectedTitles[0].Name)
	assert.Empty(t, p.Badges)

	_, err = f.profiles.PublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, f.users.byUsername, "second lookup is served from cache")
}

func TestPublicProfile_UnknownUser(t *testing.T) {
	f := newProfileFixture(t)

	_, err := f.profiles.PublicProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
