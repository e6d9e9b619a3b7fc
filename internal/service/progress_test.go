package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

func newTestProgressService(t *testing.T) (*ProgressService, string) {
	t.Helper()
	c := newTestCatalog(t)
	db := newTestStore(t)
	return NewProgressService(db, c, newTestLogger()), newTestUser(t, db, c, "alice")
}

func TestGainXP_LevelsUpAndReportsUnlocks(t *testing.T) {
	svc, userID := newTestProgressService(t)
	ctx := context.Background()

	out, err := svc.GainXP(ctx, userID, "Strength", 90)
	require.NoError(t, err)
	assert.False(t, out.LeveledUp)
	assert.Empty(t, out.NewTitles)

	out, err = svc.GainXP(ctx, userID, "Strength", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, out.PreviousLevel)
	assert.Equal(t, 2, out.NewLevel)
	assert.Equal(t, 20, out.XP)
	assert.True(t, out.LeveledUp)
	require.Len(t, out.NewTitles, 1)
	assert.Equal(t, "Pebble Lifter", out.NewTitles[0].Name)
	assert.Empty(t, out.NewBadges)

	// 20 + 280 = 300 total: exactly level 3, which unlocks First Rep.
	out, err = svc.GainXP(ctx, userID, "Strength", 280)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NewLevel)
	assert.Equal(t, 0, out.XP)
	require.Len(t, out.NewBadges, 1)
	assert.Equal(t, "First Rep", out.NewBadges[0].Name)
}

func TestGainXP_SkillNameIsCaseInsensitive(t *testing.T) {
	svc, userID := newTestProgressService(t)

	out, err := svc.GainXP(context.Background(), userID, "  good DEEDS ", 10)
	require.NoError(t, err)
	assert.Equal(t, "Good deeds", out.Skill)
}

func TestGainXP_UnknownSkillSuggests(t *testing.T) {
	svc, userID := newTestProgressService(t)

	_, err := svc.GainXP(context.Background(), userID, "Strngth", 10)
	require.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Contains(t, err.Error(), "did you mean: Strength")
}

func TestGainXP_RejectsBadAmounts(t *testing.T) {
	svc, userID := newTestProgressService(t)

	for _, amount := range []int{-1, 2_000_000_000} {
		_, err := svc.GainXP(context.Background(), userID, "Logic", amount)
		assert.ErrorIs(t, err, apperror.ErrValidation, "amount %d", amount)
	}
}

func TestGainXP_ZeroIsNoOp(t *testing.T) {
	svc, userID := newTestProgressService(t)

	out, err := svc.GainXP(context.Background(), userID, "Logic", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NewLevel)
	assert.Equal(t, 0, out.XP)
	assert.False(t, out.LeveledUp)
}

func TestSpendXP_LevelsDownAndReportsLosses(t *testing.T) {
	svc, userID := newTestProgressService(t)
	ctx := context.Background()

	_, err := svc.GainXP(ctx, userID, "Strength", 120)
	require.NoError(t, err)

	out, err := svc.SpendXP(ctx, userID, "Strength", 40)
	require.NoError(t, err)
	assert.Equal(t, 80, out.NewXP)
	assert.Equal(t, 1, out.NewLevel)
	assert.True(t, out.LeveledDown)
	require.Len(t, out.LostTitles, 1)
	assert.Equal(t, "Pebble Lifter", out.LostTitles[0].Name)
}

func TestSpendXP_ClampsAtLevelOne(t *testing.T) {
	svc, userID := newTestProgressService(t)
	ctx := context.Background()

	_, err := svc.GainXP(ctx, userID, "Logic", 10)
	require.NoError(t, err)

	out, err := svc.SpendXP(ctx, userID, "Logic", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NewXP)
	assert.Equal(t, 1, out.NewLevel)
	assert.False(t, out.LeveledDown)

	// No debt is carried: the next gain starts from zero.
	gain, err := svc.GainXP(ctx, userID, "Logic", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, gain.XP)
}

func TestGainXP_ConcurrentGainsAllLand(t *testing.T) {
	svc, userID := newTestProgressService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GainXP(ctx, userID, "Speed", 25)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := svc.Stats(ctx, userID)
	require.NoError(t, err)
	for _, st := range stats {
		if st.Skill == "Speed" {
			// 1000 total XP is exactly the start of level 5.
			assert.Equal(t, 5, st.Level)
			assert.Equal(t, 0, st.XP)
		}
	}
}

func TestStats_CatalogOrderWithCategories(t *testing.T) {
	svc, userID := newTestProgressService(t)

	stats, err := svc.Stats(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, stats, catalog.SkillCount)
	assert.Equal(t, "Strength", stats[0].Skill)
	assert.Equal(t, catalog.Red, stats[0].Category)
	assert.Equal(t, 100, stats[0].Capacity)
	assert.Equal(t, "Good deeds", stats[len(stats)-1].Skill)
}

func TestCategoryView(t *testing.T) {
	svc, userID := newTestProgressService(t)
	ctx := context.Background()

	view, err := svc.CategoryView(ctx, userID, "red")
	require.NoError(t, err)
	assert.Equal(t, catalog.Red, view.Category.Name)
	require.Len(t, view.Skills, 4)
	assert.Equal(t, "Strength", view.Skills[0].Skill)
	assert.NotEmpty(t, view.Skills[0].Guide)

	_, err = svc.CategoryView(ctx, userID, "Purple")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// failingProgress fails every call with err.
type failingProgress struct{ err error }

func (f failingProgress) ListSkills(context.Context, string) ([]model.SkillRecord, error) {
	return nil, f.err
}

func (f failingProgress) UpdateSkill(context.Context, string, string, func(*model.SkillRecord) error) (*model.SkillRecord, error) {
	return nil, f.err
}

var _ repository.ProgressRepository = failingProgress{}

func TestGainXP_StorageUnavailable(t *testing.T) {
	c := newTestCatalog(t)
	svc := NewProgressService(failingProgress{apperror.Unavailable("sqlite: update skill", errors.New("database is locked"))}, c, newTestLogger())

	_, err := svc.GainXP(context.Background(), "u1", "Strength", 10)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
}

func TestGainXP_UnknownUserIsNotFound(t *testing.T) {
	svc, _ := newTestProgressService(t)

	_, err := svc.GainXP(context.Background(), "no-such-user", "Strength", 10)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
