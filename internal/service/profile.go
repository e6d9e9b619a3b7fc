package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

// ProfileService assembles the owner's dashboard and public profiles.
//
// Public profiles are looked up by username. Usernames never change and
// users are never deleted, so the username → ID mapping is cached.
type ProfileService struct {
	users      repository.UserRepository
	progress   *ProgressService
	challenges *ChallengeService
	unlocks    *UnlockService
	ids        *lru.Cache
	logger     *slog.Logger
}

func NewProfileService(
	users repository.UserRepository,
	progress *ProgressService,
	challenges *ChallengeService,
	unlocks *UnlockService,
	cacheSize int,
	logger *slog.Logger,
) (*ProfileService, error) {
	ids, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("service/profile: creating cache: %w", err)
	}
	return &ProfileService{
		users:      users,
		progress:   progress,
		challenges: challenges,
		unlocks:    unlocks,
		ids:        ids,
		logger:     logger,
	}, nil
}

// Dashboard returns everything the owner's overview page shows.
func (s *ProfileService) Dashboard(ctx context.Context, userID string) (*model.Dashboard, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: %w", err)
	}

	stats, err := s.progress.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	challenges, err := s.challenges.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	titles, err := s.unlocks.SelectedTitles(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.unlocks.SelectedBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.Dashboard{
		Username:       user.Username,
		Stats:          stats,
		Challenges:     challenges,
		SelectedTitles: titles,
		SelectedBadges: badges,
	}, nil
}

// PublicProfile returns what anyone may see about username.
func (s *ProfileService) PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	userID, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	titles, err := s.unlocks.SelectedTitles(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.unlocks.UnlockedTitles(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.unlocks.SelectedBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.PublicProfile{
		Username:       username,
		SelectedTitles: titles,
		UnlockedTitles: unlocked,
		Badges:         badges,
	}, nil
}

func (s *ProfileService) resolve(ctx context.Context, username string) (string, error) {
	if id, ok := s.ids.Get(username); ok {
		return id.(string), nil
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", fmt.Errorf("service/profile: %w", apperror.NotFound("profile", username))
		}
		return "", fmt.Errorf("service/profile: looking up %s: %w", username, err)
	}
	s.ids.Add(username, user.ID)
	return user.ID, nil
}
