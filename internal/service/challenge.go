package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

// ChallengeService marks daily challenges done and lists them.
type ChallengeService struct {
	challenges repository.ChallengeRepository
	catalog    *catalog.Catalog
	logger     *slog.Logger
}

func NewChallengeService(challenges repository.ChallengeRepository, c *catalog.Catalog, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{challenges: challenges, catalog: c, logger: logger}
}

// Complete marks one challenge completed for today. Completing it again is a
// no-op.
func (s *ChallengeService) Complete(ctx context.Context, userID, name string) error {
	canonical, ok := s.catalog.Challenge(name)
	if !ok {
		return fmt.Errorf("service/challenge: %w", apperror.NotFound("challenge", name).
			WithSuggestions(s.catalog.SuggestChallenges(name, suggestionLimit)))
	}
	if err := s.challenges.CompleteChallenge(ctx, userID, canonical); err != nil {
		return fmt.Errorf("service/challenge: completing %s: %w", canonical, err)
	}
	s.logger.Debug("challenge completed",
		slog.String("userID", userID),
		slog.String("challenge", canonical),
	)
	return nil
}

// List returns the user's challenges in catalog order.
func (s *ChallengeService) List(ctx context.Context, userID string) ([]model.DailyChallenge, error) {
	list, err := s.challenges.ListChallenges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/challenge: listing: %w", err)
	}
	order := s.catalog.Challenges()
	rank := func(name string) int {
		if i := slices.Index(order, name); i >= 0 {
			return i
		}
		return len(order)
	}
	slices.SortStableFunc(list, func(a, b model.DailyChallenge) int {
		return rank(a.Name) - rank(b.Name)
	})
	return list, nil
}
