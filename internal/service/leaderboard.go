package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

type leaderboardStore interface {
	repository.UserRepository
	repository.ProgressRepository
}

// LeaderboardService ranks every user by total level.
type LeaderboardService struct {
	store       leaderboardStore
	catalog     *catalog.Catalog
	concurrency int
	logger      *slog.Logger
}

// NewLeaderboardService creates the service. concurrency bounds how many
// users' skills are fetched at once.
func NewLeaderboardService(store leaderboardStore, c *catalog.Catalog, concurrency int, logger *slog.Logger) *LeaderboardService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LeaderboardService{store: store, catalog: c, concurrency: concurrency, logger: logger}
}

// Rankings returns one entry per user, sorted by total level descending.
//
// Total level subtracts the starting level of every skill, so a fresh account
// scores 0. The sort is stable over creation order, so users with equal
// totals always appear oldest first. Equal totals share a rank.
func (s *LeaderboardService) Rankings(ctx context.Context) ([]model.LeaderboardEntry, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/leaderboard: listing users: %w", err)
	}

	entries := make([]model.LeaderboardEntry, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, u := range users {
		g.Go(func() error {
			records, err := s.store.ListSkills(gctx, u.ID)
			if err != nil {
				return fmt.Errorf("listing skills of %s: %w", u.Username, err)
			}
			entries[i] = s.entry(u.Username, records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/leaderboard: %w", err)
	}

	slices.SortStableFunc(entries, func(a, b model.LeaderboardEntry) int {
		return cmp.Compare(b.TotalLevel, a.TotalLevel)
	})
	for i := range entries {
		if i > 0 && entries[i].TotalLevel == entries[i-1].TotalLevel {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	s.logger.Debug("leaderboard computed", slog.Int("users", len(entries)))
	return entries, nil
}

func (s *LeaderboardService) entry(username string, records []model.SkillRecord) model.LeaderboardEntry {
	e := model.LeaderboardEntry{
		Username: username,
		Stats:    statsOf(s.catalog, records),
	}
	if len(records) > 0 {
		e.TotalLevel = -catalog.SkillCount
	}
	for _, r := range records {
		e.TotalXP += r.XP
		e.TotalLevel += r.Level
	}
	return e
}
