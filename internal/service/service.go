// Package service holds the business rules. Handlers call services; services
// call repositories and the catalog and never see HTTP.
//
//	handler (HTTP) → service (rules) → repository (storage)
//	                        ↘ catalog (static lookup)
//
// Errors leave this package wrapped as "service/<name>: ...: %w" around an
// apperror sentinel, so handlers can map them with errors.Is.
package service

import (
	"errors"
	"slices"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/progression"
	"github.com/sakif/skilltree/internal/repository"
)

// suggestionLimit caps "did you mean" hints on NotFound errors.
const suggestionLimit = 3

// Provisioning returns the rows every new user starts with: one record per
// catalog skill and one challenge per catalog challenge.
func Provisioning(c *catalog.Catalog) repository.Provisioning {
	return repository.Provisioning{
		Skills:     c.SkillNames(),
		Challenges: c.Challenges(),
	}
}

// levelsOf indexes skill records by skill name.
func levelsOf(records []model.SkillRecord) catalog.Levels {
	levels := make(catalog.Levels, len(records))
	for _, r := range records {
		levels[r.Skill] = r.Level
	}
	return levels
}

// statsOf decorates records with catalog data, in catalog display order.
func statsOf(c *catalog.Catalog, records []model.SkillRecord) []model.SkillStat {
	stats := make([]model.SkillStat, 0, len(records))
	for _, r := range records {
		cat, _ := c.CategoryOf(r.Skill)
		stats = append(stats, model.SkillStat{
			Skill:    r.Skill,
			Category: cat,
			XP:       r.XP,
			Level:    r.Level,
			Capacity: progression.Capacity(r.Level),
		})
	}
	slices.SortStableFunc(stats, func(a, b model.SkillStat) int {
		return c.Order(a.Skill) - c.Order(b.Skill)
	})
	return stats
}

// validateAmount rejects amounts the leveling engine would refuse, before any
// storage work is done.
func validateAmount(amount int) error {
	switch {
	case amount < 0:
		return apperror.ValidationFailed("amount", "amount must not be negative")
	case amount > progression.MaxAmount:
		return apperror.ValidationFailed("amount", "amount is too large")
	}
	return nil
}

// progressionError maps leveling-engine errors to the apperror taxonomy.
func progressionError(err error) error {
	switch {
	case errors.Is(err, progression.ErrNegativeAmount), errors.Is(err, progression.ErrAmountTooLarge):
		return &apperror.AppError{Err: apperror.ErrValidation, Message: "amount out of range", Field: "amount", Cause: err}
	}
	return err
}
