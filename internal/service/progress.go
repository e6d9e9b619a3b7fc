package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/progression"
	"github.com/sakif/skilltree/internal/repository"
)

// ProgressService applies XP gains and spends and presents skill stats.
type ProgressService struct {
	progress repository.ProgressRepository
	catalog  *catalog.Catalog
	logger   *slog.Logger
}

func NewProgressService(progress repository.ProgressRepository, c *catalog.Catalog, logger *slog.Logger) *ProgressService {
	return &ProgressService{progress: progress, catalog: c, logger: logger}
}

// GainXP adds amount XP to one of the user's skills. The read, level-up
// cascade and write happen under the record's lock, so concurrent gains on
// the same skill all land.
func (s *ProgressService) GainXP(ctx context.Context, userID, skillName string, amount int) (*model.GainOutcome, error) {
	skill, err := s.resolveSkill(skillName)
	if err != nil {
		return nil, fmt.Errorf("service/progress: %w", err)
	}
	if err := validateAmount(amount); err != nil {
		return nil, fmt.Errorf("service/progress: %w", err)
	}

	var res progression.GainResult
	_, err = s.progress.UpdateSkill(ctx, userID, skill.Name, func(rec *model.SkillRecord) error {
		r, err := progression.ApplyGain(rec.State(), amount)
		if err != nil {
			return err
		}
		res = r
		rec.SetState(r.State)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/progress: gaining %d xp in %s: %w", amount, skill.Name, progressionError(err))
	}

	out := &model.GainOutcome{
		Skill:         skill.Name,
		PreviousLevel: res.PreviousLevel,
		NewLevel:      res.Level,
		XP:            res.XP,
		LeveledUp:     res.LeveledUp(),
	}
	if out.LeveledUp {
		out.NewTitles = s.catalog.TitlesBetween(skill.Name, res.PreviousLevel, res.Level)
		out.NewBadges = s.catalog.BadgesBetween(skill.Name, res.PreviousLevel, res.Level)
		s.logger.Info("level up",
			slog.String("userID", userID),
			slog.String("skill", skill.Name),
			slog.Int("from", res.PreviousLevel),
			slog.Int("to", res.Level),
		)
	}
	return out, nil
}

// SpendXP removes amount XP from one of the user's skills, dropping levels as
// needed. At level 1 the remaining deficit is discarded.
func (s *ProgressService) SpendXP(ctx context.Context, userID, skillName string, amount int) (*model.SpendOutcome, error) {
	skill, err := s.resolveSkill(skillName)
	if err != nil {
		return nil, fmt.Errorf("service/progress: %w", err)
	}
	if err := validateAmount(amount); err != nil {
		return nil, fmt.Errorf("service/progress: %w", err)
	}

	var res progression.SpendResult
	_, err = s.progress.UpdateSkill(ctx, userID, skill.Name, func(rec *model.SkillRecord) error {
		r, err := progression.ApplySpend(rec.State(), amount)
		if err != nil {
			return err
		}
		res = r
		rec.SetState(r.State)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/progress: spending %d xp in %s: %w", amount, skill.Name, progressionError(err))
	}

	out := &model.SpendOutcome{
		Skill:       skill.Name,
		NewXP:       res.XP,
		NewLevel:    res.Level,
		LeveledDown: res.LeveledDown,
	}
	if out.LeveledDown {
		out.LostTitles = s.catalog.TitlesBetween(skill.Name, res.Level, res.PreviousLevel)
		out.LostBadges = s.catalog.BadgesBetween(skill.Name, res.Level, res.PreviousLevel)
		s.logger.Info("level down",
			slog.String("userID", userID),
			slog.String("skill", skill.Name),
			slog.Int("from", res.PreviousLevel),
			slog.Int("to", res.Level),
		)
	}
	return out, nil
}

// Stats returns the user's skills in catalog order with categories attached.
func (s *ProgressService) Stats(ctx context.Context, userID string) ([]model.SkillStat, error) {
	records, err := s.progress.ListSkills(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: listing skills: %w", err)
	}
	return statsOf(s.catalog, records), nil
}

// CategoryView returns the skills of one category with their guide texts.
func (s *ProgressService) CategoryView(ctx context.Context, userID, category string) (*model.CategoryView, error) {
	info, ok := s.catalog.CategoryInfo(category)
	if !ok {
		return nil, fmt.Errorf("service/progress: %w", apperror.NotFound("category", category))
	}

	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.SkillStat, len(stats))
	for _, st := range stats {
		byName[st.Skill] = st
	}

	view := &model.CategoryView{Category: info}
	for _, sk := range s.catalog.SkillsIn(info.Name) {
		st, ok := byName[sk.Name]
		if !ok {
			continue
		}
		view.Skills = append(view.Skills, model.CategorySkill{
			SkillStat:   st,
			Description: sk.Description,
			Guide:       sk.Guide,
		})
	}
	return view, nil
}

func (s *ProgressService) resolveSkill(name string) (catalog.Skill, error) {
	skill, ok := s.catalog.Skill(name)
	if !ok {
		return catalog.Skill{}, apperror.NotFound("skill", name).
			WithSuggestions(s.catalog.SuggestSkills(name, suggestionLimit))
	}
	return skill, nil
}
