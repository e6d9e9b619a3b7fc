package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

// UnlockService derives unlocked titles and badges from skill levels and
// manages each user's displayed selection.
//
// In strict mode (the default) a selection may only hold items the user has
// currently unlocked: adding an unknown name is NotFound, adding a locked
// item is Forbidden, and reads drop items that were locked again by spending
// XP. Removal is always allowed. With strict off any name can be added and
// reads return the stored set as is.
type UnlockService struct {
	progress   repository.ProgressRepository
	selections repository.SelectionRepository
	catalog    *catalog.Catalog
	strict     bool
	logger     *slog.Logger
}

func NewUnlockService(
	progress repository.ProgressRepository,
	selections repository.SelectionRepository,
	c *catalog.Catalog,
	strict bool,
	logger *slog.Logger,
) *UnlockService {
	return &UnlockService{
		progress:   progress,
		selections: selections,
		catalog:    c,
		strict:     strict,
		logger:     logger,
	}
}

// UnlockedTitles maps each skill to the titles the user holds in it, lowest
// threshold first.
func (s *UnlockService) UnlockedTitles(ctx context.Context, userID string) (map[string][]catalog.Title, error) {
	levels, err := s.levels(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.catalog.UnlockedTitles(levels), nil
}

// UnlockedBadges lists the badges the user holds, in catalog order.
func (s *UnlockService) UnlockedBadges(ctx context.Context, userID string) ([]catalog.Badge, error) {
	levels, err := s.levels(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.catalog.UnlockedBadges(levels), nil
}

// ToggleTitle adds or removes a title from the user's displayed titles and
// returns the stored selection.
func (s *UnlockService) ToggleTitle(ctx context.Context, userID, title string, action model.Action) (model.Selection, error) {
	return s.toggle(ctx, userID, model.SelectionTitles, title, action, func(name string) (string, bool) {
		t, ok := s.catalog.Title(name)
		return t.Name, ok
	}, s.catalog.SuggestTitles)
}

// ToggleBadge is the badge counterpart of ToggleTitle.
func (s *UnlockService) ToggleBadge(ctx context.Context, userID, badge string, action model.Action) (model.Selection, error) {
	return s.toggle(ctx, userID, model.SelectionBadges, badge, action, func(name string) (string, bool) {
		b, ok := s.catalog.Badge(name)
		return b.Name, ok
	}, s.catalog.SuggestBadges)
}

// toggle validates the action and item, then applies the change inside the
// store transaction. The unlock check runs against the skill levels read in
// that same transaction, so a concurrent spend cannot slip a locked item in.
func (s *UnlockService) toggle(
	ctx context.Context,
	userID string,
	kind model.SelectionKind,
	item string,
	raw model.Action,
	resolve func(name string) (canonical string, known bool),
	suggest func(string, int) []string,
) (model.Selection, error) {
	action, err := model.ParseAction(string(raw))
	if err != nil {
		return nil, fmt.Errorf("service/unlock: %w", apperror.ValidationFailed("action", err.Error()))
	}
	if item == "" {
		return nil, fmt.Errorf("service/unlock: %w", apperror.ValidationFailed(string(kind), "name is required"))
	}

	name, known := resolve(item)
	if !known {
		if action == model.ActionAdd && s.strict {
			return nil, fmt.Errorf("service/unlock: %w",
				apperror.NotFound(kindNoun(kind), item).WithSuggestions(suggest(item, suggestionLimit)))
		}
		name = item
	}

	sel, err := s.selections.UpdateSelection(ctx, userID, kind, func(current model.Selection, skills []model.SkillRecord) (model.Selection, error) {
		if action == model.ActionAdd && s.strict && !s.unlocked(kind, name, levelsOf(skills)) {
			return nil, apperror.Forbidden(fmt.Sprintf("%s %q is not unlocked yet", kindNoun(kind), name))
		}
		return current.Apply(name, action), nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/unlock: updating %s selection: %w", kind, err)
	}

	s.logger.Info("selection changed",
		slog.String("userID", userID),
		slog.String("kind", string(kind)),
		slog.String("item", name),
		slog.String("action", string(action)),
	)
	return sel, nil
}

// Titles returns the unlocked titles together with the displayed selection.
func (s *UnlockService) Titles(ctx context.Context, userID string) (*model.TitlesView, error) {
	levels, err := s.levels(ctx, userID)
	if err != nil {
		return nil, err
	}
	sel, err := s.selection(ctx, userID, model.SelectionTitles, levels)
	if err != nil {
		return nil, err
	}
	return &model.TitlesView{Unlocked: s.catalog.UnlockedTitles(levels), Selected: sel}, nil
}

// Badges returns the unlocked badges together with the displayed selection.
func (s *UnlockService) Badges(ctx context.Context, userID string) (*model.BadgesView, error) {
	levels, err := s.levels(ctx, userID)
	if err != nil {
		return nil, err
	}
	sel, err := s.selection(ctx, userID, model.SelectionBadges, levels)
	if err != nil {
		return nil, err
	}
	return &model.BadgesView{Unlocked: s.catalog.UnlockedBadges(levels), Selected: sel}, nil
}

// SelectedTitles returns the displayed titles annotated with the skill and
// level each came from. Names the catalog no longer knows are skipped.
func (s *UnlockService) SelectedTitles(ctx context.Context, userID string) ([]model.SelectedTitle, error) {
	levels, err := s.levels(ctx, userID)
	if err != nil {
		return nil, err
	}
	sel, err := s.selection(ctx, userID, model.SelectionTitles, levels)
	if err != nil {
		return nil, err
	}
	out := make([]model.SelectedTitle, 0, len(sel))
	for _, name := range sel {
		if t, ok := s.catalog.Title(name); ok {
			out = append(out, model.SelectedTitle{Name: t.Name, Skill: t.Skill, Level: t.Level})
		}
	}
	return out, nil
}

// SelectedBadges returns full badge details for the displayed badges.
func (s *UnlockService) SelectedBadges(ctx context.Context, userID string) ([]catalog.Badge, error) {
	levels, err := s.levels(ctx, userID)
	if err != nil {
		return nil, err
	}
	sel, err := s.selection(ctx, userID, model.SelectionBadges, levels)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Badge, 0, len(sel))
	for _, name := range sel {
		if b, ok := s.catalog.Badge(name); ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// selection reads the stored selection and, in strict mode, drops items the
// levels no longer unlock.
func (s *UnlockService) selection(ctx context.Context, userID string, kind model.SelectionKind, levels catalog.Levels) (model.Selection, error) {
	sel, err := s.selections.GetSelection(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("service/unlock: reading %s selection: %w", kind, err)
	}
	if !s.strict {
		return sel, nil
	}

	out := model.Selection{}
	for _, name := range sel {
		if s.unlocked(kind, name, levels) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (s *UnlockService) unlocked(kind model.SelectionKind, name string, levels catalog.Levels) bool {
	switch kind {
	case model.SelectionTitles:
		t, ok := s.catalog.Title(name)
		return ok && t.Unlocked(levels)
	case model.SelectionBadges:
		b, ok := s.catalog.Badge(name)
		return ok && b.Unlocked(levels)
	}
	return false
}

func (s *UnlockService) levels(ctx context.Context, userID string) (catalog.Levels, error) {
	records, err := s.progress.ListSkills(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/unlock: listing skills: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("service/unlock: %w", apperror.NotFound("user", userID))
	}
	return levelsOf(records), nil
}

func kindNoun(kind model.SelectionKind) string {
	if kind == model.SelectionBadges {
		return "badge"
	}
	return "title"
}
