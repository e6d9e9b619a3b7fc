package model

import "github.com/sakif/skilltree/internal/catalog"

// LeaderboardEntry is one user's row on the leaderboard.
//
// TotalLevel subtracts the 16 starting levels, so a fresh account scores 0.
type LeaderboardEntry struct {
	Rank       int         `json:"rank"`
	Username   string      `json:"username"`
	TotalXP    int         `json:"totalXp"`
	TotalLevel int         `json:"totalLevel"`
	Stats      []SkillStat `json:"stats"`
}

// SelectedTitle is a displayed title with the skill and level it came from.
type SelectedTitle struct {
	Name  string `json:"name"`
	Skill string `json:"skill"`
	Level int    `json:"level"`
}

// Dashboard is the owner's overview page.
type Dashboard struct {
	Username       string           `json:"username"`
	Stats          []SkillStat      `json:"stats"`
	Challenges     []DailyChallenge `json:"challenges"`
	SelectedTitles []SelectedTitle  `json:"selectedTitles"`
	SelectedBadges []catalog.Badge  `json:"selectedBadges"`
}

// CategoryView is the card page for one category.
type CategoryView struct {
	Category catalog.CategoryInfo `json:"category"`
	Skills   []CategorySkill      `json:"skills"`
}

// CategorySkill is a skill on a category card, with its guide text.
type CategorySkill struct {
	SkillStat
	Description string `json:"description"`
	Guide       string `json:"guide"`
}

// TitlesView lists a user's unlocked titles and current selection.
type TitlesView struct {
	Unlocked map[string][]catalog.Title `json:"unlocked"`
	Selected Selection                  `json:"selected"`
}

// BadgesView lists a user's unlocked badges and current selection.
type BadgesView struct {
	Unlocked []catalog.Badge `json:"unlocked"`
	Selected Selection       `json:"selected"`
}

// PublicProfile is what anyone can see about a user.
type PublicProfile struct {
	Username       string                     `json:"username"`
	SelectedTitles []SelectedTitle            `json:"selectedTitles"`
	UnlockedTitles map[string][]catalog.Title `json:"unlockedTitles"`
	Badges         []catalog.Badge            `json:"badges"`
}
