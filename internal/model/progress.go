package model

import (
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/progression"
)

// SkillRecord is one user's progress in one skill.
//
// The category is NOT stored with the record. It is looked up from the
// catalog whenever a record is presented (see SkillStat), so the mapping has a
// single source of truth.
type SkillRecord struct {
	UserID string `json:"-"     db:"user_id"`
	Skill  string `json:"skill" db:"skill"`
	XP     int    `json:"xp"    db:"xp"`
	Level  int    `json:"level" db:"level"`
}

// State returns the record's position on the level curve.
func (r SkillRecord) State() progression.State {
	return progression.State{XP: r.XP, Level: r.Level}
}

// SetState copies a level-curve position into the record.
func (r *SkillRecord) SetState(s progression.State) {
	r.XP = s.XP
	r.Level = s.Level
}

// SkillStat is a SkillRecord decorated with catalog data for display.
type SkillStat struct {
	Skill    string           `json:"skill"`
	Category catalog.Category `json:"category"`
	XP       int              `json:"xp"`
	Level    int              `json:"level"`
	Capacity int              `json:"capacity"` // XP needed to reach the next level
}

// DailyChallenge is one recurring per-user task.
type DailyChallenge struct {
	Name      string `json:"name"      db:"challenge"`
	Completed bool   `json:"completed" db:"completed"`
}

// GainOutcome is returned by a successful XP gain.
type GainOutcome struct {
	Skill         string          `json:"skill"`
	PreviousLevel int             `json:"previousLevel"`
	NewLevel      int             `json:"newLevel"`
	XP            int             `json:"xp"`
	LeveledUp     bool            `json:"leveledUp"`
	NewTitles     []catalog.Title `json:"newTitles,omitempty"`
	NewBadges     []catalog.Badge `json:"newBadges,omitempty"`
}

// SpendOutcome is returned by a successful XP spend.
type SpendOutcome struct {
	Skill       string          `json:"skill"`
	NewXP       int             `json:"newXp"`
	NewLevel    int             `json:"newLevel"`
	LeveledDown bool            `json:"leveledDown"`
	LostTitles  []catalog.Title `json:"lostTitles,omitempty"`
	LostBadges  []catalog.Badge `json:"lostBadges,omitempty"`
}
