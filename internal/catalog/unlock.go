package catalog

// Levels maps a skill name to the level a user holds in it.
type Levels map[string]int

// UnlockedTitles returns, per skill, every title whose threshold is at or
// below the user's level in that skill, sorted by ascending threshold.
// Skills with nothing unlocked are omitted.
//
// Holding a higher title never hides a lower one: all thresholds at or below
// the current level stay unlocked at once.
func (c *Catalog) UnlockedTitles(levels Levels) map[string][]Title {
	out := make(map[string][]Title)
	for skill, level := range levels {
		for _, t := range c.TitlesFor(skill) {
			if t.Level > level {
				break
			}
			out[t.Skill] = append(out[t.Skill], t)
		}
	}
	return out
}

// UnlockedBadges returns every badge whose condition the levels satisfy, in
// catalog order. Each badge is checked on its own, so several badges tied to
// the same skill can unlock together.
func (c *Catalog) UnlockedBadges(levels Levels) []Badge {
	var out []Badge
	for _, b := range c.badges {
		if b.Unlocked(levels) {
			out = append(out, b)
		}
	}
	return out
}

// Unlocked reports whether the levels satisfy the badge's condition.
func (b Badge) Unlocked(levels Levels) bool {
	level, ok := levels[b.Unlock.Skill]
	return ok && level >= b.Unlock.Level
}

// Unlocked reports whether the levels reach the title's threshold.
func (t Title) Unlocked(levels Levels) bool {
	level, ok := levels[t.Skill]
	return ok && level >= t.Level
}

// TitlesBetween returns the titles of skill whose threshold lies in the
// half-open range (low, high]. A level change from low to high unlocks
// exactly these titles; a change from high to low locks them again.
func (c *Catalog) TitlesBetween(skill string, low, high int) []Title {
	var out []Title
	for _, t := range c.TitlesFor(skill) {
		if t.Level > low && t.Level <= high {
			out = append(out, t)
		}
	}
	return out
}

// BadgesBetween is the badge counterpart of TitlesBetween.
func (c *Catalog) BadgesBetween(skill string, low, high int) []Badge {
	s, ok := c.Skill(skill)
	if !ok {
		return nil
	}
	var out []Badge
	for _, b := range c.badges {
		if b.Unlock.Skill == s.Name && b.Unlock.Level > low && b.Unlock.Level <= high {
			out = append(out, b)
		}
	}
	return out
}
