// Package catalog holds the static game data: the sixteen skills and their
// categories, the title thresholds per skill, the badge unlock conditions and
// the fixed set of daily challenges.
//
// ONE CATALOG PER PROCESS:
// The catalog is loaded once at startup and passed (as *Catalog) to every
// component that needs it. Nothing else in the codebase spells out skill names
// or category mappings, so the mapping can never drift between call sites.
//
// IMMUTABILITY:
// All accessors return copies of the underlying slices. A *Catalog is safe for
// concurrent use by any number of goroutines without locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultDefinition []byte

// SkillCount is the fixed size of the skill taxonomy.
const SkillCount = 16

// Category is one of the four colour groups partitioning the skills.
type Category string

const (
	Red   Category = "Red"
	Blue  Category = "Blue"
	Green Category = "Green"
	Gold  Category = "Gold"
)

// Categories lists the four categories in display order.
var Categories = []Category{Red, Blue, Green, Gold}

// ErrMalformed is wrapped by every Load failure.
var ErrMalformed = errors.New("catalog: malformed definition")

// Skill is one progression track.
type Skill struct {
	Name        string   `yaml:"name"        json:"name"`
	Category    Category `yaml:"category"    json:"category"`
	Description string   `yaml:"description" json:"description"`
	Guide       string   `yaml:"guide"       json:"guide"`
}

// CategoryInfo carries the display text for a category.
type CategoryInfo struct {
	Name         Category `yaml:"name"          json:"name"`
	Description  string   `yaml:"description"   json:"description"`
	EarningGuide string   `yaml:"earning_guide" json:"earningGuide"`
}

// Title is a named reward unlocked when Skill reaches Level.
type Title struct {
	Skill string `json:"skill"`
	Level int    `json:"level"`
	Name  string `json:"name"`
}

// Condition is a badge unlock requirement: Skill at Level or above.
type Condition struct {
	Skill string `yaml:"skill" json:"skill"`
	Level int    `yaml:"level" json:"level"`
}

// Badge is a named reward with an image, unlocked by a single Condition.
type Badge struct {
	Name        string    `yaml:"name"             json:"name"`
	Description string    `yaml:"description"      json:"description"`
	Image       string    `yaml:"image"            json:"image"`
	Unlock      Condition `yaml:"unlock_condition" json:"unlockCondition"`
}

// definition is the on-disk shape of catalog.yaml.
type definition struct {
	Categories      []CategoryInfo            `yaml:"categories"`
	Skills          []Skill                   `yaml:"skills"`
	Titles          map[string]map[int]string `yaml:"titles"`
	Badges          []Badge                   `yaml:"badges"`
	DailyChallenges []string                  `yaml:"daily_challenges"`
}

// Catalog is the immutable, validated lookup table built from a definition.
type Catalog struct {
	skills     []Skill
	skillIndex map[string]int // lower-cased name -> position in skills

	categories map[Category]CategoryInfo

	titles     map[string][]Title // skill -> titles sorted by level
	titleIndex map[string]Title   // lower-cased title name -> title

	badges     []Badge
	badgeIndex map[string]int // lower-cased badge name -> position in badges

	challenges []string
}

// Default parses the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultDefinition)
}

// LoadFile reads a catalog definition from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a catalog definition.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading definition: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog definition held in memory.
//
// VALIDATION:
// A catalog that is missing a skill, maps a skill to an unknown category,
// references an unknown skill from a title or badge, or repeats a name is
// rejected with an error wrapping ErrMalformed. The server treats that as
// fatal, so requests are never served against a partial catalog.
func Parse(data []byte) (*Catalog, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return build(def)
}

func build(def definition) (*Catalog, error) {
	c := &Catalog{
		skillIndex: make(map[string]int, len(def.Skills)),
		categories: make(map[Category]CategoryInfo, len(Categories)),
		titles:     make(map[string][]Title, len(def.Skills)),
		titleIndex: make(map[string]Title),
		badgeIndex: make(map[string]int, len(def.Badges)),
	}

	for _, info := range def.Categories {
		if !knownCategory(info.Name) {
			return nil, malformed("unknown category %q", info.Name)
		}
		if _, dup := c.categories[info.Name]; dup {
			return nil, malformed("duplicate category %q", info.Name)
		}
		c.categories[info.Name] = info
	}
	for _, cat := range Categories {
		if _, ok := c.categories[cat]; !ok {
			return nil, malformed("category %q has no description", cat)
		}
	}

	if len(def.Skills) != SkillCount {
		return nil, malformed("expected %d skills, got %d", SkillCount, len(def.Skills))
	}
	perCategory := make(map[Category]int)
	for i, s := range def.Skills {
		if strings.TrimSpace(s.Name) == "" {
			return nil, malformed("skill %d has no name", i)
		}
		if !knownCategory(s.Category) {
			return nil, malformed("skill %q has unknown category %q", s.Name, s.Category)
		}
		key := fold(s.Name)
		if _, dup := c.skillIndex[key]; dup {
			return nil, malformed("duplicate skill %q", s.Name)
		}
		c.skillIndex[key] = i
		c.skills = append(c.skills, s)
		perCategory[s.Category]++
	}
	for _, cat := range Categories {
		if perCategory[cat] == 0 {
			return nil, malformed("category %q has no skills", cat)
		}
	}

	for skill, thresholds := range def.Titles {
		s, ok := c.Skill(skill)
		if !ok {
			return nil, malformed("titles reference unknown skill %q", skill)
		}
		list := make([]Title, 0, len(thresholds))
		for level, name := range thresholds {
			if level < 1 {
				return nil, malformed("title %q has level %d", name, level)
			}
			if strings.TrimSpace(name) == "" {
				return nil, malformed("skill %q has an unnamed title at level %d", skill, level)
			}
			if _, dup := c.titleIndex[fold(name)]; dup {
				return nil, malformed("duplicate title %q", name)
			}
			t := Title{Skill: s.Name, Level: level, Name: name}
			c.titleIndex[fold(name)] = t
			list = append(list, t)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Level < list[j].Level })
		c.titles[s.Name] = list
	}

	for _, b := range def.Badges {
		if strings.TrimSpace(b.Name) == "" {
			return nil, malformed("badge without a name")
		}
		s, ok := c.Skill(b.Unlock.Skill)
		if !ok {
			return nil, malformed("badge %q references unknown skill %q", b.Name, b.Unlock.Skill)
		}
		if b.Unlock.Level < 1 {
			return nil, malformed("badge %q has level %d", b.Name, b.Unlock.Level)
		}
		if _, dup := c.badgeIndex[fold(b.Name)]; dup {
			return nil, malformed("duplicate badge %q", b.Name)
		}
		b.Unlock.Skill = s.Name
		c.badgeIndex[fold(b.Name)] = len(c.badges)
		c.badges = append(c.badges, b)
	}

	if len(def.DailyChallenges) == 0 {
		return nil, malformed("no daily challenges defined")
	}
	seen := make(map[string]bool, len(def.DailyChallenges))
	for _, name := range def.DailyChallenges {
		if strings.TrimSpace(name) == "" || seen[fold(name)] {
			return nil, malformed("invalid or duplicate daily challenge %q", name)
		}
		seen[fold(name)] = true
		c.challenges = append(c.challenges, name)
	}

	return c, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func knownCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// =========================================================================
// SKILLS AND CATEGORIES
// =========================================================================

// Skills returns all skills in display order.
func (c *Catalog) Skills() []Skill {
	out := make([]Skill, len(c.skills))
	copy(out, c.skills)
	return out
}

// SkillNames returns the canonical skill names in display order.
func (c *Catalog) SkillNames() []string {
	names := make([]string, len(c.skills))
	for i, s := range c.skills {
		names[i] = s.Name
	}
	return names
}

// Skill looks a skill up by name, ignoring case and surrounding space.
func (c *Catalog) Skill(name string) (Skill, bool) {
	i, ok := c.skillIndex[fold(name)]
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// Order returns the display position of a skill, or len(Skills()) for an
// unknown name so unknown entries sort last.
func (c *Catalog) Order(skill string) int {
	if i, ok := c.skillIndex[fold(skill)]; ok {
		return i
	}
	return len(c.skills)
}

// CategoryOf returns the category of a skill.
func (c *Catalog) CategoryOf(skill string) (Category, bool) {
	s, ok := c.Skill(skill)
	return s.Category, ok
}

// CategoryInfo returns the description and earning guide for a category.
// The lookup ignores case, so "red" and "Red" are equivalent.
func (c *Catalog) CategoryInfo(name string) (CategoryInfo, bool) {
	for _, cat := range Categories {
		if strings.EqualFold(string(cat), strings.TrimSpace(name)) {
			return c.categories[cat], true
		}
	}
	return CategoryInfo{}, false
}

// CategoryInfos returns every category in display order.
func (c *Catalog) CategoryInfos() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(Categories))
	for _, cat := range Categories {
		out = append(out, c.categories[cat])
	}
	return out
}

// SkillsIn returns the skills of one category in display order.
func (c *Catalog) SkillsIn(cat Category) []Skill {
	var out []Skill
	for _, s := range c.skills {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

// =========================================================================
// TITLES AND BADGES
// =========================================================================

// TitlesFor returns the titles of a skill ordered by ascending threshold.
func (c *Catalog) TitlesFor(skill string) []Title {
	s, ok := c.Skill(skill)
	if !ok {
		return nil
	}
	list := c.titles[s.Name]
	out := make([]Title, len(list))
	copy(out, list)
	return out
}

// AllTitles returns every title, grouped by skill in display order.
func (c *Catalog) AllTitles() []Title {
	var out []Title
	for _, s := range c.skills {
		out = append(out, c.titles[s.Name]...)
	}
	return out
}

// Title looks a title up by name, ignoring case.
func (c *Catalog) Title(name string) (Title, bool) {
	t, ok := c.titleIndex[fold(name)]
	return t, ok
}

// AllBadges returns the badge list in definition order.
func (c *Catalog) AllBadges() []Badge {
	out := make([]Badge, len(c.badges))
	copy(out, c.badges)
	return out
}

// Badge looks a badge up by name, ignoring case.
func (c *Catalog) Badge(name string) (Badge, bool) {
	i, ok := c.badgeIndex[fold(name)]
	if !ok {
		return Badge{}, false
	}
	return c.badges[i], true
}

// =========================================================================
// DAILY CHALLENGES
// =========================================================================

// Challenges returns the fixed daily challenge names.
func (c *Catalog) Challenges() []string {
	out := make([]string, len(c.challenges))
	copy(out, c.challenges)
	return out
}

// Challenge resolves a challenge name to its canonical spelling.
func (c *Catalog) Challenge(name string) (string, bool) {
	for _, ch := range c.challenges {
		if fold(ch) == fold(name) {
			return ch, true
		}
	}
	return "", false
}
