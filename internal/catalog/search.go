package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// EntryKind says which table a search hit came from.
type EntryKind string

const (
	KindSkill EntryKind = "skill"
	KindTitle EntryKind = "title"
	KindBadge EntryKind = "badge"
)

// Entry is one searchable catalog item.
type Entry struct {
	Kind  EntryKind `json:"kind"`
	Name  string    `json:"name"`
	Skill string    `json:"skill"`
	Level int       `json:"level,omitempty"`
}

// entries implements fuzzy.Source over catalog items.
type entries []Entry

func (e entries) Len() int            { return len(e) }
func (e entries) String(i int) string { return e[i].Name }

func (c *Catalog) entries() entries {
	out := make(entries, 0, len(c.skills)+len(c.titleIndex)+len(c.badges))
	for _, s := range c.skills {
		out = append(out, Entry{Kind: KindSkill, Name: s.Name, Skill: s.Name})
	}
	for _, t := range c.AllTitles() {
		out = append(out, Entry{Kind: KindTitle, Name: t.Name, Skill: t.Skill, Level: t.Level})
	}
	for _, b := range c.badges {
		out = append(out, Entry{Kind: KindBadge, Name: b.Name, Skill: b.Unlock.Skill, Level: b.Unlock.Level})
	}
	return out
}

// Search fuzzy-matches query against skill, title and badge names and
// returns at most limit hits, best match first. A limit of zero or less
// returns every hit.
func (c *Catalog) Search(query string, limit int) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	source := c.entries()
	matches := fuzzy.FindFrom(query, source)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, source[m.Index])
	}
	return out
}

// SuggestSkills returns up to limit skill names that fuzzy-match name.
// Used to enrich "unknown skill" errors.
func (c *Catalog) SuggestSkills(name string, limit int) []string {
	return suggest(name, c.SkillNames(), limit)
}

// SuggestChallenges is the challenge counterpart of SuggestSkills.
func (c *Catalog) SuggestChallenges(name string, limit int) []string {
	return suggest(name, c.Challenges(), limit)
}

// SuggestTitles returns up to limit title names that fuzzy-match name.
func (c *Catalog) SuggestTitles(name string, limit int) []string {
	titles := c.AllTitles()
	names := make([]string, len(titles))
	for i, t := range titles {
		names[i] = t.Name
	}
	return suggest(name, names, limit)
}

// SuggestBadges returns up to limit badge names that fuzzy-match name.
func (c *Catalog) SuggestBadges(name string, limit int) []string {
	names := make([]string, len(c.badges))
	for i, b := range c.badges {
		names[i] = b.Name
	}
	return suggest(name, names, limit)
}

func suggest(name string, candidates []string, limit int) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	matches := fuzzy.Find(name, candidates)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}
