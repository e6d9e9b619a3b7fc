package model

import (
	"fmt"
	"slices"
	"strings"
)

// SelectionKind names which display set a selection belongs to.
type SelectionKind string

const (
	SelectionTitles SelectionKind = "titles"
	SelectionBadges SelectionKind = "badges"
)

// Action is the operation applied by a selection toggle.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// ParseAction accepts "add" or "remove" in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionAdd, ActionRemove:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Selection is an ordered set of names a user chose to display.
// Insertion order is kept; duplicates never appear.
type Selection []string

// Apply returns the selection after performing action on item.
// Adding a present item or removing an absent one is a no-op.
func (s Selection) Apply(item string, action Action) Selection {
	idx := slices.Index(s, item)
	out := slices.Clone(s)
	switch action {
	case ActionAdd:
		if idx < 0 {
			out = append(out, item)
		}
	case ActionRemove:
		if idx >= 0 {
			out = slices.Delete(out, idx, idx+1)
		}
	}
	if out == nil {
		out = Selection{}
	}
	return out
}

// Contains reports whether item is selected.
func (s Selection) Contains(item string) bool {
	return slices.Contains(s, item)
}

// Dedupe drops repeated names, keeping the first occurrence.
func (s Selection) Dedupe() Selection {
	seen := make(map[string]bool, len(s))
	out := make(Selection, 0, len(s))
	for _, name := range s {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
