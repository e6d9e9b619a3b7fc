// Package progression implements the XP and level state machine of a skill.
//
// THE LEVEL CURVE:
// A skill at level L holds between 0 and L*100-1 XP. Filling the bar costs
// exactly L*100 XP and moves the skill to L+1 with the remainder carried over.
// Dropping below zero refunds the capacity of the level you fall back TO:
//
//	level 1 → 2 costs 100, level 2 → 3 costs 200, level 3 → 4 costs 300 ...
//
// Summing those costs gives the cumulative XP needed to reach level L:
//
//	TotalForLevel(L) = 100 * (1 + 2 + ... + (L-1)) = 50 * L * (L-1)
//
// so every (xp, level) state maps to one cumulative total and back. Gains and
// spends are then plain addition and subtraction on the total, clamped at zero,
// which is why the functions below never loop level by level.
package progression

import (
	"errors"
	"fmt"
)

// Capacity per level is LevelStep * level.
const LevelStep = 100

// MaxAmount bounds a single gain or spend.
const MaxAmount = 1_000_000_000

// maxLevel keeps 50*L*(L-1) well inside int64.
const maxLevel = 1 << 28

var (
	ErrNegativeAmount = errors.New("progression: amount must not be negative")
	ErrAmountTooLarge = fmt.Errorf("progression: amount must not exceed %d", MaxAmount)
	ErrInvalidState   = errors.New("progression: invalid xp/level state")
)

// State is a skill's position on the level curve.
// At rest 0 <= XP < Level*LevelStep and Level >= 1.
type State struct {
	XP    int `json:"xp"`
	Level int `json:"level"`
}

// Initial is the state of every skill on a fresh account.
var Initial = State{XP: 0, Level: 1}

// Capacity returns the XP needed to leave level.
func Capacity(level int) int {
	return level * LevelStep
}

// Valid reports whether s satisfies the at-rest invariant.
func (s State) Valid() bool {
	return s.Level >= 1 && s.Level <= maxLevel && s.XP >= 0 && s.XP < Capacity(s.Level)
}

// TotalForLevel is the cumulative XP at which level begins.
func TotalForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return LevelStep / 2 * level * (level - 1)
}

// Total is the cumulative XP represented by s. It is the monotonic progress
// measure: a gain of n raises it by exactly n.
func (s State) Total() int {
	return TotalForLevel(s.Level) + s.XP
}

// FromTotal maps a cumulative XP total back to a state. Negative totals map
// to Initial.
func FromTotal(total int) State {
	if total <= 0 {
		return Initial
	}

	// Exponential search for an upper bound, then binary search for the
	// highest level whose starting total is <= total.
	low, high := 1, 2
	for high < maxLevel && TotalForLevel(high) <= total {
		low = high
		high *= 2
	}
	if high > maxLevel {
		high = maxLevel
	}
	for low+1 < high {
		mid := low + (high-low)/2
		if TotalForLevel(mid) <= total {
			low = mid
		} else {
			high = mid
		}
	}
	return State{XP: total - TotalForLevel(low), Level: low}
}

// GainResult is the outcome of ApplyGain.
type GainResult struct {
	State
	PreviousLevel int
}

// LeveledUp reports whether the gain crossed at least one level boundary.
func (r GainResult) LeveledUp() bool {
	return r.Level > r.PreviousLevel
}

// SpendResult is the outcome of ApplySpend.
type SpendResult struct {
	State
	PreviousLevel int
	LeveledDown   bool
}

// ApplyGain adds amount XP to s, levelling up as many times as the XP covers.
// Each level-up costs the capacity of the level being left. There is no
// upper bound on level beyond arithmetic limits.
func ApplyGain(s State, amount int) (GainResult, error) {
	if err := check(s, amount); err != nil {
		return GainResult{}, err
	}
	next := FromTotal(s.Total() + amount)
	if next.Level >= maxLevel {
		return GainResult{}, fmt.Errorf("%w: level limit reached", ErrAmountTooLarge)
	}
	return GainResult{State: next, PreviousLevel: s.Level}, nil
}

// ApplySpend removes amount XP from s, levelling down while XP is negative.
// Each level-down refunds the capacity of the level dropped to. At level 1 any
// remaining deficit is discarded: XP is clamped to zero and no debt is kept.
func ApplySpend(s State, amount int) (SpendResult, error) {
	if err := check(s, amount); err != nil {
		return SpendResult{}, err
	}
	next := FromTotal(s.Total() - amount)
	return SpendResult{
		State:         next,
		PreviousLevel: s.Level,
		LeveledDown:   next.Level < s.Level,
	}, nil
}

func check(s State, amount int) error {
	switch {
	case !s.Valid():
		return fmt.Errorf("%w: xp=%d level=%d", ErrInvalidState, s.XP, s.Level)
	case amount < 0:
		return ErrNegativeAmount
	case amount > MaxAmount:
		return ErrAmountTooLarge
	}
	return nil
}
