/*
levels.go - Static XP-threshold to level mapping

PURPOSE:
  The LevelTable answers "what level is X total XP?". It is loaded once at
  startup, validated, and immutable for the process lifetime. Admin edits
  replace the whole table, which re-runs validation.

KEY INVARIANTS:
  1. Thresholds are strictly increasing (no duplicates, no plateaus)
  2. The table starts at RequiredXP=0 for level 1, so every user has a
     level even with zero XP
  3. DeriveLevel is monotonically non-decreasing in total XP

A malformed table is a fatal configuration error rejected at load time,
never a runtime fault.

SEE ALSO:
  - ledger.go: Recomputes derived levels through this table
  - factory/config.go: Parses and loads tables from JSON
*/
package progression

import (
	"fmt"
	"sort"

	"github.com/warp/progression-engine/core"
)

// LevelDefinition is one row of the level table.
type LevelDefinition struct {
	Level      int
	Title      string
	RequiredXP int64
	Icon       string
	Color      string
}

// LevelTable maps cumulative XP to levels. Immutable after construction.
type LevelTable struct {
	levels []LevelDefinition
}

// NewLevelTable validates and builds a table. The input must be sorted
// ascending by RequiredXP, start at level 1 with RequiredXP 0, and have
// strictly increasing thresholds and level numbers.
func NewLevelTable(defs []LevelDefinition) (*LevelTable, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: empty table", core.ErrInvalidLevelTable)
	}
	if defs[0].Level != 1 || defs[0].RequiredXP != 0 {
		return nil, fmt.Errorf("%w: table must start at level 1 with required_xp 0", core.ErrInvalidLevelTable)
	}
	for i := 1; i < len(defs); i++ {
		if defs[i].RequiredXP <= defs[i-1].RequiredXP {
			return nil, fmt.Errorf("%w: threshold for level %d (%d XP) not above level %d (%d XP)",
				core.ErrInvalidLevelTable, defs[i].Level, defs[i].RequiredXP, defs[i-1].Level, defs[i-1].RequiredXP)
		}
		if defs[i].Level <= defs[i-1].Level {
			return nil, fmt.Errorf("%w: level numbers must be strictly increasing (%d after %d)",
				core.ErrInvalidLevelTable, defs[i].Level, defs[i-1].Level)
		}
	}

	table := make([]LevelDefinition, len(defs))
	copy(table, defs)
	return &LevelTable{levels: table}, nil
}

// DeriveLevel returns the highest level whose threshold is at or below
// totalXP. Total XP is never negative (awards are strictly positive), but
// anything at or below zero still maps to level 1.
func (t *LevelTable) DeriveLevel(totalXP int64) int {
	// First index whose threshold exceeds totalXP; the row before it wins.
	i := sort.Search(len(t.levels), func(i int) bool {
		return t.levels[i].RequiredXP > totalXP
	})
	if i == 0 {
		return t.levels[0].Level
	}
	return t.levels[i-1].Level
}

// Definition returns the row for a level number.
func (t *LevelTable) Definition(level int) (LevelDefinition, bool) {
	for _, d := range t.levels {
		if d.Level == level {
			return d, true
		}
	}
	return LevelDefinition{}, false
}

// Definitions returns a copy of all rows, ascending by threshold.
func (t *LevelTable) Definitions() []LevelDefinition {
	out := make([]LevelDefinition, len(t.levels))
	copy(out, t.levels)
	return out
}

// MaxLevel returns the highest level number in the table.
func (t *LevelTable) MaxLevel() int {
	return t.levels[len(t.levels)-1].Level
}

// LevelProgress describes how far into the current level a user is.
// Progress ratio is CurrentLevelXP / NextLevelXP.
type LevelProgress struct {
	Level          int
	CurrentLevelXP int64 // XP earned past the current level's floor
	NextLevelXP    int64 // XP needed past the floor to reach the next level
}

// Progress computes level progress for a total XP amount. At max level the
// progress saturates at 100% (NextLevelXP equals CurrentLevelXP).
func (t *LevelTable) Progress(totalXP int64) LevelProgress {
	level := t.DeriveLevel(totalXP)

	var floor int64
	idx := 0
	for i, d := range t.levels {
		if d.Level == level {
			floor = d.RequiredXP
			idx = i
			break
		}
	}

	inLevel := totalXP - floor
	if inLevel < 0 {
		inLevel = 0
	}

	if idx == len(t.levels)-1 {
		// Max level: saturate.
		return LevelProgress{Level: level, CurrentLevelXP: inLevel, NextLevelXP: inLevel}
	}
	return LevelProgress{
		Level:          level,
		CurrentLevelXP: inLevel,
		NextLevelXP:    t.levels[idx+1].RequiredXP - floor,
	}
}
