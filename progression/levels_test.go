package progression_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/progression"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func threeLevels(t *testing.T) *progression.LevelTable {
	table, err := progression.NewLevelTable([]progression.LevelDefinition{
		{Level: 1, Title: "Rookie", RequiredXP: 0},
		{Level: 2, Title: "Explorer", RequiredXP: 100},
		{Level: 3, Title: "Achiever", RequiredXP: 250},
	})
	require.NoError(t, err)
	return table
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestNewLevelTable_Empty_Rejected(t *testing.T) {
	// GIVEN: An empty definition list
	// WHEN: Building the table
	// THEN: Configuration error

	_, err := progression.NewLevelTable(nil)
	assert.ErrorIs(t, err, core.ErrInvalidLevelTable)
}

func TestNewLevelTable_FirstLevelMustStartAtZero(t *testing.T) {
	// GIVEN: A table whose first row requires 50 XP
	// WHEN: Building the table
	// THEN: Rejected; level 1 must be reachable with zero XP

	_, err := progression.NewLevelTable([]progression.LevelDefinition{
		{Level: 1, Title: "Rookie", RequiredXP: 50},
	})
	assert.ErrorIs(t, err, core.ErrInvalidLevelTable)
}

func TestNewLevelTable_NonIncreasingThresholds_Rejected(t *testing.T) {
	// GIVEN: Two levels with the same threshold
	// WHEN: Building the table
	// THEN: Rejected; thresholds must be strictly increasing

	_, err := progression.NewLevelTable([]progression.LevelDefinition{
		{Level: 1, Title: "Rookie", RequiredXP: 0},
		{Level: 2, Title: "Explorer", RequiredXP: 100},
		{Level: 3, Title: "Achiever", RequiredXP: 100},
	})
	assert.ErrorIs(t, err, core.ErrInvalidLevelTable)

	assert.True(t, core.IsConfigError(err), "level table problems are config errors")
}

// =============================================================================
// DERIVATION TESTS
// =============================================================================

func TestDeriveLevel_Boundaries(t *testing.T) {
	// GIVEN: Thresholds 0 / 100 / 250
	// WHEN: Deriving levels across the boundaries
	// THEN: Reaching a threshold exactly counts as the higher level

	table := threeLevels(t)

	cases := []struct {
		totalXP int64
		level   int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{10_000, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, table.DeriveLevel(tc.totalXP), "totalXP=%d", tc.totalXP)
	}
}

func TestDeriveLevel_Monotonic(t *testing.T) {
	// GIVEN: The standard table
	// WHEN: Walking total XP upward
	// THEN: Derived level never decreases

	table := threeLevels(t)
	prev := 0
	for xp := int64(0); xp <= 300; xp++ {
		level := table.DeriveLevel(xp)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}
}

func TestProgress_MidLevel(t *testing.T) {
	// GIVEN: 120 total XP against thresholds 0 / 100 / 250
	// WHEN: Computing progress
	// THEN: 20 XP into level 2, next level at 150 more

	table := threeLevels(t)
	p := table.Progress(120)

	assert.Equal(t, 2, p.Level)
	assert.Equal(t, int64(20), p.CurrentLevelXP)
	assert.Equal(t, int64(150), p.NextLevelXP)
}

func TestProgress_MaxLevel_Saturates(t *testing.T) {
	// GIVEN: XP far beyond the last threshold
	// WHEN: Computing progress
	// THEN: Progress reads as complete instead of pointing at a level
	//       that does not exist

	table := threeLevels(t)
	p := table.Progress(400)

	assert.Equal(t, 3, p.Level)
	assert.Equal(t, int64(150), p.CurrentLevelXP)
	assert.Equal(t, p.CurrentLevelXP, p.NextLevelXP)
}

func TestDefinition_Lookup(t *testing.T) {
	table := threeLevels(t)

	def, ok := table.Definition(2)
	require.True(t, ok)
	assert.Equal(t, "Explorer", def.Title)

	_, ok = table.Definition(9)
	assert.False(t, ok)

	assert.Equal(t, 3, table.MaxLevel())
}
