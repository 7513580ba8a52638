/*
Package progression tracks experience points, derived levels, streaks and
quarterly activity counters per user.

PURPOSE:
  The XP event log is the ledger of truth. UserProgression is a derived
  table: its totals are invariant-checked running sums, its levels are
  always recomputed through the LevelTable inside the same mutation that
  touches the source XP fields, and the whole record can be rebuilt by
  replaying the log.

KEY CONCEPTS IN THIS FILE (types.go):
  - XPEvent: Immutable ledger entry for an XP award
  - SkillProgress: Per-skill XP totals with derived level
  - UserProgression: The derived per-user record
  - LevelUpEvent: Audit entry for a level crossing
  - Metric: Named counters achievements can condition on

DESIGN PRINCIPLES:
  1. Append-only: XP events are never modified or deleted
  2. Derived state is never externally settable; levels always equal
     DeriveLevel(totalXP)
  3. XP is strictly additive; there is no level-down path

SEE ALSO:
  - levels.go: Level derivation
  - ledger.go: Mutation operations
  - store.go: Persistence interface
*/
package progression

import "time"

// =============================================================================
// XP EVENT - Append-only, immutable once written
// =============================================================================

type XPEvent struct {
	ID          string
	UserID      string
	SkillID     string // empty = overall XP only
	Amount      int64  // always positive
	Source      string // e.g. "training", "checkin", "achievement", "admin"
	Description string
	CreatedAt   time.Time
}

// =============================================================================
// DERIVED STATE
// =============================================================================

// SkillProgress tracks one progression track (e.g. knowledge, loyalty).
// Owned exclusively by one UserProgression.
type SkillProgress struct {
	SkillID   string
	TotalXP   int64
	Level     int   // always DeriveLevel(TotalXP); never set directly
	XPInLevel int64 // XP past the current level's floor
}

// Streak tracks consecutive-day activity.
type Streak struct {
	Current       int
	Longest       int
	LastEventDate time.Time // UTC day; zero = no events yet
}

// QuarterlyStats is the counter bucket for the current calendar quarter.
// When the stored quarter differs from the current one, the bucket resets
// before the next delta is applied (rollover is implicit, not scheduled).
type QuarterlyStats struct {
	Quarter            string // "YYYY-Q#"
	CoinsEarned        int64
	TrainingsCompleted int64
	PunctualDays       int64
	FeedbackGiven      int64
}

// UnlockRecord marks an achievement as unlocked for a user, at most once.
type UnlockRecord struct {
	AchievementID string
	UnlockedAt    time.Time
	Seen          bool
}

// UserProgression is the derived per-user record. Created lazily on first
// event, mutated only through ledger operations, never deleted.
type UserProgression struct {
	UserID       string
	TotalXP      int64
	Level        int
	Skills       map[string]*SkillProgress
	Unlocked     map[string]UnlockRecord
	Streak       Streak
	Quarterly    QuarterlyStats
	LastActiveAt time.Time
}

// NewUserProgression returns the zero-state record for a user (level 1).
func NewUserProgression(userID string) *UserProgression {
	return &UserProgression{
		UserID:   userID,
		Level:    1,
		Skills:   make(map[string]*SkillProgress),
		Unlocked: make(map[string]UnlockRecord),
	}
}

// =============================================================================
// LEVEL-UP AUDIT LOG
// =============================================================================

// LevelUpEvent records a single level crossing. One event per level, so a
// multi-level jump produces several events. The log doubles as the
// dedupe record that keeps CheckLevelUp from firing twice for one level.
type LevelUpEvent struct {
	ID        string
	UserID    string
	SkillID   string // empty = overall level
	FromLevel int
	ToLevel   int
	At        time.Time
}

// =============================================================================
// METRICS - What achievement conditions can read
// =============================================================================

type Metric string

const (
	MetricTotalXP            Metric = "total_xp"
	MetricLevel              Metric = "level"
	MetricCoinsEarned        Metric = "coins_earned"
	MetricTrainingsCompleted Metric = "trainings_completed"
	MetricPunctualDays       Metric = "punctual_days"
	MetricFeedbackGiven      Metric = "feedback_given"
	MetricCurrentStreak      Metric = "current_streak"
	MetricLongestStreak      Metric = "longest_streak"
	MetricAchievements       Metric = "achievements_unlocked"
)

// Quarterly reports whether the metric has a quarterly bucket. Only these
// metrics may appear in quarterly-timeframe achievement conditions.
func (m Metric) Quarterly() bool {
	switch m {
	case MetricCoinsEarned, MetricTrainingsCompleted, MetricPunctualDays, MetricFeedbackGiven:
		return true
	}
	return false
}

// Known reports whether the metric name is one the engine can evaluate.
func (m Metric) Known() bool {
	switch m {
	case MetricTotalXP, MetricLevel, MetricCoinsEarned, MetricTrainingsCompleted,
		MetricPunctualDays, MetricFeedbackGiven, MetricCurrentStreak,
		MetricLongestStreak, MetricAchievements:
		return true
	}
	return false
}
