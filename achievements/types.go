/*
Package achievements evaluates condition rules against progression state
and unlocks achievements at most once per user.

PURPOSE:
  Achievements are configuration data: a set of conditions (AND
  semantics) over named metrics plus a list of reward effects. The engine
  never applies rewards itself; it returns RewardEffect values and the
  gamification facade fans them out into the XP and coin ledgers. This
  keeps reward fan-out independently testable and removes hidden
  cross-store coupling.

KEY CONCEPTS IN THIS FILE (types.go):
  - Condition: metric / operator / target / timeframe
  - RewardEffect: xp, skillXp or coins to be applied on unlock
  - Achievement: the rule bundle
  - Snapshot: the frozen view of a user conditions are read against

SEE ALSO:
  - engine.go: Evaluation and unlock recording
  - gamification/facade.go: Builds snapshots and applies effects
*/
package achievements

import (
	"time"

	"github.com/warp/progression-engine/progression"
)

// =============================================================================
// CONDITIONS
// =============================================================================

type Operator string

const (
	OpEq  Operator = "eq"
	OpGte Operator = "gte"
	OpGt  Operator = "gt"
	OpLte Operator = "lte"
	OpLt  Operator = "lt"
)

func (o Operator) Known() bool {
	switch o {
	case OpEq, OpGte, OpGt, OpLte, OpLt:
		return true
	}
	return false
}

type Timeframe string

const (
	TimeframeAllTime   Timeframe = "allTime"
	TimeframeQuarterly Timeframe = "quarterly"
)

// Condition is one rule clause. Quarterly timeframes read the current
// quarter's bucket; allTime reads lifetime counters.
type Condition struct {
	Metric    progression.Metric
	Operator  Operator
	Target    int64
	Timeframe Timeframe
}

// Holds evaluates the condition against a snapshot.
func (c Condition) Holds(snap Snapshot) bool {
	var value int64
	if c.Timeframe == TimeframeQuarterly {
		value = snap.Quarterly[c.Metric]
	} else {
		value = snap.AllTime[c.Metric]
	}

	switch c.Operator {
	case OpEq:
		return value == c.Target
	case OpGte:
		return value >= c.Target
	case OpGt:
		return value > c.Target
	case OpLte:
		return value <= c.Target
	case OpLt:
		return value < c.Target
	}
	return false
}

// =============================================================================
// REWARDS
// =============================================================================

type RewardKind string

const (
	RewardXP      RewardKind = "xp"
	RewardSkillXP RewardKind = "skillXp"
	RewardCoins   RewardKind = "coins"
)

// RewardEffect is a reward to be applied by the orchestrator on unlock.
// The engine only ever returns these as values.
type RewardEffect struct {
	Kind    RewardKind
	Amount  int64
	SkillID string // required for skillXp, empty otherwise
}

// =============================================================================
// ACHIEVEMENT
// =============================================================================

// Achievement is a named milestone unlocked once per user when all its
// conditions hold. Hidden achievements are evaluated normally; hiding
// only affects how the UI lists them before unlock.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Conditions  []Condition
	Rewards     []RewardEffect
	IsActive    bool
	IsHidden    bool
}

// Unlock is the result of a successful evaluation for one achievement.
type Unlock struct {
	Achievement Achievement
	UserID      string
	At          time.Time
}

// =============================================================================
// SNAPSHOT - Pre-evaluation view of a user
// =============================================================================

// Snapshot is the consistent view of one user's state that a whole
// evaluation pass reads. It is built once, before any unlock in the pass,
// so no achievement's conditions can observe rewards fanned out earlier
// in the same pass.
type Snapshot struct {
	UserID    string
	AllTime   map[progression.Metric]int64
	Quarterly map[progression.Metric]int64
	Unlocked  map[string]bool // achievement IDs unlocked before this pass
}
