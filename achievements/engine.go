/*
engine.go - Achievement evaluation

PURPOSE:
  Evaluates every active, not-yet-unlocked achievement against a frozen
  snapshot of one user's state. On success the unlock is recorded exactly
  once (the store enforces uniqueness on (userID, achievementID)) and the
  achievement's reward effects are returned for the facade to apply.

ORDERING:
  Achievements are evaluated ascending by ID so reward fan-out order is
  reproducible. Conditions read only the pre-evaluation snapshot; an
  unlock can never depend on another unlocking first in the same pass.

VALIDATION:
  Rule validation happens at construction. An achievement with zero
  conditions would silently unlock for everyone, so it aborts startup.

SEE ALSO:
  - types.go: Condition and effect types
  - progression/store.go: RecordUnlock uniqueness contract
*/
package achievements

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/warp/progression-engine/core"
)

// UnlockStore records unlocks with at-most-once semantics.
// progression.Store satisfies this.
type UnlockStore interface {
	RecordUnlock(ctx context.Context, userID, achievementID string, at time.Time) error
}

// Engine holds the validated rule set, sorted by ID.
type Engine struct {
	achievements []Achievement
	store        UnlockStore
}

// NewEngine validates the rule set and builds an engine. Malformed rules
// are configuration errors that abort startup, never per-request faults.
func NewEngine(achs []Achievement, store UnlockStore) (*Engine, error) {
	sorted := make([]Achievement, len(achs))
	copy(sorted, achs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	seen := make(map[string]bool, len(sorted))
	for _, a := range sorted {
		if err := validate(a); err != nil {
			return nil, err
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: duplicate achievement id %q", core.ErrInvalidAchievement, a.ID)
		}
		seen[a.ID] = true
	}

	return &Engine{achievements: sorted, store: store}, nil
}

func validate(a Achievement) error {
	if a.ID == "" {
		return fmt.Errorf("%w: achievement with empty id", core.ErrInvalidAchievement)
	}
	if len(a.Conditions) == 0 {
		return fmt.Errorf("%w: achievement %q has no conditions", core.ErrInvalidAchievement, a.ID)
	}
	for _, c := range a.Conditions {
		if !c.Metric.Known() {
			return fmt.Errorf("%w: achievement %q conditions on unknown metric %q",
				core.ErrInvalidAchievement, a.ID, c.Metric)
		}
		if !c.Operator.Known() {
			return fmt.Errorf("%w: achievement %q uses unknown operator %q",
				core.ErrInvalidAchievement, a.ID, c.Operator)
		}
		if c.Timeframe != TimeframeAllTime && c.Timeframe != TimeframeQuarterly {
			return fmt.Errorf("%w: achievement %q uses unknown timeframe %q",
				core.ErrInvalidAchievement, a.ID, c.Timeframe)
		}
		if c.Timeframe == TimeframeQuarterly && !c.Metric.Quarterly() {
			return fmt.Errorf("%w: achievement %q conditions quarterly on metric %q which has no quarterly bucket",
				core.ErrInvalidAchievement, a.ID, c.Metric)
		}
	}
	for _, r := range a.Rewards {
		if r.Amount <= 0 {
			return fmt.Errorf("%w: achievement %q has a non-positive reward", core.ErrInvalidAchievement, a.ID)
		}
		switch r.Kind {
		case RewardXP, RewardCoins:
		case RewardSkillXP:
			if r.SkillID == "" {
				return fmt.Errorf("%w: achievement %q has a skillXp reward without a skill",
					core.ErrInvalidAchievement, a.ID)
			}
		default:
			return fmt.Errorf("%w: achievement %q has unknown reward kind %q",
				core.ErrInvalidAchievement, a.ID, r.Kind)
		}
	}
	return nil
}

// Achievements returns the rule set, ascending by ID.
func (e *Engine) Achievements() []Achievement {
	out := make([]Achievement, len(e.achievements))
	copy(out, e.achievements)
	return out
}

// Evaluate checks every active achievement not yet unlocked in the
// snapshot. Unlocks are recorded through the store; a concurrent or
// repeated evaluation that loses the race simply skips the achievement,
// so N evaluations under continuously satisfied conditions produce
// exactly one unlock and one set of effects per achievement.
func (e *Engine) Evaluate(ctx context.Context, snap Snapshot, at time.Time) ([]Unlock, error) {
	var unlocks []Unlock

	for _, a := range e.achievements {
		if !a.IsActive || snap.Unlocked[a.ID] {
			continue
		}

		satisfied := true
		for _, c := range a.Conditions {
			if !c.Holds(snap) {
				satisfied = false
				break
			}
		}
		if !satisfied {
			continue
		}

		err := e.store.RecordUnlock(ctx, snap.UserID, a.ID, at)
		if errors.Is(err, core.ErrAlreadyUnlocked) {
			continue
		}
		if err != nil {
			return unlocks, fmt.Errorf("record unlock of %q: %w", a.ID, err)
		}

		unlocks = append(unlocks, Unlock{Achievement: a, UserID: snap.UserID, At: at})
	}

	return unlocks, nil
}
