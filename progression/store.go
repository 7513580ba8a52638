/*
store.go - Persistence interface for the progression ledger

PURPOSE:
  Defines the contract between progression logic and storage. The XP event
  log and level-up log are APPEND-ONLY: no Update, no Delete. The derived
  UserProgression record is upserted, but only by ledger operations that
  recompute it from the same mutation.

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests and development
  - store/sqlite: Production SQLite with unique-index enforcement

SEE ALSO:
  - ledger.go: The only writer of derived state
*/
package progression

import (
	"context"
	"time"
)

// Store persists XP events, level-up audit entries, achievement unlocks
// and the derived progression record.
type Store interface {
	// AppendXPEvent adds an XP event. Append-only; duplicate IDs rejected.
	AppendXPEvent(ctx context.Context, ev XPEvent) error

	// XPEvents returns all XP events for a user, chronologically.
	XPEvents(ctx context.Context, userID string) ([]XPEvent, error)

	// Progression returns the derived record, or core.ErrNotFound if the
	// user has never generated an event.
	Progression(ctx context.Context, userID string) (*UserProgression, error)

	// SaveProgression upserts the derived record.
	SaveProgression(ctx context.Context, p *UserProgression) error

	// AppendLevelUp adds a level-up audit entry.
	AppendLevelUp(ctx context.Context, ev LevelUpEvent) error

	// LevelUps returns all level-up entries for a user, chronologically.
	LevelUps(ctx context.Context, userID string) ([]LevelUpEvent, error)

	// RecordUnlock marks an achievement unlocked for a user. Returns
	// core.ErrAlreadyUnlocked if the (user, achievement) pair exists;
	// this is the at-most-once unlock guarantee.
	RecordUnlock(ctx context.Context, userID, achievementID string, at time.Time) error

	// MarkUnlockSeen flags an unlock as seen by the user.
	MarkUnlockSeen(ctx context.Context, userID, achievementID string) error
}
