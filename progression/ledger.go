/*
ledger.go - Progression ledger operations

PURPOSE:
  The only writer of progression state. Awards XP, recomputes derived
  levels inside the same mutation, maintains streaks and quarterly
  buckets, and reports level crossings exactly once each.

CONCURRENCY:
  Every mutation locks the user's keyed mutex, so concurrent awards for
  one user are serialized while different users proceed in parallel.

TIME:
  "Now" is always an explicit argument. Quarter rollover and streak
  breaks are derived from it lazily; there is no background job.

SEE ALSO:
  - levels.go: Level derivation
  - store.go: Persistence contract
*/
package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/progression-engine/core"
)

// Ledger mutates and reads per-user progression state.
type Ledger struct {
	store  Store
	levels *LevelTable
	locks  *core.KeyedMutex
}

func NewLedger(store Store, levels *LevelTable) *Ledger {
	return &Ledger{
		store:  store,
		levels: levels,
		locks:  core.NewKeyedMutex(),
	}
}

// Levels exposes the table for read-only consumers (API, engine).
func (l *Ledger) Levels() *LevelTable { return l.levels }

// =============================================================================
// XP AWARDS
// =============================================================================

// AwardXP appends an XP event and updates derived state: overall total,
// the named skill's total (if any), both derived levels, and
// LastActiveAt. Awards are deliberately NOT idempotent: every call is a
// new event, callers are responsible for not double-firing domain events.
func (l *Ledger) AwardXP(ctx context.Context, userID, skillID string, amount int64, source, description string, at time.Time) (*XPEvent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("award of %d XP: %w", amount, core.ErrInvalidAmount)
	}
	if userID == "" {
		return nil, fmt.Errorf("award xp: empty user id: %w", core.ErrNotFound)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	p, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	ev := XPEvent{
		ID:          core.NewID("xp"),
		UserID:      userID,
		SkillID:     skillID,
		Amount:      amount,
		Source:      source,
		Description: description,
		CreatedAt:   at,
	}

	// Log first: if the append fails nothing derived has moved.
	if err := l.store.AppendXPEvent(ctx, ev); err != nil {
		return nil, err
	}

	l.apply(p, ev)
	p.LastActiveAt = at

	if err := l.store.SaveProgression(ctx, p); err != nil {
		return nil, fmt.Errorf("save progression after award: %w", err)
	}
	return &ev, nil
}

// apply folds an XP event into derived state, recomputing levels.
func (l *Ledger) apply(p *UserProgression, ev XPEvent) {
	p.TotalXP += ev.Amount
	p.Level = l.levels.DeriveLevel(p.TotalXP)

	if ev.SkillID != "" {
		sp, ok := p.Skills[ev.SkillID]
		if !ok {
			sp = &SkillProgress{SkillID: ev.SkillID, Level: 1}
			p.Skills[ev.SkillID] = sp
		}
		sp.TotalXP += ev.Amount
		sp.Level = l.levels.DeriveLevel(sp.TotalXP)
		sp.XPInLevel = l.levels.Progress(sp.TotalXP).CurrentLevelXP
	}
}

// =============================================================================
// LEVEL-UP DETECTION
// =============================================================================

// CheckLevelUp compares the recorded level-up history against the levels
// currently derived from XP, for the user and every skill, and appends
// one audit entry per level crossed. Calling it again with unchanged
// state returns nothing: a level already recorded never fires twice.
func (l *Ledger) CheckLevelUp(ctx context.Context, userID string, at time.Time) ([]LevelUpEvent, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	p, err := l.store.Progression(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := l.store.LevelUps(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Highest level already recorded, per track ("" = overall).
	recorded := map[string]int{"": 1}
	for _, ev := range history {
		if ev.ToLevel > recorded[ev.SkillID] {
			recorded[ev.SkillID] = ev.ToLevel
		}
	}
	for id := range p.Skills {
		if _, ok := recorded[id]; !ok {
			recorded[id] = 1
		}
	}

	var events []LevelUpEvent
	emit := func(skillID string, current int) {
		for lvl := recorded[skillID] + 1; lvl <= current; lvl++ {
			events = append(events, LevelUpEvent{
				ID:        core.NewID("lvl"),
				UserID:    userID,
				SkillID:   skillID,
				FromLevel: lvl - 1,
				ToLevel:   lvl,
				At:        at,
			})
		}
	}

	emit("", p.Level)
	for id, sp := range p.Skills {
		emit(id, sp.Level)
	}

	for _, ev := range events {
		if err := l.store.AppendLevelUp(ctx, ev); err != nil {
			return nil, fmt.Errorf("record level-up: %w", err)
		}
	}
	return events, nil
}

// =============================================================================
// QUARTERLY BUCKETS
// =============================================================================

// RecordQuarterlyMetric increments a counter in the bucket for the
// quarter containing at. A stale bucket is reset to zero first; the
// rollover happens implicitly on the first event of a new quarter.
func (l *Ledger) RecordQuarterlyMetric(ctx context.Context, userID string, metric Metric, delta int64, at time.Time) error {
	if !metric.Quarterly() {
		return fmt.Errorf("metric %q has no quarterly bucket", metric)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	p, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	quarter := core.QuarterKey(at)
	if p.Quarterly.Quarter != quarter {
		p.Quarterly = QuarterlyStats{Quarter: quarter}
	}

	switch metric {
	case MetricCoinsEarned:
		p.Quarterly.CoinsEarned += delta
	case MetricTrainingsCompleted:
		p.Quarterly.TrainingsCompleted += delta
	case MetricPunctualDays:
		p.Quarterly.PunctualDays += delta
	case MetricFeedbackGiven:
		p.Quarterly.FeedbackGiven += delta
	}

	return l.store.SaveProgression(ctx, p)
}

// =============================================================================
// STREAKS
// =============================================================================

// RecordStreakEvent advances the daily streak for an eligible event on
// eventDate. Same calendar day as the last event: no-op. Exactly the next
// day: increment. Anything else: reset to 1. Days are UTC calendar days.
func (l *Ledger) RecordStreakEvent(ctx context.Context, userID string, eventDate time.Time) error {
	unlock := l.locks.Lock(userID)
	defer unlock()

	p, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	day := core.DayOf(eventDate)
	switch {
	case p.Streak.LastEventDate.IsZero():
		p.Streak.Current = 1
	case core.SameDay(p.Streak.LastEventDate, day):
		return nil
	case core.NextDay(p.Streak.LastEventDate, day):
		p.Streak.Current++
	default:
		p.Streak.Current = 1
	}
	if p.Streak.Current > p.Streak.Longest {
		p.Streak.Longest = p.Streak.Current
	}
	p.Streak.LastEventDate = day

	return l.store.SaveProgression(ctx, p)
}

// =============================================================================
// READS
// =============================================================================

// Progression returns the derived record for a user.
func (l *Ledger) Progression(ctx context.Context, userID string) (*UserProgression, error) {
	return l.store.Progression(ctx, userID)
}

// Events returns the user's XP event history.
func (l *Ledger) Events(ctx context.Context, userID string) ([]XPEvent, error) {
	return l.store.XPEvents(ctx, userID)
}

// LevelUps returns the user's level-up audit history.
func (l *Ledger) LevelUps(ctx context.Context, userID string) ([]LevelUpEvent, error) {
	return l.store.LevelUps(ctx, userID)
}

// MarkUnlockSeen flags an unlocked achievement as seen.
func (l *Ledger) MarkUnlockSeen(ctx context.Context, userID, achievementID string) error {
	unlock := l.locks.Lock(userID)
	defer unlock()
	return l.store.MarkUnlockSeen(ctx, userID, achievementID)
}

// =============================================================================
// REPLAY / RECONCILIATION
// =============================================================================

// Rebuild replays the XP event log into a fresh derived record and saves
// it. Streaks, quarterly buckets and unlocks are carried over from the
// stored record (they are fed by their own logs, not the XP log). Any
// drift between stored and replayed totals is reported; the replayed
// values win. This is the authoritative recovery path.
func (l *Ledger) Rebuild(ctx context.Context, userID string) (*UserProgression, []core.ReplayMismatchError, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	stored, err := l.store.Progression(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, nil, err
	}

	events, err := l.store.XPEvents(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	rebuilt := NewUserProgression(userID)
	for _, ev := range events {
		l.apply(rebuilt, ev)
		rebuilt.LastActiveAt = ev.CreatedAt
	}

	var drift []core.ReplayMismatchError
	if stored != nil {
		rebuilt.Streak = stored.Streak
		rebuilt.Quarterly = stored.Quarterly
		rebuilt.Unlocked = stored.Unlocked
		if stored.LastActiveAt.After(rebuilt.LastActiveAt) {
			rebuilt.LastActiveAt = stored.LastActiveAt
		}

		if stored.TotalXP != rebuilt.TotalXP {
			drift = append(drift, core.ReplayMismatchError{
				UserID: userID, Field: "total_xp",
				Stored: stored.TotalXP, Replay: rebuilt.TotalXP,
			})
		}
		if stored.Level != rebuilt.Level {
			drift = append(drift, core.ReplayMismatchError{
				UserID: userID, Field: "level",
				Stored: int64(stored.Level), Replay: int64(rebuilt.Level),
			})
		}
	}

	if err := l.store.SaveProgression(ctx, rebuilt); err != nil {
		return nil, nil, err
	}
	return rebuilt, drift, nil
}

func (l *Ledger) loadOrCreate(ctx context.Context, userID string) (*UserProgression, error) {
	p, err := l.store.Progression(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return NewUserProgression(userID), nil
	}
	return p, err
}
