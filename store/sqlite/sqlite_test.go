package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
	"github.com/warp/progression-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var now = time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

// =============================================================================
// APPEND-ONLY LOG TESTS
// =============================================================================

func TestXPEvents_DuplicateID_Rejected(t *testing.T) {
	// GIVEN: An event already in the log
	// WHEN: Appending another event with the same ID
	// THEN: Rejected by the primary key, mapped to the duplicate error

	store := newTestStore(t)
	ctx := context.Background()

	ev := progression.XPEvent{
		ID: "xp-1", UserID: "emp-1", Amount: 50,
		Source: "training_completed", CreatedAt: now,
	}
	require.NoError(t, store.AppendXPEvent(ctx, ev))

	err := store.AppendXPEvent(ctx, ev)
	assert.ErrorIs(t, err, core.ErrDuplicateTransaction)

	events, err := store.XPEvents(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestXPEvents_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := progression.XPEvent{
		ID: "xp-1", UserID: "emp-1", SkillID: "knowledge", Amount: 50,
		Source: "training_completed", Description: "training t-1 completed",
		CreatedAt: now,
	}
	require.NoError(t, store.AppendXPEvent(ctx, ev))

	events, err := store.XPEvents(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev.SkillID, events[0].SkillID)
	assert.Equal(t, ev.Description, events[0].Description)
	assert.True(t, ev.CreatedAt.Equal(events[0].CreatedAt))
}

func TestCoinTxs_DuplicateID_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx := coins.CoinTransaction{
		ID: "coin-1", UserID: "emp-1", Amount: 100,
		Type: coins.TxEarned, CreatedAt: now,
	}
	require.NoError(t, store.AppendCoinTx(ctx, tx))
	assert.ErrorIs(t, store.AppendCoinTx(ctx, tx), core.ErrDuplicateTransaction)
}

// =============================================================================
// UNLOCK UNIQUENESS TESTS
// =============================================================================

func TestRecordUnlock_AtMostOnce(t *testing.T) {
	// GIVEN: A recorded unlock
	// WHEN: Recording the same (user, achievement) pair again
	// THEN: The unique index rejects it as ErrAlreadyUnlocked

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordUnlock(ctx, "emp-1", "first-steps", now))

	err := store.RecordUnlock(ctx, "emp-1", "first-steps", now.Add(time.Hour))
	assert.ErrorIs(t, err, core.ErrAlreadyUnlocked)

	// Different user: fine
	assert.NoError(t, store.RecordUnlock(ctx, "emp-2", "first-steps", now))
}

func TestProgression_IncludesUnlocks(t *testing.T) {
	// GIVEN: A saved progression and a separately recorded unlock
	// WHEN: Loading the progression
	// THEN: The unlock appears in the record, from its own log

	store := newTestStore(t)
	ctx := context.Background()

	p := progression.NewUserProgression("emp-1")
	p.TotalXP = 150
	p.Level = 2
	require.NoError(t, store.SaveProgression(ctx, p))
	require.NoError(t, store.RecordUnlock(ctx, "emp-1", "first-steps", now))

	loaded, err := store.Progression(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), loaded.TotalXP)
	assert.Contains(t, loaded.Unlocked, "first-steps")

	require.NoError(t, store.MarkUnlockSeen(ctx, "emp-1", "first-steps"))
	loaded, err = store.Progression(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, loaded.Unlocked["first-steps"].Seen)
}

// =============================================================================
// DERIVED STATE ROUND-TRIP TESTS
// =============================================================================

func TestProgression_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Progression(ctx, "emp-1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	p := progression.NewUserProgression("emp-1")
	p.TotalXP = 110
	p.Level = 2
	p.Skills["knowledge"] = &progression.SkillProgress{
		SkillID: "knowledge", TotalXP: 110, Level: 2, XPInLevel: 10,
	}
	p.Streak = progression.Streak{Current: 3, Longest: 5, LastEventDate: core.DayOf(now)}
	p.Quarterly = progression.QuarterlyStats{Quarter: "2025-Q3", TrainingsCompleted: 2, CoinsEarned: 20}
	p.LastActiveAt = now
	require.NoError(t, store.SaveProgression(ctx, p))

	loaded, err := store.Progression(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, p.TotalXP, loaded.TotalXP)
	require.Contains(t, loaded.Skills, "knowledge")
	assert.Equal(t, int64(10), loaded.Skills["knowledge"].XPInLevel)
	assert.Equal(t, 3, loaded.Streak.Current)
	assert.Equal(t, "2025-Q3", loaded.Quarterly.Quarter)
	assert.Equal(t, int64(2), loaded.Quarterly.TrainingsCompleted)
}

func TestAccount_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Account(ctx, "emp-1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	acct := &coins.CoinAccount{UserID: "emp-1", TotalEarned: 500, Spent: 150, Available: 350}
	require.NoError(t, store.SaveAccount(ctx, acct))

	loaded, err := store.Account(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, acct.Available, loaded.Available)
	assert.True(t, loaded.Consistent())
}

// =============================================================================
// REDEMPTION STORE TESTS
// =============================================================================

func TestRedemptions_ByStatusAndUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stock := 5
	benefit := &redemption.Benefit{
		ID: "day-off", Title: "Extra Day Off", CoinCost: 500,
		IsActive: true, StockLimit: &stock, CurrentStock: &stock,
	}
	require.NoError(t, store.SaveBenefit(ctx, benefit))

	r1 := &redemption.Redemption{
		ID: "red-1", UserID: "emp-1", BenefitID: "day-off",
		CoinsCost: 500, Status: redemption.StatusPending, RequestedAt: now,
	}
	r2 := &redemption.Redemption{
		ID: "red-2", UserID: "emp-2", BenefitID: "day-off",
		CoinsCost: 500, Status: redemption.StatusPending, RequestedAt: now.Add(time.Minute),
	}
	require.NoError(t, store.InsertRedemption(ctx, r1))
	require.NoError(t, store.InsertRedemption(ctx, r2))

	decided := now.Add(time.Hour)
	r1.Status = redemption.StatusApproved
	r1.DecidedAt = &decided
	r1.DecidedBy = "admin-1"
	require.NoError(t, store.UpdateRedemption(ctx, r1))

	pending, err := store.RedemptionsByStatus(ctx, redemption.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "red-2", pending[0].ID)

	mine, err := store.RedemptionsByUser(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, redemption.StatusApproved, mine[0].Status)
	require.NotNil(t, mine[0].DecidedAt)
	assert.True(t, decided.Equal(*mine[0].DecidedAt))

	loaded, err := store.Benefit(ctx, "day-off")
	require.NoError(t, err)
	require.NotNil(t, loaded.CurrentStock)
	assert.Equal(t, 5, *loaded.CurrentStock)
}
