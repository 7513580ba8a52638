package redemption_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/redemption"
	"github.com/warp/progression-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var now = time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

func newTestWorkflow(t *testing.T) (*redemption.Workflow, *coins.Ledger, *memory.Store) {
	store := memory.New()
	coinLedger := coins.NewLedger(store)
	workflow := redemption.NewWorkflow(store, coinLedger)
	return workflow, coinLedger, store
}

func saveBenefit(t *testing.T, w *redemption.Workflow, id string, cost int64, stock *int) *redemption.Benefit {
	b := &redemption.Benefit{
		ID:         id,
		Title:      id,
		CoinCost:   cost,
		IsActive:   true,
		StockLimit: stock,
	}
	require.NoError(t, w.SaveBenefit(context.Background(), b))
	return b
}

func fund(t *testing.T, ledger *coins.Ledger, userID string, amount int64) {
	_, err := ledger.Grant(context.Background(), userID, amount, coins.TxAdminGrant, "test funding", "admin-1", now)
	require.NoError(t, err)
}

func intPtr(n int) *int { return &n }

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestRequest_HappyPath(t *testing.T) {
	// GIVEN: 500 coins and a 150-coin benefit with 1 unit of stock
	// WHEN: Requesting it
	// THEN: PENDING record with frozen cost; 350 available; stock 0

	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "day-off", 150, intPtr(1))
	fund(t, coinLedger, "emp-1", 500)

	rec, err := workflow.Request(ctx, "emp-1", "day-off", now)
	require.NoError(t, err)

	assert.Equal(t, redemption.StatusPending, rec.Status)
	assert.Equal(t, int64(150), rec.CoinsCost)
	assert.Equal(t, now, rec.RequestedAt)

	acct, _ := coinLedger.Account(ctx, "emp-1")
	assert.Equal(t, int64(350), acct.Available)
	assert.Equal(t, int64(150), acct.Spent)

	benefit, err := workflow.Benefit(ctx, "day-off")
	require.NoError(t, err)
	assert.Equal(t, 0, *benefit.CurrentStock)
}

func TestRequest_InactiveBenefit_Rejected(t *testing.T) {
	workflow, coinLedger, store := newTestWorkflow(t)
	ctx := context.Background()

	b := saveBenefit(t, workflow, "retired", 100, nil)
	b.IsActive = false
	require.NoError(t, store.SaveBenefit(ctx, b))
	fund(t, coinLedger, "emp-1", 500)

	_, err := workflow.Request(ctx, "emp-1", "retired", now)
	assert.ErrorIs(t, err, core.ErrBenefitInactive)

	acct, _ := coinLedger.Account(ctx, "emp-1")
	assert.Equal(t, int64(500), acct.Available, "no coins moved")
}

func TestRequest_OutOfStock_Rejected(t *testing.T) {
	// GIVEN: A benefit whose single unit is already reserved
	// WHEN: A second user requests it
	// THEN: Out of stock; the second user's coins are untouched

	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "conference", 100, intPtr(1))
	fund(t, coinLedger, "emp-1", 500)
	fund(t, coinLedger, "emp-2", 500)

	_, err := workflow.Request(ctx, "emp-1", "conference", now)
	require.NoError(t, err)

	_, err = workflow.Request(ctx, "emp-2", "conference", now)
	assert.ErrorIs(t, err, core.ErrOutOfStock)

	acct, _ := coinLedger.Account(ctx, "emp-2")
	assert.Equal(t, int64(500), acct.Available)
}

func TestRequest_InsufficientBalance_StockUntouched(t *testing.T) {
	// GIVEN: A 300-coin benefit and a user holding 100
	// WHEN: Requesting
	// THEN: Insufficient balance; stock was never decremented

	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "conference", 300, intPtr(5))
	fund(t, coinLedger, "emp-1", 100)

	_, err := workflow.Request(ctx, "emp-1", "conference", now)
	assert.ErrorIs(t, err, core.ErrInsufficientBalance)

	benefit, _ := workflow.Benefit(ctx, "conference")
	assert.Equal(t, 5, *benefit.CurrentStock, "reservation failed before the stock decrement")
}

func TestRequest_PriceFrozenAtRequestTime(t *testing.T) {
	// GIVEN: A pending redemption at cost 100
	// WHEN: The benefit's price rises to 999
	// THEN: The record still carries 100; a later reject refunds exactly 100

	workflow, coinLedger, store := newTestWorkflow(t)
	ctx := context.Background()

	b := saveBenefit(t, workflow, "lunch", 100, nil)
	fund(t, coinLedger, "emp-1", 500)

	rec, err := workflow.Request(ctx, "emp-1", "lunch", now)
	require.NoError(t, err)

	b.CoinCost = 999
	require.NoError(t, store.SaveBenefit(ctx, b))

	rec, err = workflow.Reject(ctx, rec.ID, "admin-1", "budget", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.CoinsCost)

	acct, _ := coinLedger.Account(ctx, "emp-1")
	assert.Equal(t, int64(500), acct.Available, "refund used the frozen cost, not the new price")
}

// =============================================================================
// DECISION TESTS
// =============================================================================

func TestApprove_KeepsCoinsSpent(t *testing.T) {
	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "lunch", 150, nil)
	fund(t, coinLedger, "emp-1", 500)

	rec, err := workflow.Request(ctx, "emp-1", "lunch", now)
	require.NoError(t, err)

	rec, err = workflow.Approve(ctx, rec.ID, "admin-1", now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, redemption.StatusApproved, rec.Status)
	assert.Equal(t, "admin-1", rec.DecidedBy)
	require.NotNil(t, rec.DecidedAt)

	acct, _ := coinLedger.Account(ctx, "emp-1")
	assert.Equal(t, int64(350), acct.Available, "approval does not move coins")
}

func TestReject_RefundsAndRestoresStock(t *testing.T) {
	// GIVEN: A pending redemption holding the last unit of stock
	// WHEN: Rejecting it
	// THEN: Coins and stock return to exactly the pre-request state

	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "day-off", 150, intPtr(1))
	fund(t, coinLedger, "emp-1", 500)

	rec, err := workflow.Request(ctx, "emp-1", "day-off", now)
	require.NoError(t, err)

	rec, err = workflow.Reject(ctx, rec.ID, "admin-1", "not this quarter", now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, redemption.StatusRejected, rec.Status)
	assert.Equal(t, "not this quarter", rec.Notes)

	acct, _ := coinLedger.Account(ctx, "emp-1")
	assert.Equal(t, int64(500), acct.Available)
	assert.Equal(t, int64(0), acct.Spent)

	benefit, _ := workflow.Benefit(ctx, "day-off")
	assert.Equal(t, 1, *benefit.CurrentStock)
}

func TestReject_RestoresStockOnDeactivatedBenefit(t *testing.T) {
	// GIVEN: The benefit was deactivated while the request sat pending
	// WHEN: Rejecting
	// THEN: Stock is still restored; inventory stays truthful for
	//       a potential reactivation

	workflow, coinLedger, store := newTestWorkflow(t)
	ctx := context.Background()

	b := saveBenefit(t, workflow, "day-off", 150, intPtr(2))
	fund(t, coinLedger, "emp-1", 500)

	rec, err := workflow.Request(ctx, "emp-1", "day-off", now)
	require.NoError(t, err)

	b, err = workflow.Benefit(ctx, "day-off")
	require.NoError(t, err)
	b.IsActive = false
	require.NoError(t, store.SaveBenefit(ctx, b))

	_, err = workflow.Reject(ctx, rec.ID, "admin-1", "", now.Add(time.Hour))
	require.NoError(t, err)

	benefit, _ := workflow.Benefit(ctx, "day-off")
	assert.Equal(t, 2, *benefit.CurrentStock)
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestTransitions_TerminalStatesAreFinal(t *testing.T) {
	// GIVEN: A rejected redemption
	// WHEN: Trying every further transition
	// THEN: Each fails with a typed error and no ledger movement

	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "lunch", 150, nil)
	fund(t, coinLedger, "emp-1", 500)

	rec, err := workflow.Request(ctx, "emp-1", "lunch", now)
	require.NoError(t, err)
	_, err = workflow.Reject(ctx, rec.ID, "admin-1", "", now)
	require.NoError(t, err)

	before, _ := coinLedger.Account(ctx, "emp-1")

	var transitionErr *core.StateTransitionError

	_, err = workflow.Approve(ctx, rec.ID, "admin-1", now)
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, string(redemption.StatusRejected), transitionErr.From)

	_, err = workflow.Reject(ctx, rec.ID, "admin-1", "", now)
	assert.ErrorIs(t, err, core.ErrInvalidStateTransition)

	_, err = workflow.Fulfill(ctx, rec.ID, "admin-1", now)
	assert.ErrorIs(t, err, core.ErrInvalidStateTransition)

	after, _ := coinLedger.Account(ctx, "emp-1")
	assert.Equal(t, before, after, "failed transitions never touch the coin ledger")
}

func TestFulfill_RequiresApproved(t *testing.T) {
	// GIVEN: A still-pending redemption
	// WHEN: Fulfilling directly
	// THEN: Rejected; PENDING -> FULFILLED is not an edge

	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "lunch", 150, nil)
	fund(t, coinLedger, "emp-1", 500)

	rec, err := workflow.Request(ctx, "emp-1", "lunch", now)
	require.NoError(t, err)

	_, err = workflow.Fulfill(ctx, rec.ID, "admin-1", now)
	assert.ErrorIs(t, err, core.ErrInvalidStateTransition)

	// Approve, then fulfill works.
	_, err = workflow.Approve(ctx, rec.ID, "admin-1", now)
	require.NoError(t, err)
	rec, err = workflow.Fulfill(ctx, rec.ID, "admin-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusFulfilled, rec.Status)
	require.NotNil(t, rec.FulfilledAt)
}

// =============================================================================
// READ AND CATALOG TESTS
// =============================================================================

func TestPendingQueue(t *testing.T) {
	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "lunch", 100, nil)
	fund(t, coinLedger, "emp-1", 500)
	fund(t, coinLedger, "emp-2", 500)

	r1, err := workflow.Request(ctx, "emp-1", "lunch", now)
	require.NoError(t, err)
	_, err = workflow.Request(ctx, "emp-2", "lunch", now.Add(time.Minute))
	require.NoError(t, err)

	pending, err := workflow.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = workflow.Approve(ctx, r1.ID, "admin-1", now.Add(time.Hour))
	require.NoError(t, err)

	pending, err = workflow.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, "emp-2", pending[0].UserID)
}

func TestSaveBenefit_Validation(t *testing.T) {
	workflow, _, _ := newTestWorkflow(t)
	ctx := context.Background()

	err := workflow.SaveBenefit(ctx, &redemption.Benefit{Title: "Free", CoinCost: 0, IsActive: true})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	b := &redemption.Benefit{Title: "Voucher", CoinCost: 50, IsActive: true, StockLimit: intPtr(3)}
	require.NoError(t, workflow.SaveBenefit(ctx, b))
	assert.NotEmpty(t, b.ID, "IDs are assigned when omitted")
	require.NotNil(t, b.CurrentStock)
	assert.Equal(t, 3, *b.CurrentStock, "stock starts at the limit")
}

// =============================================================================
// CONCURRENT DECISION TESTS
// =============================================================================

func TestReject_ConcurrentCalls_RefundOnlyOnce(t *testing.T) {
	// GIVEN: A user holding two 150-coin PENDING redemptions (spent 300)
	// WHEN: Two goroutines race Reject on the first redemption
	// THEN: Exactly one succeeds; one refund; the second redemption's
	//       reservation stays intact

	workflow, coinLedger, _ := newTestWorkflow(t)
	ctx := context.Background()

	saveBenefit(t, workflow, "day-off", 150, intPtr(5))
	fund(t, coinLedger, "emp-1", 500)

	r1, err := workflow.Request(ctx, "emp-1", "day-off", now)
	require.NoError(t, err)
	_, err = workflow.Request(ctx, "emp-1", "day-off", now.Add(time.Minute))
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := workflow.Reject(ctx, r1.ID, "admin-1", "budget", now.Add(time.Hour))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, failed int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		var stErr *core.StateTransitionError
		require.ErrorAs(t, err, &stErr)
		assert.Equal(t, string(redemption.StatusRejected), stErr.From)
	}
	assert.Equal(t, 1, succeeded, "only one decision may land")
	assert.Equal(t, 1, failed)

	acct, err := coinLedger.Account(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(350), acct.Available, "one refund of 150, not two")
	assert.Equal(t, int64(150), acct.Spent, "second redemption still reserved")

	benefit, err := workflow.Benefit(ctx, "day-off")
	require.NoError(t, err)
	assert.Equal(t, 4, *benefit.CurrentStock, "stock restored exactly once")
}

// =============================================================================
// REQUEST COMPENSATION TESTS
// =============================================================================

// faultyStore injects write failures to exercise compensation paths.
type faultyStore struct {
	redemption.Store
	failInsert bool
	failSave   bool
}

func (s *faultyStore) InsertRedemption(ctx context.Context, r *redemption.Redemption) error {
	if s.failInsert {
		return errors.New("storage unavailable")
	}
	return s.Store.InsertRedemption(ctx, r)
}

func (s *faultyStore) SaveBenefit(ctx context.Context, b *redemption.Benefit) error {
	if s.failSave {
		return errors.New("storage unavailable")
	}
	return s.Store.SaveBenefit(ctx, b)
}

func TestRequest_InsertFailure_ReleasesReservationAndStock(t *testing.T) {
	// GIVEN: A store whose redemption insert fails after reserve + decrement
	// WHEN: Requesting a benefit
	// THEN: The error surfaces; coins and stock return to their prior state

	store := memory.New()
	faulty := &faultyStore{Store: store}
	coinLedger := coins.NewLedger(store)
	workflow := redemption.NewWorkflow(faulty, coinLedger)
	ctx := context.Background()

	saveBenefit(t, workflow, "lunch", 150, intPtr(2))
	fund(t, coinLedger, "emp-1", 500)

	faulty.failInsert = true
	_, err := workflow.Request(ctx, "emp-1", "lunch", now)
	require.Error(t, err)

	acct, err := coinLedger.Account(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), acct.Available, "reservation released")
	assert.Equal(t, int64(0), acct.Spent)

	benefit, err := workflow.Benefit(ctx, "lunch")
	require.NoError(t, err)
	assert.Equal(t, 2, *benefit.CurrentStock, "stock restored")

	faulty.failInsert = false
	_, err = workflow.Request(ctx, "emp-1", "lunch", now.Add(time.Minute))
	require.NoError(t, err, "a healthy store accepts the same request")
}

func TestRequest_StockWriteFailure_ReleasesReservation(t *testing.T) {
	store := memory.New()
	faulty := &faultyStore{Store: store}
	coinLedger := coins.NewLedger(store)
	workflow := redemption.NewWorkflow(faulty, coinLedger)
	ctx := context.Background()

	saveBenefit(t, workflow, "lunch", 150, intPtr(2))
	fund(t, coinLedger, "emp-1", 500)

	faulty.failSave = true
	_, err := workflow.Request(ctx, "emp-1", "lunch", now)
	require.Error(t, err)

	acct, err := coinLedger.Account(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), acct.Available)
	assert.Equal(t, int64(0), acct.Spent)

	benefit, err := workflow.Benefit(ctx, "lunch")
	require.NoError(t, err)
	assert.Equal(t, 2, *benefit.CurrentStock, "failed decrement never landed")
}
