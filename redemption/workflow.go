/*
workflow.go - Redemption lifecycle operations

PURPOSE:
  Orchestrates the request / approve / reject / fulfill lifecycle.
  Request validates everything (active, stock, balance) before any write;
  reject refunds the frozen cost and restores stock. Illegal transitions
  fail with a typed error and leave every ledger untouched.

CONCURRENCY:
  Requests lock per user (through the coin ledger's reservation) and the
  workflow's own keyed mutex per benefit, so two requests cannot both
  take the last unit of stock. Decisions lock per redemption ID, so two
  concurrent decisions on one redemption cannot both pass the PENDING
  check and double-refund.

SEE ALSO:
  - types.go: State machine and store contract
  - coins/ledger.go: Reserve / Refund
*/
package redemption

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
)

// Workflow drives redemption state transitions.
type Workflow struct {
	store         Store
	coins         *coins.Ledger
	benefitLocks  *core.KeyedMutex
	decisionLocks *core.KeyedMutex // by redemption ID
}

func NewWorkflow(store Store, coinLedger *coins.Ledger) *Workflow {
	return &Workflow{
		store:         store,
		coins:         coinLedger,
		benefitLocks:  core.NewKeyedMutex(),
		decisionLocks: core.NewKeyedMutex(),
	}
}

// =============================================================================
// REQUEST
// =============================================================================

// Request creates a PENDING redemption. Preconditions: the benefit is
// active, stock remains (if bounded), and the user's available balance
// covers the cost. The coin reservation happens before the stock
// decrement; a reservation failure leaves stock untouched. CoinsCost is
// frozen at the benefit's current price.
func (w *Workflow) Request(ctx context.Context, userID, benefitID string, at time.Time) (*Redemption, error) {
	unlock := w.benefitLocks.Lock(benefitID)
	defer unlock()

	benefit, err := w.store.Benefit(ctx, benefitID)
	if err != nil {
		return nil, err
	}
	if !benefit.IsActive {
		return nil, fmt.Errorf("benefit %s: %w", benefitID, core.ErrBenefitInactive)
	}
	if benefit.Bounded() && (benefit.CurrentStock == nil || *benefit.CurrentStock <= 0) {
		return nil, fmt.Errorf("benefit %s: %w", benefitID, core.ErrOutOfStock)
	}

	r := &Redemption{
		ID:          core.NewID("red"),
		UserID:      userID,
		BenefitID:   benefitID,
		CoinsCost:   benefit.CoinCost,
		Status:      StatusPending,
		RequestedAt: at,
	}

	if _, err := w.coins.Reserve(ctx, userID, r.CoinsCost,
		fmt.Sprintf("redemption of %s", benefit.Title), benefitID, at); err != nil {
		return nil, err
	}

	if benefit.Bounded() {
		stock := *benefit.CurrentStock - 1
		benefit.CurrentStock = &stock
		if err := w.store.SaveBenefit(ctx, benefit); err != nil {
			w.undoRequest(ctx, r, nil, at)
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	if err := w.store.InsertRedemption(ctx, r); err != nil {
		w.undoRequest(ctx, r, benefit, at)
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	return r, nil
}

// undoRequest releases a reservation whose redemption never committed.
// benefit is non-nil when the stock decrement already landed and must be
// put back.
func (w *Workflow) undoRequest(ctx context.Context, r *Redemption, benefit *Benefit, at time.Time) {
	if benefit != nil && benefit.Bounded() && benefit.CurrentStock != nil {
		stock := *benefit.CurrentStock + 1
		benefit.CurrentStock = &stock
		_ = w.store.SaveBenefit(ctx, benefit)
	}
	_, _ = w.coins.Refund(ctx, r.UserID, r.CoinsCost,
		fmt.Sprintf("redemption of %s failed", r.BenefitID), r.BenefitID, at)
}

// =============================================================================
// DECISIONS
// =============================================================================

// Approve moves PENDING -> APPROVED. Coins remain spent; no ledger change.
func (w *Workflow) Approve(ctx context.Context, redemptionID, actorID string, at time.Time) (*Redemption, error) {
	unlock := w.decisionLocks.Lock(redemptionID)
	defer unlock()

	r, err := w.store.Redemption(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, &core.StateTransitionError{
			RedemptionID: redemptionID, From: string(r.Status), To: string(StatusApproved),
		}
	}

	r.Status = StatusApproved
	r.DecidedAt = &at
	r.DecidedBy = actorID
	if err := w.store.UpdateRedemption(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Reject moves PENDING -> REJECTED, refunds the frozen cost and restores
// stock. Stock is restored even if the benefit was deactivated since the
// request.
func (w *Workflow) Reject(ctx context.Context, redemptionID, actorID, reason string, at time.Time) (*Redemption, error) {
	unlock := w.decisionLocks.Lock(redemptionID)
	defer unlock()

	r, err := w.store.Redemption(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, &core.StateTransitionError{
			RedemptionID: redemptionID, From: string(r.Status), To: string(StatusRejected),
		}
	}

	// Commit the status first so the refund can never be applied to a
	// redemption that is still PENDING for anyone else.
	r.Status = StatusRejected
	r.DecidedAt = &at
	r.DecidedBy = actorID
	r.Notes = reason
	if err := w.store.UpdateRedemption(ctx, r); err != nil {
		return nil, err
	}

	if _, err := w.coins.Refund(ctx, r.UserID, r.CoinsCost,
		fmt.Sprintf("redemption %s rejected", r.ID), r.BenefitID, at); err != nil {
		// Put the redemption back so the ledgers stay untouched.
		r.Status = StatusPending
		r.DecidedAt = nil
		r.DecidedBy = ""
		r.Notes = ""
		_ = w.store.UpdateRedemption(ctx, r)
		return nil, fmt.Errorf("refund rejected redemption: %w", err)
	}

	benefitUnlock := w.benefitLocks.Lock(r.BenefitID)
	benefit, err := w.store.Benefit(ctx, r.BenefitID)
	if err == nil && benefit.Bounded() && benefit.CurrentStock != nil {
		stock := *benefit.CurrentStock + 1
		benefit.CurrentStock = &stock
		if err := w.store.SaveBenefit(ctx, benefit); err != nil {
			benefitUnlock()
			return nil, fmt.Errorf("restore stock: %w", err)
		}
	}
	benefitUnlock()

	return r, nil
}

// Fulfill moves APPROVED -> FULFILLED.
func (w *Workflow) Fulfill(ctx context.Context, redemptionID, actorID string, at time.Time) (*Redemption, error) {
	unlock := w.decisionLocks.Lock(redemptionID)
	defer unlock()

	r, err := w.store.Redemption(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusApproved {
		return nil, &core.StateTransitionError{
			RedemptionID: redemptionID, From: string(r.Status), To: string(StatusFulfilled),
		}
	}

	r.Status = StatusFulfilled
	r.FulfilledAt = &at
	if err := w.store.UpdateRedemption(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// =============================================================================
// READS
// =============================================================================

func (w *Workflow) Redemption(ctx context.Context, id string) (*Redemption, error) {
	return w.store.Redemption(ctx, id)
}

func (w *Workflow) Pending(ctx context.Context) ([]Redemption, error) {
	return w.store.RedemptionsByStatus(ctx, StatusPending)
}

func (w *Workflow) ByUser(ctx context.Context, userID string) ([]Redemption, error) {
	return w.store.RedemptionsByUser(ctx, userID)
}

func (w *Workflow) Benefits(ctx context.Context) ([]Benefit, error) {
	return w.store.Benefits(ctx)
}

func (w *Workflow) Benefit(ctx context.Context, id string) (*Benefit, error) {
	return w.store.Benefit(ctx, id)
}

// SaveBenefit upserts a catalog item. Admin-only at the API layer.
func (w *Workflow) SaveBenefit(ctx context.Context, b *Benefit) error {
	if b.CoinCost <= 0 {
		return fmt.Errorf("benefit %s: cost must be positive: %w", b.ID, core.ErrInvalidAmount)
	}
	if b.ID == "" {
		b.ID = core.NewID("ben")
	}
	if b.StockLimit != nil && b.CurrentStock == nil {
		stock := *b.StockLimit
		b.CurrentStock = &stock
	}
	return w.store.SaveBenefit(ctx, b)
}
