/*
ledger.go - Coin ledger operations

PURPOSE:
  Grant, Reserve and Refund are the only ways coin balances move. Each
  validates the balance invariant BEFORE appending; an operation that
  would violate it is rejected with no write (no write-then-rollback).

CONCURRENCY:
  Mutations lock the user's keyed mutex, so two concurrent reservations
  for one user cannot both pass the available >= amount check.

SEE ALSO:
  - types.go: Transaction and account types
  - redemption/workflow.go: Reserve/Refund caller
*/
package coins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/progression-engine/core"
)

// Ledger mutates and reads coin state.
type Ledger struct {
	store Store
	locks *core.KeyedMutex
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, locks: core.NewKeyedMutex()}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Grant credits coins to a user. Used for admin grants (txType
// TxAdminGrant), achievement rewards (TxRuleEarned) and rule earnings
// (TxEarned). Increases TotalEarned and Available.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int64, txType TransactionType, reason, actorID string, at time.Time) (*CoinTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("grant of %d coins: %w", amount, core.ErrInvalidAmount)
	}
	switch txType {
	case TxEarned, TxAdminGrant, TxRuleEarned:
	default:
		return nil, fmt.Errorf("grant with transaction type %q: %w", txType, core.ErrInvalidAmount)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	acct, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx := CoinTransaction{
		ID:             core.NewID("coin"),
		UserID:         userID,
		Amount:         amount,
		Type:           txType,
		Reason:         reason,
		RelatedAdminID: actorID,
		CreatedAt:      at,
	}
	if err := l.store.AppendCoinTx(ctx, tx); err != nil {
		return nil, err
	}

	acct.TotalEarned += amount
	acct.Available += amount
	if err := l.saveChecked(ctx, acct); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Reserve debits coins for a benefit purchase attempt. Fails with
// InsufficientBalance before anything is written if the available
// balance does not cover the amount.
func (l *Ledger) Reserve(ctx context.Context, userID string, amount int64, reason, relatedBenefitID string, at time.Time) (*CoinTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("reserve of %d coins: %w", amount, core.ErrInvalidAmount)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	acct, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct.Available < amount {
		return nil, &core.InsufficientBalanceError{
			UserID:    userID,
			Available: acct.Available,
			Requested: amount,
		}
	}

	tx := CoinTransaction{
		ID:               core.NewID("coin"),
		UserID:           userID,
		Amount:           -amount,
		Type:             TxSpent,
		Reason:           reason,
		RelatedBenefitID: relatedBenefitID,
		CreatedAt:        at,
	}
	if err := l.store.AppendCoinTx(ctx, tx); err != nil {
		return nil, err
	}

	acct.Spent += amount
	acct.Available -= amount
	if err := l.saveChecked(ctx, acct); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Refund returns previously reserved coins. The amount is always the
// frozen cost of an originating redemption record, never a bare number
// from the caller, so Spent can never be pushed below zero; the guard
// here catches a corrupted derived table, not a legal call.
func (l *Ledger) Refund(ctx context.Context, userID string, amount int64, reason, relatedBenefitID string, at time.Time) (*CoinTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund of %d coins: %w", amount, core.ErrInvalidAmount)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	acct, err := l.store.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct.Spent < amount {
		return nil, fmt.Errorf("refund of %d coins would push spent (%d) below zero: %w",
			amount, acct.Spent, core.ErrInvalidAmount)
	}

	tx := CoinTransaction{
		ID:               core.NewID("coin"),
		UserID:           userID,
		Amount:           amount,
		Type:             TxRefund,
		Reason:           reason,
		RelatedBenefitID: relatedBenefitID,
		CreatedAt:        at,
	}
	if err := l.store.AppendCoinTx(ctx, tx); err != nil {
		return nil, err
	}

	acct.Spent -= amount
	acct.Available += amount
	if err := l.saveChecked(ctx, acct); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// READS
// =============================================================================

// Account returns the derived account for a user. Users with no coin
// history get a zero account rather than an error.
func (l *Ledger) Account(ctx context.Context, userID string) (*CoinAccount, error) {
	acct, err := l.store.Account(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return &CoinAccount{UserID: userID}, nil
	}
	return acct, err
}

// Transactions returns the user's coin transaction history.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]CoinTransaction, error) {
	return l.store.CoinTxs(ctx, userID)
}

// =============================================================================
// REPLAY / RECONCILIATION
// =============================================================================

// Rebuild replays the transaction log into a fresh account and saves it,
// reporting any drift against the stored record. The replayed values win.
func (l *Ledger) Rebuild(ctx context.Context, userID string) (*CoinAccount, []core.ReplayMismatchError, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	stored, err := l.store.Account(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, nil, err
	}

	txs, err := l.store.CoinTxs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	rebuilt := &CoinAccount{UserID: userID}
	for _, tx := range txs {
		switch tx.Type {
		case TxEarned, TxAdminGrant, TxRuleEarned:
			rebuilt.TotalEarned += tx.Amount
			rebuilt.Available += tx.Amount
		case TxSpent:
			rebuilt.Spent += -tx.Amount
			rebuilt.Available += tx.Amount
		case TxRefund:
			rebuilt.Spent -= tx.Amount
			rebuilt.Available += tx.Amount
		}
	}

	var drift []core.ReplayMismatchError
	if stored != nil {
		for _, f := range []struct {
			name           string
			stored, replay int64
		}{
			{"total_earned", stored.TotalEarned, rebuilt.TotalEarned},
			{"spent", stored.Spent, rebuilt.Spent},
			{"available", stored.Available, rebuilt.Available},
		} {
			if f.stored != f.replay {
				drift = append(drift, core.ReplayMismatchError{
					UserID: userID, Field: f.name, Stored: f.stored, Replay: f.replay,
				})
			}
		}
	}

	if err := l.saveChecked(ctx, rebuilt); err != nil {
		return nil, nil, err
	}
	return rebuilt, drift, nil
}

// =============================================================================
// INTERNAL
// =============================================================================

func (l *Ledger) loadOrCreate(ctx context.Context, userID string) (*CoinAccount, error) {
	acct, err := l.store.Account(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return &CoinAccount{UserID: userID}, nil
	}
	return acct, err
}

// saveChecked enforces the account invariant on every write path.
func (l *Ledger) saveChecked(ctx context.Context, acct *CoinAccount) error {
	if !acct.Consistent() {
		return fmt.Errorf("account invariant violated for user %s (earned=%d spent=%d available=%d)",
			acct.UserID, acct.TotalEarned, acct.Spent, acct.Available)
	}
	return l.store.SaveAccount(ctx, acct)
}
