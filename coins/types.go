/*
Package coins implements the coin economy: an append-only transaction log
per user plus a derived account with no-overdraft semantics.

PURPOSE:
  Coins are earned through rules and admin grants, reserved when a
  benefit redemption is requested, and refunded when a redemption is
  rejected. The transaction log is the source of truth; the account is a
  derived running sum checked against the invariant

      available == totalEarned - spent  and  available >= 0

  after every mutation, and rebuildable by replaying the log.

KEY CONCEPTS IN THIS FILE (types.go):
  - CoinTransaction: Immutable ledger entry (signed amount)
  - CoinAccount: Derived balance triple
  - Store: Persistence contract

SEE ALSO:
  - ledger.go: Grant / Reserve / Refund operations
  - redemption/workflow.go: The only caller of Reserve and Refund
*/
package coins

import (
	"context"
	"time"
)

// =============================================================================
// TRANSACTION - Append-only, immutable once written
// =============================================================================

type TransactionType string

const (
	TxEarned     TransactionType = "EARNED"      // generic earning (event rules)
	TxAdminGrant TransactionType = "ADMIN_GRANT" // manual grant by an admin
	TxRuleEarned TransactionType = "RULE_EARNED" // achievement reward fan-out
	TxSpent      TransactionType = "SPENT"       // reserved for a redemption
	TxRefund     TransactionType = "REFUND"      // rejected redemption refund
)

// CoinTransaction is one ledger entry. Amount is signed: positive for
// earnings and refunds, negative for spends. The sum of all amounts for a
// user always equals totalEarned - spent.
type CoinTransaction struct {
	ID               string
	UserID           string
	Amount           int64
	Type             TransactionType
	Reason           string
	RelatedBenefitID string
	RelatedAdminID   string
	CreatedAt        time.Time
}

// =============================================================================
// ACCOUNT - Derived balance
// =============================================================================

// CoinAccount is the derived balance triple for a user.
// Invariant: Available == TotalEarned - Spent, Available >= 0, Spent >= 0.
type CoinAccount struct {
	UserID      string
	TotalEarned int64
	Spent       int64
	Available   int64
}

// Consistent reports whether the derived fields satisfy the invariant.
func (a CoinAccount) Consistent() bool {
	return a.Available == a.TotalEarned-a.Spent && a.Available >= 0 && a.Spent >= 0
}

// =============================================================================
// STORE - Persistence contract
// =============================================================================

// Store persists coin transactions (append-only) and the derived account.
type Store interface {
	// AppendCoinTx adds a transaction. Duplicate IDs are rejected.
	AppendCoinTx(ctx context.Context, tx CoinTransaction) error

	// CoinTxs returns all transactions for a user, chronologically.
	CoinTxs(ctx context.Context, userID string) ([]CoinTransaction, error)

	// Account returns the derived account, or core.ErrNotFound if the
	// user has no coin history.
	Account(ctx context.Context, userID string) (*CoinAccount, error)

	// SaveAccount upserts the derived account.
	SaveAccount(ctx context.Context, a *CoinAccount) error
}
