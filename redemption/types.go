/*
Package redemption implements the benefit catalog and the coin-redemption
approval workflow.

STATE MACHINE:
  PENDING -> APPROVED -> FULFILLED
  PENDING -> REJECTED

  FULFILLED and REJECTED are terminal. Any other transition attempt fails
  with an InvalidStateTransition error and mutates nothing.

STOCK:
  A benefit may carry a stock limit. Stock is decremented when a
  redemption is successfully requested and restored when it is rejected,
  even if the benefit was deactivated in between.

PRICE FREEZE:
  A redemption stores the benefit's coin cost at request time. Later
  price changes never affect pending or approved redemptions; the refund
  on rejection is always the frozen cost.

SEE ALSO:
  - workflow.go: Transition operations
  - coins/ledger.go: Reserve and Refund
*/
package redemption

import (
	"context"
	"time"
)

// =============================================================================
// BENEFIT CATALOG
// =============================================================================

// Benefit is a catalog item purchasable with coins. StockLimit nil means
// unlimited; otherwise CurrentStock tracks the remaining units.
type Benefit struct {
	ID           string
	Title        string
	Description  string
	CoinCost     int64 // > 0
	Category     string
	IsActive     bool
	StockLimit   *int
	CurrentStock *int
}

// Bounded reports whether the benefit is stock-limited.
func (b Benefit) Bounded() bool { return b.StockLimit != nil }

// =============================================================================
// REDEMPTION
// =============================================================================

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusFulfilled Status = "FULFILLED"
)

// Redemption is one user's request to spend coins on a benefit.
type Redemption struct {
	ID          string
	UserID      string
	BenefitID   string
	CoinsCost   int64 // frozen at request time
	Status      Status
	RequestedAt time.Time
	DecidedAt   *time.Time
	DecidedBy   string
	FulfilledAt *time.Time
	Notes       string
}

// =============================================================================
// STORE - Persistence contract
// =============================================================================

// Store persists benefits and redemption records. Redemption history is
// kept forever; status updates are the only mutation.
type Store interface {
	// Benefit returns a catalog item, or core.ErrNotFound.
	Benefit(ctx context.Context, id string) (*Benefit, error)

	// Benefits returns the whole catalog.
	Benefits(ctx context.Context) ([]Benefit, error)

	// SaveBenefit upserts a catalog item (admin edits, stock updates).
	SaveBenefit(ctx context.Context, b *Benefit) error

	// InsertRedemption adds a new redemption record.
	InsertRedemption(ctx context.Context, r *Redemption) error

	// Redemption returns a record, or core.ErrNotFound.
	Redemption(ctx context.Context, id string) (*Redemption, error)

	// UpdateRedemption replaces an existing record (status transitions).
	UpdateRedemption(ctx context.Context, r *Redemption) error

	// RedemptionsByStatus lists records with the given status; an empty
	// status lists everything.
	RedemptionsByStatus(ctx context.Context, status Status) ([]Redemption, error)

	// RedemptionsByUser lists a user's redemption history.
	RedemptionsByUser(ctx context.Context, userID string) ([]Redemption, error)
}
