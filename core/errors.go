/*
errors.go - Centralized error types for the progression engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Bad amounts, malformed configuration
  2. Ledger errors - Balance violations, duplicate writes
  3. Workflow errors - Illegal redemption state transitions
  4. Lookup errors - Unknown users, benefits, redemptions

USAGE:
  Callers branch with errors.Is():

    if errors.Is(err, core.ErrInsufficientBalance) {
        // surface a user-facing message, no ledger was touched
    }

SEE ALSO:
  - coins/ledger.go: Uses balance errors
  - redemption/workflow.go: Uses state transition errors
  - api/handlers.go: Maps errors to HTTP status codes
*/
package core

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an XP award or coin movement has a
	// non-positive amount. Every ledger entry must move a positive quantity.
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrInsufficientBalance is returned when a coin reservation exceeds the
	// available balance. The ledger does not allow overdraft.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidStateTransition is returned when a redemption is moved along
	// an edge the state machine does not have.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrOutOfStock is returned when a stock-limited benefit is exhausted.
	ErrOutOfStock = errors.New("benefit out of stock")

	// ErrBenefitInactive is returned when redeeming a deactivated benefit.
	ErrBenefitInactive = errors.New("benefit is not active")

	// ErrInvalidAchievement is returned at configuration load for malformed
	// achievement rules (e.g., zero conditions). Never a per-request error.
	ErrInvalidAchievement = errors.New("invalid achievement configuration")

	// ErrInvalidLevelTable is returned at configuration load for malformed
	// level tables (duplicate or non-increasing thresholds).
	ErrInvalidLevelTable = errors.New("invalid level table")

	// ErrNotFound is returned when a referenced user, benefit, achievement
	// or redemption does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyUnlocked is returned by stores when recording an unlock
	// that already exists. The engine treats this as a benign no-op; it is
	// what makes unlocking idempotent under repeated evaluation.
	ErrAlreadyUnlocked = errors.New("achievement already unlocked")

	// ErrDuplicateTransaction is returned when an append-only log rejects a
	// transaction whose ID was already written.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a coin shortage.
type InsufficientBalanceError struct {
	UserID    string
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for user %s: available %d, requested %d",
		e.UserID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// StateTransitionError provides details about an illegal redemption move.
type StateTransitionError struct {
	RedemptionID string
	From         string
	To           string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("redemption %s: cannot move from %s to %s",
		e.RedemptionID, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// ReplayMismatchError reports drift between an append-only log and the
// derived table it feeds. Surfaced by the rebuild/reconciliation path.
type ReplayMismatchError struct {
	UserID string
	Field  string
	Stored int64
	Replay int64
	At     time.Time
}

func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("replay mismatch for user %s: %s stored=%d replayed=%d",
		e.UserID, e.Field, e.Stored, e.Replay)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than an internal fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrBenefitInactive)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigError returns true for errors that should abort startup rather
// than be handled per-request.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidAchievement) ||
		errors.Is(err, ErrInvalidLevelTable)
}
