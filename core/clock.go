/*
clock.go - Injected time and calendar helpers

PURPOSE:
  Every ledger operation takes its notion of "now" from an injected Clock
  rather than calling time.Now() directly. Quarter rollover and streak
  breaks are derived lazily from the supplied time, which makes them
  deterministic and testable without touching the system clock.

CALENDAR RULES:
  - Days are compared by calendar day in UTC, not wall-clock instants.
  - Quarters are keyed "YYYY-Q#" (e.g., "2026-Q3"), UTC calendar quarters.

SEE ALSO:
  - progression/ledger.go: Streak day arithmetic and quarterly rollover
*/
package core

import (
	"fmt"
	"time"
)

// Clock supplies the current time. Production uses SystemClock; tests use
// a fixed or stepping clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. For tests.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// DayOf truncates a time to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

// NextDay reports whether b is exactly one calendar day after a.
func NextDay(a, b time.Time) bool {
	return DayOf(a).AddDate(0, 0, 1).Equal(DayOf(b))
}

// QuarterKey returns the "YYYY-Q#" bucket key for an instant.
func QuarterKey(t time.Time) string {
	u := t.UTC()
	q := (int(u.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", u.Year(), q)
}
