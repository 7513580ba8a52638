package core

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a prefixed unique identifier, e.g. "xp-7f3c...".
// Prefixes keep IDs self-describing in logs and ledger dumps.
func NewID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
