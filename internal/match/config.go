// Package match implements the tolerance-based fuzzy match engine shared by
// all reconciliation flows.
package match

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the tolerances for one matching pass. The defaults are
// policy, not physics: call sites may widen or narrow them per flow.
type Config struct {
	// AmountTolerance is the maximum absolute difference, in currency
	// units, between query and candidate amounts.
	AmountTolerance decimal.Decimal
	// DateWindowDays bounds the candidate event date to
	// [query-window, query+window].
	DateWindowDays int
	// RequireTextOverlap drops candidates whose description shares no
	// keyword with the query.
	RequireTextOverlap bool
	// SignInvariant also tests the query amount's negation, for sources
	// that record outflows with opposite sign conventions.
	SignInvariant bool
}

// DefaultConfig returns the engine-wide default tolerances.
func DefaultConfig() Config {
	return Config{
		AmountTolerance: decimal.NewFromFloat(0.01),
		DateWindowDays:  7,
		SignInvariant:   true,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance must not be negative: %s", c.AmountTolerance)
	}
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window must not be negative: %d", c.DateWindowDays)
	}
	return nil
}
