package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the length of a budget's evaluation window.
type BudgetPeriod string

// PeriodMonthly is the only supported period; the field exists so the stored
// shape does not change when weekly or yearly budgets are added.
const PeriodMonthly BudgetPeriod = "monthly"

// Budget is a per-category spending limit owned by one user. At most one
// active budget may exist per (owner, category, period); storage enforces it.
type Budget struct {
	StartDate time.Time
	CreatedAt time.Time
	ID        string
	Owner     string
	Category  string
	Period    BudgetPeriod
	Limit     decimal.Decimal
}

// Validate checks the invariants enforced at creation time.
func (b *Budget) Validate() error {
	if b.Owner == "" {
		return fmt.Errorf("budget missing owner")
	}
	if b.Category == "" {
		return fmt.Errorf("budget missing category")
	}
	if !b.Limit.IsPositive() {
		return fmt.Errorf("budget limit must be positive, got %s", b.Limit)
	}
	if b.Period != PeriodMonthly {
		return fmt.Errorf("unsupported budget period: %q", string(b.Period))
	}
	return nil
}
