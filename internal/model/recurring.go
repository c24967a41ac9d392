package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the cadence at which a recurring definition fires.
type Frequency string

// Valid frequencies.
const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

// Validate checks that the frequency is one of the known values. This runs at
// definition creation time; the processor assumes frequencies are valid.
func (f Frequency) Validate() error {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return nil
	default:
		return fmt.Errorf("invalid frequency: %q", string(f))
	}
}

// RecurringDefinition is a template for a transaction that auto-generates on
// a schedule. NextDate is advanced only by the processor or by explicit user
// edits; deactivated definitions are retained for history but never fire.
type RecurringDefinition struct {
	NextDate    time.Time
	CreatedAt   time.Time
	ID          string
	Owner       string
	Description string
	Merchant    string
	Category    string
	AccountID   string
	GroupID     string
	Frequency   Frequency
	Type        TransactionType
	Amount      decimal.Decimal
	Active      bool
}

// Validate checks the invariants enforced at creation time.
func (r *RecurringDefinition) Validate() error {
	if r.Owner == "" {
		return fmt.Errorf("recurring definition missing owner")
	}
	if r.Description == "" {
		return fmt.Errorf("recurring definition missing description")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("recurring definition amount must be positive, got %s", r.Amount)
	}
	if r.NextDate.IsZero() {
		return fmt.Errorf("recurring definition missing next date")
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	return r.Type.Validate()
}

// Materialize creates the transaction for one occurrence of this definition,
// stamped with the scheduled date.
func (r *RecurringDefinition) Materialize(scheduled time.Time) Transaction {
	txn := Transaction{
		ID:          NewID(),
		Description: r.Description,
		Merchant:    r.Merchant,
		Category:    r.Category,
		Date:        scheduled,
		Amount:      r.Amount,
		Type:        r.Type,
		Owner:       r.Owner,
		AccountID:   r.AccountID,
		GroupID:     r.GroupID,
		RecurringID: r.ID,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}
