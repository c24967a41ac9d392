// Package model defines the core domain entities shared across the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money leaving an account from money entering it.
type TransactionType string

// Valid transaction types.
const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// Validate checks that the type is one of the known values.
func (t TransactionType) Validate() error {
	switch t {
	case TypeExpense, TypeIncome:
		return nil
	default:
		return fmt.Errorf("invalid transaction type: %q", string(t))
	}
}

// Transaction represents a single expense or income record. Transactions are
// created either directly by a user or by the recurring processor on behalf
// of a fired RecurringDefinition (in which case RecurringID is set and Date
// carries the scheduled date, not the processing date).
type Transaction struct {
	Date         time.Time
	CreatedAt    time.Time
	ID           string
	Description  string
	Merchant     string
	Category     string
	Owner        string
	AccountID    string
	GroupID      string
	RecurringID  string
	ReceiptImage string
	Hash         string
	Type         TransactionType
	Amount       decimal.Decimal
}

// GenerateHash creates a stable hash for duplicate detection. For fired
// recurring transactions the hash is a function of the definition and the
// scheduled date, which makes reprocessing the same occurrence a no-op.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		t.Owner,
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description,
		t.RecurringID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Signed returns the amount with expenses negated, for net-flow arithmetic.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}
