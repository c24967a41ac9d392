// Package storage provides the data persistence layer for the application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/austinmedina/spendingManagement/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidRecurring    = errors.New("invalid recurring definition")
	ErrInvalidBudget       = errors.New("invalid budget")
	ErrInvalidGroup        = errors.New("invalid group")
	ErrInvalidNotification = errors.New("invalid notification")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Owner == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidTransaction)
	}
	if err := txn.Type.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

// validateRecurring validates a recurring definition, including its frequency.
// An invalid frequency is a configuration error and must never reach the
// processor.
func validateRecurring(def *model.RecurringDefinition) error {
	if def == nil {
		return fmt.Errorf("%w: recurring definition", ErrNilParameter)
	}
	if def.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRecurring)
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecurring, err)
	}
	return nil
}

// validateBudget validates a budget.
func validateBudget(budget *model.Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if budget.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidBudget)
	}
	if err := budget.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBudget, err)
	}
	return nil
}

// validateGroup validates a group.
func validateGroup(group *model.Group) error {
	if group == nil {
		return fmt.Errorf("%w: group", ErrNilParameter)
	}
	if group.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidGroup)
	}
	if group.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidGroup)
	}
	if len(group.Members) == 0 {
		return fmt.Errorf("%w: no members", ErrInvalidGroup)
	}
	return nil
}

// validateNotification validates a notification.
func validateNotification(n *model.Notification) error {
	if n == nil {
		return fmt.Errorf("%w: notification", ErrNilParameter)
	}
	if n.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidNotification)
	}
	if n.Owner == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidNotification)
	}
	if err := n.Kind.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	return nil
}
