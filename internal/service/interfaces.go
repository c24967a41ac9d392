// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/model"
)

// TransactionFilter defines filtering options for transaction queries. Zero
// fields are ignored.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Owner     string
	Category  string
	Type      model.TransactionType
	Limit     int
}

// Storage defines the contract for the persistence layer. Two implementations
// exist: SQLite and flat CSV files, selected by configuration. Writes are
// atomic at the single-record level only; callers must not assume multi-record
// transactions.
type Storage interface {
	// Transaction operations. SaveTransaction deduplicates on the
	// transaction hash and reports whether a new record was created.
	SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetRecentExpenses(ctx context.Context, owner string, limit int) ([]model.Transaction, error)

	// Recurring definition operations. An empty owner matches all owners.
	SaveRecurringDefinition(ctx context.Context, def *model.RecurringDefinition) error
	GetRecurringDefinitions(ctx context.Context, owner string) ([]model.RecurringDefinition, error)
	GetActiveRecurringDefinitions(ctx context.Context, owner string) ([]model.RecurringDefinition, error)
	UpdateRecurringNextDate(ctx context.Context, id string, next time.Time) error
	SetRecurringActive(ctx context.Context, id string, active bool) error
	DeleteRecurringDefinition(ctx context.Context, id string) error

	// Budget operations. SaveBudget rejects a second active budget for the
	// same (owner, category, period).
	SaveBudget(ctx context.Context, budget *model.Budget) error
	GetBudgets(ctx context.Context, owner string) ([]model.Budget, error)
	DeleteBudget(ctx context.Context, id string) error

	// Group and split operations. SaveSplit validates shares against the
	// transaction's group before persisting.
	SaveGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, id string) (*model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	SaveSplit(ctx context.Context, split *model.Split) error
	GetSplit(ctx context.Context, transactionID string) (*model.Split, error)
	GetVisibleTransactions(ctx context.Context, member string) ([]model.Transaction, error)

	// Notification operations. FindNotification looks up the dedupe tuple;
	// it returns nil without error when no match exists.
	SaveNotification(ctx context.Context, n *model.Notification) error
	FindNotification(ctx context.Context, owner string, kind model.NotificationKind, reference, period string) (*model.Notification, error)
	UpdateNotificationKind(ctx context.Context, id string, kind model.NotificationKind, title, message string) error
	GetNotifications(ctx context.Context, owner string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, owner string) (int, error)
	MarkNotificationEmailed(ctx context.Context, id string) error

	// Owners returns every distinct owner with any stored data, for
	// all-owner processing passes.
	Owners(ctx context.Context) ([]string, error)

	// Reporting
	GetMonthlySummary(ctx context.Context, owner string, month time.Time) (*MonthlySummary, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// MonthlySummary aggregates one owner's activity for a calendar month.
type MonthlySummary struct {
	ByCategory    map[string]decimal.Decimal
	Month         string
	TotalExpenses decimal.Decimal
	TotalIncome   decimal.Decimal
	Net           decimal.Decimal
	Count         int
}

// MailSender delivers a rendered notification by email. Implementations must
// treat delivery as best-effort; callers never fail on a send error.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RetryOptions configures retry behavior for operations that may fail transiently.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
