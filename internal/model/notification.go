package model

import (
	"fmt"
	"time"
)

// NotificationKind identifies what triggered a notification.
type NotificationKind string

// Valid notification kinds.
const (
	KindBudgetWarning     NotificationKind = "budget_warning"
	KindBudgetCritical    NotificationKind = "budget_critical"
	KindRecurringUpcoming NotificationKind = "recurring_upcoming"
	KindRecurringDue      NotificationKind = "recurring_due"
	KindLargeTransaction  NotificationKind = "large_transaction"
	KindAchievement       NotificationKind = "achievement"
)

// Validate checks that the kind is one of the known values.
func (k NotificationKind) Validate() error {
	switch k {
	case KindBudgetWarning, KindBudgetCritical, KindRecurringUpcoming,
		KindRecurringDue, KindLargeTransaction, KindAchievement:
		return nil
	default:
		return fmt.Errorf("invalid notification kind: %q", string(k))
	}
}

// Notification is an in-app alert for one user. The (Owner, Kind, Reference,
// Period) tuple is the deduplication key: the generator never creates the
// same tuple twice, and a budget warning is upgraded in place when the same
// (owner, category, period) later crosses the critical threshold.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Owner     string
	Title     string
	Message   string
	Reference string
	Period    string
	Kind      NotificationKind
	Read      bool
	EmailSent bool
}

// MonthKey returns the dedupe period for calendar-month scoped notifications.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DateKey returns the dedupe period for occurrence-scoped notifications.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
