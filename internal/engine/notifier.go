package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/schedule"
)

// applyBudgetStatus turns one budget evaluation into at most one persisted
// notification. The dedupe key is (owner, kind, category, month): a warning
// already present for the period suppresses another warning, and a critical
// crossing upgrades the existing warning in place instead of duplicating it.
func (e *Engine) applyBudgetStatus(ctx context.Context, status BudgetStatus, asOf time.Time) (*model.Notification, error) {
	if status.Level == LevelNone {
		return nil, nil
	}

	budget := status.Budget
	period := model.MonthKey(asOf)

	existingCritical, err := e.storage.FindNotification(ctx, budget.Owner, model.KindBudgetCritical, budget.Category, period)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing critical alert: %w", err)
	}
	if existingCritical != nil {
		return nil, nil
	}

	existingWarning, err := e.storage.FindNotification(ctx, budget.Owner, model.KindBudgetWarning, budget.Category, period)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing warning alert: %w", err)
	}

	title, message := budgetAlertText(status)

	switch status.Level {
	case LevelCritical:
		if existingWarning != nil {
			if err := e.storage.UpdateNotificationKind(ctx, existingWarning.ID, model.KindBudgetCritical, title, message); err != nil {
				return nil, fmt.Errorf("failed to upgrade budget warning: %w", err)
			}
			upgraded := *existingWarning
			upgraded.Kind = model.KindBudgetCritical
			upgraded.Title = title
			upgraded.Message = message
			upgraded.Read = false
			return &upgraded, nil
		}
		return e.createNotification(ctx, budget.Owner, model.KindBudgetCritical, title, message, budget.Category, period)
	case LevelWarning:
		if existingWarning != nil {
			return nil, nil
		}
		return e.createNotification(ctx, budget.Owner, model.KindBudgetWarning, title, message, budget.Category, period)
	default:
		return nil, nil
	}
}

func budgetAlertText(status BudgetStatus) (title, message string) {
	budget := status.Budget
	if status.Level == LevelCritical {
		title = fmt.Sprintf("Budget alert: %s", budget.Category)
	} else {
		title = fmt.Sprintf("Budget warning: %s", budget.Category)
	}
	message = fmt.Sprintf("You've used %.0f%% of your %s budget ($%s of $%s)",
		status.Ratio*100, budget.Category, status.Spent.StringFixed(2), budget.Limit.StringFixed(2))
	return title, message
}

// checkUpcoming creates one recurring_upcoming notification per occurrence
// falling within the configured window of asOf. The occurrence date is the
// dedupe period, so re-evaluating the same day or the day after never
// re-notifies for the same occurrence.
func (e *Engine) checkUpcoming(ctx context.Context, owner string, asOf time.Time) ([]model.Notification, error) {
	defs, err := e.storage.GetActiveRecurringDefinitions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring definitions: %w", err)
	}

	var created []model.Notification
	for i := range defs {
		def := &defs[i]
		days := schedule.DaysUntil(asOf, def.NextDate)
		if days < 0 || days > e.cfg.UpcomingDays {
			continue
		}

		occurrence := model.DateKey(def.NextDate)
		existing, err := e.storage.FindNotification(ctx, owner, model.KindRecurringUpcoming, def.ID, occurrence)
		if err != nil {
			return created, fmt.Errorf("failed to check for existing reminder: %w", err)
		}
		if existing != nil {
			continue
		}

		due := "today"
		if days == 1 {
			due = "tomorrow"
		} else if days > 1 {
			due = fmt.Sprintf("in %d days", days)
		}
		n, err := e.createNotification(ctx, owner, model.KindRecurringUpcoming,
			fmt.Sprintf("Upcoming: %s", def.Description),
			fmt.Sprintf("%s (%s) is due %s on %s for $%s",
				def.Description, def.Frequency, due, occurrence, def.Amount.StringFixed(2)),
			def.ID, occurrence)
		if err != nil {
			return created, err
		}
		if n != nil {
			created = append(created, *n)
		}
	}
	return created, nil
}

// checkAchievements rewards a month finished under its warning threshold.
// The previous calendar month is evaluated once per (owner, category, month);
// unused budgets with no spending at all earn nothing.
func (e *Engine) checkAchievements(ctx context.Context, owner string, asOf time.Time) ([]model.Notification, error) {
	start, _ := schedule.MonthBounds(asOf)
	prevMonth := start.AddDate(0, -1, 0)

	statuses, err := e.EvaluateBudgets(ctx, owner, prevMonth)
	if err != nil {
		return nil, err
	}

	var created []model.Notification
	period := model.MonthKey(prevMonth)
	for _, status := range statuses {
		if status.Level != LevelNone || status.Spent.IsZero() {
			continue
		}
		existing, err := e.storage.FindNotification(ctx, owner, model.KindAchievement, status.Budget.Category, period)
		if err != nil {
			return created, fmt.Errorf("failed to check for existing achievement: %w", err)
		}
		if existing != nil {
			continue
		}

		n, err := e.createNotification(ctx, owner, model.KindAchievement,
			fmt.Sprintf("Budget success: %s", status.Budget.Category),
			fmt.Sprintf("You finished %s under %.0f%% of your %s budget ($%s of $%s)",
				period, e.cfg.WarningThreshold*100, status.Budget.Category,
				status.Spent.StringFixed(2), status.Budget.Limit.StringFixed(2)),
			status.Budget.Category, period)
		if err != nil {
			return created, err
		}
		if n != nil {
			created = append(created, *n)
		}
	}
	return created, nil
}

// RecordTransaction persists a user-entered transaction and evaluates the
// large-transaction alert for it. It reports whether a new record was
// created.
func (e *Engine) RecordTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	created, err := e.storage.SaveTransaction(ctx, txn)
	if err != nil {
		return false, err
	}
	if created && txn.Type == model.TypeExpense {
		if err := e.checkLargeTransaction(ctx, txn); err != nil {
			return created, err
		}
	}
	return created, nil
}

// checkLargeTransaction alerts when an expense exceeds the configured
// multiple of the owner's trailing average expense. The average is computed
// over the most recent window excluding the transaction itself, and requires
// a minimum of five samples so a new account doesn't alert on every purchase.
func (e *Engine) checkLargeTransaction(ctx context.Context, txn *model.Transaction) error {
	recent, err := e.storage.GetRecentExpenses(ctx, txn.Owner, e.cfg.LargeWindow+1)
	if err != nil {
		return fmt.Errorf("failed to load recent expenses: %w", err)
	}

	sum := decimal.Zero
	count := 0
	for i := range recent {
		if recent[i].ID == txn.ID {
			continue
		}
		sum = sum.Add(recent[i].Amount.Abs())
		count++
		if count == e.cfg.LargeWindow {
			break
		}
	}
	if count < 5 {
		return nil
	}

	average := sum.Div(decimal.NewFromInt(int64(count)))
	threshold := average.Mul(decimal.NewFromFloat(e.cfg.LargeMultiplier))
	if !txn.Amount.Abs().GreaterThan(threshold) {
		return nil
	}

	n, err := e.createNotification(ctx, txn.Owner, model.KindLargeTransaction,
		"Large transaction detected",
		fmt.Sprintf("You spent $%s on %s, over %.1fx your average expense of $%s",
			txn.Amount.Abs().StringFixed(2), txn.Description, e.cfg.LargeMultiplier, average.StringFixed(2)),
		txn.ID, model.DateKey(txn.Date))
	if err != nil {
		return err
	}
	if n != nil {
		e.deliver(ctx, []model.Notification{*n})
	}
	return nil
}

func (e *Engine) createNotification(ctx context.Context, owner string, kind model.NotificationKind, title, message, reference, period string) (*model.Notification, error) {
	n := &model.Notification{
		ID:        model.NewID(),
		Owner:     owner,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Reference: reference,
		Period:    period,
	}
	if err := e.storage.SaveNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save %s notification: %w", kind, err)
	}
	return n, nil
}
