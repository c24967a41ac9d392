package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/schedule"
	"github.com/austinmedina/spendingManagement/internal/service"
)

// AlertLevel classifies a budget's utilization against the configured
// thresholds.
type AlertLevel int

// Alert levels, in increasing severity.
const (
	LevelNone AlertLevel = iota
	LevelWarning
	LevelCritical
)

func (l AlertLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "ok"
	}
}

// BudgetStatus is the evaluation result for one budget in one period.
type BudgetStatus struct {
	Budget model.Budget
	Spent  decimal.Decimal
	// Ratio is spent/limit; +Inf when the limit is zero, which always
	// evaluates as critical.
	Ratio float64
	Level AlertLevel
}

// EvaluateBudgets computes the utilization of each of the owner's budgets
// for the calendar month containing asOf. Only expense transactions count
// against a budget; amounts are summed as absolute values.
func (e *Engine) EvaluateBudgets(ctx context.Context, owner string, asOf time.Time) ([]BudgetStatus, error) {
	budgets, err := e.storage.GetBudgets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	start, end := schedule.MonthBounds(asOf)
	txns, err := e.storage.GetTransactions(ctx, service.TransactionFilter{
		Owner:     owner,
		Type:      model.TypeExpense,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	spentByCategory := make(map[string]decimal.Decimal)
	for _, txn := range txns {
		spentByCategory[txn.Category] = spentByCategory[txn.Category].Add(txn.Amount.Abs())
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	for _, budget := range budgets {
		status := BudgetStatus{
			Budget: budget,
			Spent:  spentByCategory[budget.Category],
		}
		if budget.Limit.IsZero() {
			// A zero limit cannot be created through validation but may
			// exist in pre-validation data; treat it as always blown.
			status.Ratio = math.Inf(1)
		} else {
			status.Ratio = status.Spent.Div(budget.Limit).InexactFloat64()
		}
		status.Level = e.classify(status.Ratio)
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// classify maps a utilization ratio to an alert level. Critical supersedes
// warning; only one level applies per budget per evaluation.
func (e *Engine) classify(ratio float64) AlertLevel {
	switch {
	case ratio >= e.cfg.CriticalThreshold:
		return LevelCritical
	case ratio >= e.cfg.WarningThreshold:
		return LevelWarning
	default:
		return LevelNone
	}
}
