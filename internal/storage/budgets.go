package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
)

// SaveBudget persists a budget. A second active budget for the same
// (owner, category, period) is rejected with ErrDuplicateEntry.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, owner, category, limit_amount, period, start_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		budget.ID,
		budget.Owner,
		budget.Category,
		budget.Limit.String(),
		string(budget.Period),
		budget.StartDate,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("budget for %s/%s: %w", budget.Owner, budget.Category, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save budget %s: %w", budget.ID, err)
	}
	return nil
}

// GetBudgets retrieves budgets. An empty owner matches all owners.
func (s *SQLiteStorage) GetBudgets(ctx context.Context, owner string) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, owner, category, limit_amount, period, start_date, created_at
		FROM budgets WHERE 1=1`
	args := make([]any, 0, 1)
	if owner != "" {
		query += " AND owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY category ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		var b model.Budget
		var limitStr, period string
		if err := rows.Scan(&b.ID, &b.Owner, &b.Category, &limitStr, &period, &b.StartDate, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		b.Limit, err = decimal.NewFromString(limitStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt limit %q: %w", limitStr, err)
		}
		b.Period = model.BudgetPeriod(period)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// DeleteBudget removes a budget.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}
