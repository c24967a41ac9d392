package csvstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
)

// SaveBudget appends a budget, rejecting a duplicate (owner, category,
// period) with ErrDuplicateEntry.
func (s *Store) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if budget == nil {
		return fmt.Errorf("budget cannot be nil")
	}
	if err := budget.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("budgets")
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row[1] == budget.Owner && row[2] == budget.Category && row[4] == string(budget.Period) {
			return fmt.Errorf("budget for %s/%s: %w", budget.Owner, budget.Category, common.ErrDuplicateEntry)
		}
	}

	return s.appendRow("budgets", []string{
		budget.ID,
		budget.Owner,
		budget.Category,
		budget.Limit.String(),
		string(budget.Period),
		formatDate(budget.StartDate),
		formatTimestamp(budget.CreatedAt),
	})
}

// GetBudgets retrieves budgets. An empty owner matches all owners.
func (s *Store) GetBudgets(ctx context.Context, owner string) ([]model.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows, err := s.readAll("budgets")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var budgets []model.Budget
	for _, row := range rows {
		if owner != "" && row[1] != owner {
			continue
		}
		limit, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, fmt.Errorf("corrupt budget limit %q: %w", row[3], err)
		}
		startDate, err := parseDate(row[5])
		if err != nil {
			return nil, fmt.Errorf("corrupt budget start date %q: %w", row[5], err)
		}
		createdAt, err := parseTimestamp(row[6])
		if err != nil {
			return nil, fmt.Errorf("corrupt budget timestamp %q: %w", row[6], err)
		}
		budgets = append(budgets, model.Budget{
			ID:        row[0],
			Owner:     row[1],
			Category:  row[2],
			Limit:     limit,
			Period:    model.BudgetPeriod(row[4]),
			StartDate: startDate,
			CreatedAt: createdAt,
		})
	}

	sort.SliceStable(budgets, func(i, j int) bool {
		return budgets[i].Category < budgets[j].Category
	})
	return budgets, nil
}

// DeleteBudget removes a budget.
func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("budgets")
	if err != nil {
		return err
	}

	kept := rows[:0]
	found := false
	for _, row := range rows {
		if row[0] == id {
			found = true
			continue
		}
		kept = append(kept, row)
	}
	if !found {
		return fmt.Errorf("%s: %w", id, common.ErrNotFound)
	}
	return s.rewriteAll("budgets", kept)
}
