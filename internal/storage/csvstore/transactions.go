package csvstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/service"
)

// SaveTransaction appends a transaction unless a row with the same hash
// already exists. Reports whether a new record was created.
func (s *Store) SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if txn == nil {
		return false, fmt.Errorf("transaction cannot be nil")
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("transactions")
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row[1] == txn.Hash {
			return false, nil
		}
	}

	return true, s.appendRow("transactions", encodeTransaction(txn))
}

// GetTransactions retrieves transactions matching the filter, newest first.
func (s *Store) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	txns, err := s.loadTransactions()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []model.Transaction
	for _, txn := range txns {
		if filter.Owner != "" && txn.Owner != filter.Owner {
			continue
		}
		if filter.Category != "" && txn.Category != filter.Category {
			continue
		}
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		if filter.StartDate != nil && txn.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && !txn.Date.Before(*filter.EndDate) {
			continue
		}
		out = append(out, txn)
	}

	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetTransactionByID retrieves a single transaction.
func (s *Store) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	txns, err := s.loadTransactions()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for i := range txns {
		if txns[i].ID == id {
			return &txns[i], nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
}

// GetRecentExpenses returns the owner's most recent expenses.
func (s *Store) GetRecentExpenses(ctx context.Context, owner string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.GetTransactions(ctx, service.TransactionFilter{
		Owner: owner,
		Type:  model.TypeExpense,
		Limit: limit,
	})
}

// Owners returns every distinct owner with stored data.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	txnRows, err := s.readAll("transactions")
	if err != nil {
		return nil, err
	}
	for _, row := range txnRows {
		seen[row[8]] = true
	}
	budgetRows, err := s.readAll("budgets")
	if err != nil {
		return nil, err
	}
	for _, row := range budgetRows {
		seen[row[1]] = true
	}
	recurringRows, err := s.readAll("recurring")
	if err != nil {
		return nil, err
	}
	for _, row := range recurringRows {
		seen[row[1]] = true
	}

	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}

// GetMonthlySummary aggregates one owner's activity for the calendar month
// containing the given date.
func (s *Store) GetMonthlySummary(ctx context.Context, owner string, month time.Time) (*service.MonthlySummary, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	txns, err := s.GetTransactions(ctx, service.TransactionFilter{
		Owner:     owner,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, err
	}

	summary := &service.MonthlySummary{
		Month:      start.Format("2006-01"),
		ByCategory: make(map[string]decimal.Decimal),
	}
	for _, txn := range txns {
		summary.Count++
		if txn.Type == model.TypeExpense {
			summary.TotalExpenses = summary.TotalExpenses.Add(txn.Amount)
			summary.ByCategory[txn.Category] = summary.ByCategory[txn.Category].Add(txn.Amount)
		} else {
			summary.TotalIncome = summary.TotalIncome.Add(txn.Amount)
		}
	}
	summary.Net = summary.TotalIncome.Sub(summary.TotalExpenses)
	return summary, nil
}

func (s *Store) loadTransactions() ([]model.Transaction, error) {
	rows, err := s.readAll("transactions")
	if err != nil {
		return nil, err
	}
	txns := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		txn, err := decodeTransaction(row)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, nil
}

func sortNewestFirst(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
}

func encodeTransaction(txn *model.Transaction) []string {
	return []string{
		txn.ID,
		txn.Hash,
		formatDate(txn.Date),
		txn.Description,
		txn.Merchant,
		txn.Category,
		txn.Amount.String(),
		string(txn.Type),
		txn.Owner,
		txn.AccountID,
		txn.GroupID,
		txn.RecurringID,
		txn.ReceiptImage,
		formatTimestamp(txn.CreatedAt),
	}
}

func decodeTransaction(row []string) (*model.Transaction, error) {
	date, err := parseDate(row[2])
	if err != nil {
		return nil, fmt.Errorf("corrupt transaction date %q: %w", row[2], err)
	}
	amount, err := decimal.NewFromString(row[6])
	if err != nil {
		return nil, fmt.Errorf("corrupt transaction amount %q: %w", row[6], err)
	}
	createdAt, err := parseTimestamp(row[13])
	if err != nil {
		return nil, fmt.Errorf("corrupt transaction timestamp %q: %w", row[13], err)
	}

	return &model.Transaction{
		ID:           row[0],
		Hash:         row[1],
		Date:         date,
		Description:  row[3],
		Merchant:     row[4],
		Category:     row[5],
		Amount:       amount,
		Type:         model.TransactionType(row[7]),
		Owner:        row[8],
		AccountID:    row[9],
		GroupID:      row[10],
		RecurringID:  row[11],
		ReceiptImage: row[12],
		CreatedAt:    createdAt,
	}, nil
}
