package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/service"
)

// SaveTransaction persists a transaction, deduplicating on its hash. It
// reports whether a new record was created; replaying an already-persisted
// occurrence is a no-op, which is what makes the recurring processor safe to
// invoke on every request.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateTransaction(txn); err != nil {
		return false, err
	}

	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, date, description, merchant, category, amount,
			type, owner, account_id, group_id, recurring_id, receipt_image
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		txn.Hash,
		txn.Date,
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
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return rows > 0, nil
}

const transactionColumns = `id, hash, date, description, merchant, category, amount,
	type, owner, account_id, group_id, recurring_id, receipt_image, created_at`

// GetTransactions retrieves transactions matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := make([]any, 0, 6)

	if filter.Owner != "" {
		query += " AND owner = ?"
		args = append(args, filter.Owner)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += " AND date < ?"
		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return txn, nil
}

// GetRecentExpenses returns the owner's most recent expense transactions, for
// trailing-average computations.
func (s *SQLiteStorage) GetRecentExpenses(ctx context.Context, owner string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner = ? AND type = ?
		ORDER BY date DESC, created_at DESC
		LIMIT ?
	`, owner, string(model.TypeExpense), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// Owners returns every distinct owner with stored transactions, budgets, or
// recurring definitions.
func (s *SQLiteStorage) Owners(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT owner FROM transactions
		UNION SELECT owner FROM budgets
		UNION SELECT owner FROM recurring_definitions
		ORDER BY owner
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// GetMonthlySummary aggregates one owner's activity for the calendar month
// containing the given date.
func (s *SQLiteStorage) GetMonthlySummary(ctx context.Context, owner string, month time.Time) (*service.MonthlySummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, type, amount FROM transactions
		WHERE owner = ? AND date >= ? AND date < ?
	`, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := &service.MonthlySummary{
		Month:      start.Format("2006-01"),
		ByCategory: make(map[string]decimal.Decimal),
	}

	for rows.Next() {
		var category, txnType, amountStr string
		if err := rows.Scan(&category, &txnType, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amountStr, err)
		}

		summary.Count++
		if txnType == string(model.TypeExpense) {
			summary.TotalExpenses = summary.TotalExpenses.Add(amount)
			summary.ByCategory[category] = summary.ByCategory[category].Add(amount)
		} else {
			summary.TotalIncome = summary.TotalIncome.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary.Net = summary.TotalIncome.Sub(summary.TotalExpenses)
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amountStr, txnType string
	var merchant, accountID, groupID, recurringID, receiptImage sql.NullString

	err := row.Scan(
		&txn.ID,
		&txn.Hash,
		&txn.Date,
		&txn.Description,
		&merchant,
		&txn.Category,
		&amountStr,
		&txnType,
		&txn.Owner,
		&accountID,
		&groupID,
		&recurringID,
		&receiptImage,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amountStr, err)
	}
	txn.Type = model.TransactionType(txnType)
	txn.Merchant = merchant.String
	txn.AccountID = accountID.String
	txn.GroupID = groupID.String
	txn.RecurringID = recurringID.String
	txn.ReceiptImage = receiptImage.String
	return &txn, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}
