package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
)

// SaveRecurringDefinition inserts or replaces a recurring definition. The
// definition is fully validated here, so an unrecognized frequency can never
// reach the processor.
func (s *SQLiteStorage) SaveRecurringDefinition(ctx context.Context, def *model.RecurringDefinition) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecurring(def); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_definitions (
			id, owner, description, merchant, category, amount, type,
			account_id, group_id, frequency, next_date, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			merchant = excluded.merchant,
			category = excluded.category,
			amount = excluded.amount,
			type = excluded.type,
			account_id = excluded.account_id,
			group_id = excluded.group_id,
			frequency = excluded.frequency,
			next_date = excluded.next_date,
			active = excluded.active
	`,
		def.ID,
		def.Owner,
		def.Description,
		def.Merchant,
		def.Category,
		def.Amount.String(),
		string(def.Type),
		def.AccountID,
		def.GroupID,
		string(def.Frequency),
		def.NextDate,
		def.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save recurring definition %s: %w", def.ID, err)
	}
	return nil
}

const recurringColumns = `id, owner, description, merchant, category, amount, type,
	account_id, group_id, frequency, next_date, active, created_at`

// GetRecurringDefinitions retrieves definitions, active or not. An empty
// owner matches all owners.
func (s *SQLiteStorage) GetRecurringDefinitions(ctx context.Context, owner string) ([]model.RecurringDefinition, error) {
	return s.queryRecurring(ctx, owner, false)
}

// GetActiveRecurringDefinitions retrieves only active definitions, ordered by
// next date so the processor sees the most overdue first.
func (s *SQLiteStorage) GetActiveRecurringDefinitions(ctx context.Context, owner string) ([]model.RecurringDefinition, error) {
	return s.queryRecurring(ctx, owner, true)
}

func (s *SQLiteStorage) queryRecurring(ctx context.Context, owner string, activeOnly bool) ([]model.RecurringDefinition, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + recurringColumns + ` FROM recurring_definitions WHERE 1=1`
	args := make([]any, 0, 2)
	if owner != "" {
		query += " AND owner = ?"
		args = append(args, owner)
	}
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY next_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring definitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []model.RecurringDefinition
	for rows.Next() {
		def, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring definition: %w", err)
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

// UpdateRecurringNextDate advances a definition's schedule. The update is
// the processor's commit point for one occurrence: once next_date moves past
// the fired date, the occurrence is final.
func (s *SQLiteStorage) UpdateRecurringNextDate(ctx context.Context, id string, next time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET next_date = ? WHERE id = ?`, next, id)
	if err != nil {
		return fmt.Errorf("failed to update next date for %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// SetRecurringActive pauses or resumes a definition.
func (s *SQLiteStorage) SetRecurringActive(ctx context.Context, id string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to set active for %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// DeleteRecurringDefinition removes a definition entirely. Transactions
// already fired from it are unaffected.
func (s *SQLiteStorage) DeleteRecurringDefinition(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM recurring_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring definition %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

func requireRowAffected(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanRecurring(row rowScanner) (*model.RecurringDefinition, error) {
	var def model.RecurringDefinition
	var amountStr, txnType, frequency string
	var merchant, accountID, groupID sql.NullString

	err := row.Scan(
		&def.ID,
		&def.Owner,
		&def.Description,
		&merchant,
		&def.Category,
		&amountStr,
		&txnType,
		&accountID,
		&groupID,
		&frequency,
		&def.NextDate,
		&def.Active,
		&def.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amountStr, err)
	}
	def.Type = model.TransactionType(txnType)
	def.Frequency = model.Frequency(frequency)
	def.Merchant = merchant.String
	def.AccountID = accountID.String
	def.GroupID = groupID.String
	return &def, nil
}
