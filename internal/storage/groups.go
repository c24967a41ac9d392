package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
)

// SaveGroup inserts or replaces an expense-sharing group.
func (s *SQLiteStorage) SaveGroup(ctx context.Context, group *model.Group) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGroup(group); err != nil {
		return err
	}

	members, err := json.Marshal(group.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO groups (id, name, members) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, members = excluded.members
	`, group.ID, group.Name, string(members))
	if err != nil {
		return fmt.Errorf("failed to save group %s: %w", group.ID, err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStorage) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var group model.Group
	var members string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, members FROM groups WHERE id = ?`, id).
		Scan(&group.ID, &group.Name, &members)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(members), &group.Members); err != nil {
		return nil, fmt.Errorf("corrupt members for group %s: %w", id, err)
	}
	return &group, nil
}

// ListGroups retrieves every group, ordered by name.
func (s *SQLiteStorage) ListGroups(ctx context.Context) ([]model.Group, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, members FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []model.Group
	for rows.Next() {
		var group model.Group
		var members string
		if err := rows.Scan(&group.ID, &group.Name, &members); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &group.Members); err != nil {
			return nil, fmt.Errorf("corrupt members for group %s: %w", group.ID, err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// SaveSplit validates the split against the transaction's group and persists
// it, replacing any previous split for the transaction. Percentages that do
// not sum to 100 or shares for non-members are rejected at this boundary.
func (s *SQLiteStorage) SaveSplit(ctx context.Context, split *model.Split) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if split == nil {
		return fmt.Errorf("%w: split", ErrNilParameter)
	}
	if err := validateString(split.TransactionID, "transactionID"); err != nil {
		return err
	}

	txn, err := s.GetTransactionByID(ctx, split.TransactionID)
	if err != nil {
		return err
	}
	if txn.GroupID == "" {
		return fmt.Errorf("transaction %s has no group, cannot split", txn.ID)
	}
	group, err := s.GetGroup(ctx, txn.GroupID)
	if err != nil {
		return err
	}
	if err := split.Validate(group); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM splits WHERE transaction_id = ?`, split.TransactionID); err != nil {
		return fmt.Errorf("failed to clear previous split: %w", err)
	}
	for _, share := range split.Shares {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO splits (transaction_id, member, percent) VALUES (?, ?, ?)`,
			split.TransactionID, share.Member, share.Percent.String()); err != nil {
			return fmt.Errorf("failed to insert split share: %w", err)
		}
	}

	return tx.Commit()
}

// GetSplit retrieves the split for a transaction; nil when the transaction is
// not split.
func (s *SQLiteStorage) GetSplit(ctx context.Context, transactionID string) (*model.Split, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT member, percent FROM splits WHERE transaction_id = ? ORDER BY member`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query split: %w", err)
	}
	defer func() { _ = rows.Close() }()

	split := &model.Split{TransactionID: transactionID}
	for rows.Next() {
		var share model.SplitShare
		var percentStr string
		if err := rows.Scan(&share.Member, &percentStr); err != nil {
			return nil, fmt.Errorf("failed to scan split share: %w", err)
		}
		share.Percent, err = decimal.NewFromString(percentStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt percent %q: %w", percentStr, err)
		}
		split.Shares = append(split.Shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(split.Shares) == 0 {
		return nil, nil
	}
	return split, nil
}

// GetVisibleTransactions returns the member's own transactions plus any
// group transaction the member holds a split share of.
func (s *SQLiteStorage) GetVisibleTransactions(ctx context.Context, member string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(member, "member"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner = ?
		   OR id IN (SELECT transaction_id FROM splits WHERE member = ?)
		ORDER BY date DESC, created_at DESC
	`, member, member)
	if err != nil {
		return nil, fmt.Errorf("failed to query visible transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}
