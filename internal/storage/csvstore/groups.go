package csvstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/service"
)

// Members are stored semicolon-separated, matching the original flat-file
// format; member names therefore cannot contain semicolons.
const memberSeparator = ";"

// SaveGroup inserts or replaces an expense-sharing group.
func (s *Store) SaveGroup(ctx context.Context, group *model.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if group == nil {
		return fmt.Errorf("group cannot be nil")
	}
	if group.ID == "" || group.Name == "" || len(group.Members) == 0 {
		return fmt.Errorf("group requires id, name and members")
	}
	for _, m := range group.Members {
		if strings.Contains(m, memberSeparator) {
			return fmt.Errorf("member name %q contains reserved separator", m)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("groups")
	if err != nil {
		return err
	}

	encoded := []string{group.ID, group.Name, strings.Join(group.Members, memberSeparator)}
	for i, row := range rows {
		if row[0] == group.ID {
			rows[i] = encoded
			return s.rewriteAll("groups", rows)
		}
	}
	return s.appendRow("groups", encoded)
}

// GetGroup retrieves a group by ID.
func (s *Store) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows, err := s.readAll("groups")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row[0] == id {
			return &model.Group{
				ID:      row[0],
				Name:    row[1],
				Members: strings.Split(row[2], memberSeparator),
			}, nil
		}
	}
	return nil, fmt.Errorf("group %s: %w", id, common.ErrNotFound)
}

// ListGroups retrieves every group, ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]model.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows, err := s.readAll("groups")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	groups := make([]model.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, model.Group{
			ID:      row[0],
			Name:    row[1],
			Members: strings.Split(row[2], memberSeparator),
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

// SaveSplit validates the split against the transaction's group and persists
// it, replacing any previous split for the transaction.
func (s *Store) SaveSplit(ctx context.Context, split *model.Split) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if split == nil || split.TransactionID == "" {
		return fmt.Errorf("split requires a transaction ID")
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

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("splits")
	if err != nil {
		return err
	}

	kept := rows[:0]
	for _, row := range rows {
		if row[0] != split.TransactionID {
			kept = append(kept, row)
		}
	}
	for _, share := range split.Shares {
		kept = append(kept, []string{split.TransactionID, share.Member, share.Percent.String()})
	}
	return s.rewriteAll("splits", kept)
}

// GetSplit retrieves the split for a transaction; nil when the transaction is
// not split.
func (s *Store) GetSplit(ctx context.Context, transactionID string) (*model.Split, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows, err := s.readAll("splits")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	split := &model.Split{TransactionID: transactionID}
	for _, row := range rows {
		if row[0] != transactionID {
			continue
		}
		percent, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("corrupt split percent %q: %w", row[2], err)
		}
		split.Shares = append(split.Shares, model.SplitShare{Member: row[1], Percent: percent})
	}
	if len(split.Shares) == 0 {
		return nil, nil
	}
	return split, nil
}

// GetVisibleTransactions returns the member's own transactions plus any
// group transaction the member holds a split share of.
func (s *Store) GetVisibleTransactions(ctx context.Context, member string) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	splitRows, err := s.readAll("splits")
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	shared := make(map[string]bool)
	for _, row := range splitRows {
		if row[1] == member {
			shared[row[0]] = true
		}
	}
	s.mu.Unlock()

	txns, err := s.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	var out []model.Transaction
	for _, txn := range txns {
		if txn.Owner == member || shared[txn.ID] {
			out = append(out, txn)
		}
	}
	return out, nil
}
