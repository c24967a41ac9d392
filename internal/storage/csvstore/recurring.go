package csvstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
)

// SaveRecurringDefinition inserts or replaces a recurring definition. The
// definition is validated here, so an invalid frequency never reaches the
// processor.
func (s *Store) SaveRecurringDefinition(ctx context.Context, def *model.RecurringDefinition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("recurring definition cannot be nil")
	}
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("recurring")
	if err != nil {
		return err
	}

	encoded := encodeRecurring(def)
	for i, row := range rows {
		if row[0] == def.ID {
			rows[i] = encoded
			return s.rewriteAll("recurring", rows)
		}
	}
	return s.appendRow("recurring", encoded)
}

// GetRecurringDefinitions retrieves definitions, active or not. An empty
// owner matches all owners.
func (s *Store) GetRecurringDefinitions(ctx context.Context, owner string) ([]model.RecurringDefinition, error) {
	return s.queryRecurring(ctx, owner, false)
}

// GetActiveRecurringDefinitions retrieves only active definitions, most
// overdue first.
func (s *Store) GetActiveRecurringDefinitions(ctx context.Context, owner string) ([]model.RecurringDefinition, error) {
	return s.queryRecurring(ctx, owner, true)
}

func (s *Store) queryRecurring(ctx context.Context, owner string, activeOnly bool) ([]model.RecurringDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows, err := s.readAll("recurring")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var defs []model.RecurringDefinition
	for _, row := range rows {
		def, err := decodeRecurring(row)
		if err != nil {
			return nil, err
		}
		if owner != "" && def.Owner != owner {
			continue
		}
		if activeOnly && !def.Active {
			continue
		}
		defs = append(defs, *def)
	}

	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].NextDate.Before(defs[j].NextDate)
	})
	return defs, nil
}

// UpdateRecurringNextDate advances a definition's schedule.
func (s *Store) UpdateRecurringNextDate(ctx context.Context, id string, next time.Time) error {
	return s.updateRecurringRow(ctx, id, func(row []string) {
		row[10] = formatDate(next)
	})
}

// SetRecurringActive pauses or resumes a definition.
func (s *Store) SetRecurringActive(ctx context.Context, id string, active bool) error {
	return s.updateRecurringRow(ctx, id, func(row []string) {
		row[11] = formatBool(active)
	})
}

// DeleteRecurringDefinition removes a definition entirely.
func (s *Store) DeleteRecurringDefinition(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("recurring")
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
	return s.rewriteAll("recurring", kept)
}

func (s *Store) updateRecurringRow(ctx context.Context, id string, mutate func([]string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("recurring")
	if err != nil {
		return err
	}
	for i, row := range rows {
		if row[0] == id {
			mutate(rows[i])
			return s.rewriteAll("recurring", rows)
		}
	}
	return fmt.Errorf("%s: %w", id, common.ErrNotFound)
}

func encodeRecurring(def *model.RecurringDefinition) []string {
	return []string{
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
		formatDate(def.NextDate),
		formatBool(def.Active),
		formatTimestamp(def.CreatedAt),
	}
}

func decodeRecurring(row []string) (*model.RecurringDefinition, error) {
	amount, err := decimal.NewFromString(row[5])
	if err != nil {
		return nil, fmt.Errorf("corrupt recurring amount %q: %w", row[5], err)
	}
	nextDate, err := parseDate(row[10])
	if err != nil {
		return nil, fmt.Errorf("corrupt recurring next date %q: %w", row[10], err)
	}
	createdAt, err := parseTimestamp(row[12])
	if err != nil {
		return nil, fmt.Errorf("corrupt recurring timestamp %q: %w", row[12], err)
	}

	return &model.RecurringDefinition{
		ID:          row[0],
		Owner:       row[1],
		Description: row[2],
		Merchant:    row[3],
		Category:    row[4],
		Amount:      amount,
		Type:        model.TransactionType(row[6]),
		AccountID:   row[7],
		GroupID:     row[8],
		Frequency:   model.Frequency(row[9]),
		NextDate:    nextDate,
		Active:      row[11] == "true",
		CreatedAt:   createdAt,
	}, nil
}
