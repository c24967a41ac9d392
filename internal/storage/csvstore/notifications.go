package csvstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
)

// SaveNotification appends a notification unless its (owner, kind, reference,
// period) tuple already exists, mirroring the dedupe constraint of the SQL
// backend.
func (s *Store) SaveNotification(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}
	if err := n.Kind.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("notifications")
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row[1] == n.Owner && row[2] == string(n.Kind) && row[5] == n.Reference && row[6] == n.Period {
			return nil
		}
	}

	return s.appendRow("notifications", []string{
		n.ID,
		n.Owner,
		string(n.Kind),
		n.Title,
		n.Message,
		n.Reference,
		n.Period,
		formatBool(n.Read),
		formatBool(n.EmailSent),
		formatTimestamp(n.CreatedAt),
	})
}

// FindNotification looks up the dedupe tuple; nil when absent.
func (s *Store) FindNotification(ctx context.Context, owner string, kind model.NotificationKind, reference, period string) (*model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows, err := s.readAll("notifications")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row[1] == owner && row[2] == string(kind) && row[5] == reference && row[6] == period {
			return decodeNotification(row)
		}
	}
	return nil, nil
}

// UpdateNotificationKind rewrites an existing notification in place, used to
// upgrade a budget warning to critical without duplicating it.
func (s *Store) UpdateNotificationKind(ctx context.Context, id string, kind model.NotificationKind, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := kind.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("notifications")
	if err != nil {
		return err
	}
	for i, row := range rows {
		if row[0] == id {
			rows[i][2] = string(kind)
			rows[i][3] = title
			rows[i][4] = message
			rows[i][7] = formatBool(false)
			return s.rewriteAll("notifications", rows)
		}
	}
	return fmt.Errorf("%s: %w", id, common.ErrNotFound)
}

// GetNotifications retrieves an owner's notifications, newest first.
func (s *Store) GetNotifications(ctx context.Context, owner string, unreadOnly bool) ([]model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows, err := s.readAll("notifications")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var notifications []model.Notification
	for _, row := range rows {
		if row[1] != owner {
			continue
		}
		if unreadOnly && row[7] == "true" {
			continue
		}
		n, err := decodeNotification(row)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// MarkNotificationRead marks a single notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	return s.updateNotificationRow(ctx, id, func(row []string) {
		row[7] = formatBool(true)
	})
}

// MarkAllNotificationsRead marks all of an owner's notifications as read and
// reports how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, owner string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("notifications")
	if err != nil {
		return 0, err
	}

	changed := 0
	for i, row := range rows {
		if row[1] == owner && row[7] != "true" {
			rows[i][7] = formatBool(true)
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, s.rewriteAll("notifications", rows)
}

// MarkNotificationEmailed records that the notification was delivered by email.
func (s *Store) MarkNotificationEmailed(ctx context.Context, id string) error {
	return s.updateNotificationRow(ctx, id, func(row []string) {
		row[8] = formatBool(true)
	})
}

func (s *Store) updateNotificationRow(ctx context.Context, id string, mutate func([]string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll("notifications")
	if err != nil {
		return err
	}
	for i, row := range rows {
		if row[0] == id {
			mutate(rows[i])
			return s.rewriteAll("notifications", rows)
		}
	}
	return fmt.Errorf("%s: %w", id, common.ErrNotFound)
}

func decodeNotification(row []string) (*model.Notification, error) {
	createdAt, err := parseTimestamp(row[9])
	if err != nil {
		return nil, fmt.Errorf("corrupt notification timestamp %q: %w", row[9], err)
	}
	return &model.Notification{
		ID:        row[0],
		Owner:     row[1],
		Kind:      model.NotificationKind(row[2]),
		Title:     row[3],
		Message:   row[4],
		Reference: row[5],
		Period:    row[6],
		Read:      row[7] == "true",
		EmailSent: row[8] == "true",
		CreatedAt: createdAt,
	}, nil
}
