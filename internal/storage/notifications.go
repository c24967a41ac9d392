package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/austinmedina/spendingManagement/internal/model"
)

// SaveNotification persists a notification. The (owner, kind, reference,
// period) unique constraint makes a duplicate insert a no-op, so two
// concurrent evaluation passes cannot double-notify.
func (s *SQLiteStorage) SaveNotification(ctx context.Context, n *model.Notification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNotification(n); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (
			id, owner, kind, title, message, reference, period, read, email_sent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID,
		n.Owner,
		string(n.Kind),
		n.Title,
		n.Message,
		n.Reference,
		n.Period,
		n.Read,
		n.EmailSent,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification %s: %w", n.ID, err)
	}
	return nil
}

const notificationColumns = `id, owner, kind, title, message, reference, period,
	read, email_sent, created_at`

// FindNotification looks up the dedupe tuple. It returns nil without error
// when no matching notification exists.
func (s *SQLiteStorage) FindNotification(ctx context.Context, owner string, kind model.NotificationKind, reference, period string) (*model.Notification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE owner = ? AND kind = ? AND reference = ? AND period = ?
	`, owner, string(kind), reference, period)

	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return n, nil
}

// UpdateNotificationKind rewrites an existing notification in place. Used to
// upgrade a budget warning to critical without creating a second record.
func (s *SQLiteStorage) UpdateNotificationKind(ctx context.Context, id string, kind model.NotificationKind, title, message string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := kind.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET kind = ?, title = ?, message = ?, read = 0
		WHERE id = ?
	`, string(kind), title, message, id)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// GetNotifications retrieves an owner's notifications, newest first.
func (s *SQLiteStorage) GetNotifications(ctx context.Context, owner string, unreadOnly bool) ([]model.Notification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE owner = ?`
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStorage) MarkNotificationRead(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// MarkAllNotificationsRead marks all of an owner's notifications as read and
// reports how many changed.
func (s *SQLiteStorage) MarkAllNotificationsRead(ctx context.Context, owner string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE owner = ? AND read = 0`, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read for %s: %w", owner, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read update result: %w", err)
	}
	return int(rows), nil
}

// MarkNotificationEmailed records that the notification was delivered by email.
func (s *SQLiteStorage) MarkNotificationEmailed(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET email_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s emailed: %w", id, err)
	}
	return requireRowAffected(res, id)
}

func scanNotification(row rowScanner) (*model.Notification, error) {
	var n model.Notification
	var kind string

	err := row.Scan(
		&n.ID,
		&n.Owner,
		&kind,
		&n.Title,
		&n.Message,
		&n.Reference,
		&n.Period,
		&n.Read,
		&n.EmailSent,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Kind = model.NotificationKind(kind)
	return &n, nil
}
