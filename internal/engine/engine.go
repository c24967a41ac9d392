// Package engine implements the recurring-transaction processor, the budget
// evaluator, and the notification generator. Everything here is invoked
// synchronously by a trigger (CLI command, dashboard load, cron job) and is
// idempotent: running a pass twice with the same inputs creates no duplicate
// transactions or notifications.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/service"
)

// Config holds the tunable thresholds for the engine. Values come from
// configuration with these defaults; validation happens once at startup so
// the processing paths never see a malformed threshold.
type Config struct {
	WarningThreshold  float64
	CriticalThreshold float64
	LargeMultiplier   float64
	UpcomingDays      int
	LargeWindow       int
	CatchUpLimit      int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		WarningThreshold:  0.75,
		CriticalThreshold: 0.90,
		LargeMultiplier:   3.0,
		UpcomingDays:      3,
		LargeWindow:       50,
		CatchUpLimit:      366,
	}
}

// Validate rejects threshold combinations that would silently disable or
// misfire alerting.
func (c Config) Validate() error {
	if c.WarningThreshold <= 0 || c.WarningThreshold > 1 {
		return fmt.Errorf("%w: warning threshold %v must be in (0, 1]", common.ErrInvalidConfig, c.WarningThreshold)
	}
	if c.CriticalThreshold <= 0 || c.CriticalThreshold > 1 {
		return fmt.Errorf("%w: critical threshold %v must be in (0, 1]", common.ErrInvalidConfig, c.CriticalThreshold)
	}
	if c.WarningThreshold > c.CriticalThreshold {
		return fmt.Errorf("%w: warning threshold %v exceeds critical threshold %v",
			common.ErrInvalidConfig, c.WarningThreshold, c.CriticalThreshold)
	}
	if c.LargeMultiplier <= 0 {
		return fmt.Errorf("%w: large-transaction multiplier must be positive", common.ErrInvalidConfig)
	}
	if c.UpcomingDays < 0 {
		return fmt.Errorf("%w: upcoming window must not be negative", common.ErrInvalidConfig)
	}
	if c.CatchUpLimit <= 0 {
		return fmt.Errorf("%w: catch-up limit must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// Engine orchestrates recurring processing, budget evaluation, and
// notification generation over a Storage backend.
type Engine struct {
	storage service.Storage
	mailer  service.MailSender
	cfg     Config
}

// New creates an engine with the default configuration.
func New(storage service.Storage) *Engine {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration. The
// configuration must already be validated.
func NewWithConfig(storage service.Storage, cfg Config) *Engine {
	return &Engine{
		storage: storage,
		cfg:     cfg,
	}
}

// WithMailer attaches an optional email delivery collaborator. Send failures
// are logged and never affect notification persistence.
func (e *Engine) WithMailer(mailer service.MailSender) *Engine {
	e.mailer = mailer
	return e
}

// RunChecks performs one full evaluation pass for an owner: budget threshold
// crossings, upcoming recurring reminders, and month-close achievements. New
// or upgraded notifications are persisted, handed to the mailer when one is
// configured, and returned.
func (e *Engine) RunChecks(ctx context.Context, owner string, asOf time.Time) ([]model.Notification, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}

	var created []model.Notification

	statuses, err := e.EvaluateBudgets(ctx, owner, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate budgets: %w", err)
	}
	for _, status := range statuses {
		n, err := e.applyBudgetStatus(ctx, status, asOf)
		if err != nil {
			return created, err
		}
		if n != nil {
			created = append(created, *n)
		}
	}

	upcoming, err := e.checkUpcoming(ctx, owner, asOf)
	if err != nil {
		return created, err
	}
	created = append(created, upcoming...)

	achievements, err := e.checkAchievements(ctx, owner, asOf)
	if err != nil {
		return created, err
	}
	created = append(created, achievements...)

	e.deliver(ctx, created)

	slog.Info("Evaluation pass complete",
		"owner", owner,
		"budgets", len(statuses),
		"notifications", len(created))

	return created, nil
}

// RunChecksAll runs RunChecks for every owner with stored data. An owner's
// failure is logged and does not stop the pass for the others.
func (e *Engine) RunChecksAll(ctx context.Context, asOf time.Time) ([]model.Notification, error) {
	owners, err := e.storage.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	var all []model.Notification
	for _, owner := range owners {
		created, err := e.RunChecks(ctx, owner, asOf)
		if err != nil {
			common.LogError(err, "Evaluation pass failed", common.Fields{"owner": owner})
			continue
		}
		all = append(all, created...)
	}
	return all, nil
}

// deliver hands unread notifications to the mailer. Delivery is best-effort:
// a send failure is logged and the notification stays persisted with
// EmailSent unset.
func (e *Engine) deliver(ctx context.Context, notifications []model.Notification) {
	if e.mailer == nil {
		return
	}

	for _, n := range notifications {
		if n.EmailSent {
			continue
		}
		if err := e.mailer.Send(ctx, n.Owner, n.Title, n.Message); err != nil {
			common.LogError(err, "Failed to send notification email", common.Fields{
				"notification_id": n.ID,
				"owner":           n.Owner,
				"kind":            string(n.Kind),
			})
			continue
		}
		if err := e.storage.MarkNotificationEmailed(ctx, n.ID); err != nil {
			common.LogError(err, "Failed to record email delivery", common.Fields{
				"notification_id": n.ID,
			})
		}
	}
}
