package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/engine"
	"github.com/austinmedina/spendingManagement/internal/mail"
	"github.com/austinmedina/spendingManagement/internal/service"
	"github.com/austinmedina/spendingManagement/internal/storage"
	"github.com/austinmedina/spendingManagement/internal/storage/csvstore"
)

// initStorage opens the configured storage backend and runs migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	var store service.Storage
	var err error

	path := viper.GetString("storage.path")

	switch backend := viper.GetString("storage.backend"); backend {
	case "sqlite":
		if path == "" {
			path, err = defaultDataPath("spend.db")
			if err != nil {
				return nil, err
			}
		}
		store, err = storage.NewSQLiteStorage(path)
	case "csv":
		if path == "" {
			path, err = defaultDataPath("csv")
			if err != nil {
				return nil, err
			}
		}
		store, err = csvstore.New(path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func defaultDataPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".local", "share", "spend")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// initEngine builds an engine over the store with configured thresholds and,
// when email is enabled, a mailer.
func initEngine(store service.Storage) (*engine.Engine, error) {
	cfg := engine.Config{
		WarningThreshold:  viper.GetFloat64("budgets.warning_threshold"),
		CriticalThreshold: viper.GetFloat64("budgets.critical_threshold"),
		LargeMultiplier:   viper.GetFloat64("notifications.large_multiplier"),
		LargeWindow:       viper.GetInt("notifications.large_window"),
		UpcomingDays:      viper.GetInt("notifications.upcoming_days"),
		CatchUpLimit:      viper.GetInt("recurring.catch_up_limit"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := engine.NewWithConfig(store, cfg)
	if viper.GetBool("notifications.email.enabled") {
		host := viper.GetString("notifications.email.host")
		if host == "" {
			return nil, fmt.Errorf("%w: notifications.email.host", common.ErrMissingConfig)
		}
		e = e.WithMailer(mail.New(mail.Config{
			Enabled:    true,
			Host:       host,
			Port:       viper.GetInt("notifications.email.port"),
			From:       viper.GetString("notifications.email.from"),
			Username:   viper.GetString("notifications.email.username"),
			Password:   viper.GetString("notifications.email.password"),
			Recipients: viper.GetStringMapString("notifications.email.recipients"),
		}))
	}
	return e, nil
}

// endOfDay converts an inclusive day bound into the exclusive boundary the
// transaction filter expects: midnight of the following day.
func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1)
}

func firstOfCurrentMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// parseDateFlag interprets an optional YYYY-MM-DD flag, defaulting to today.
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value), err)
	}
	return t, nil
}
