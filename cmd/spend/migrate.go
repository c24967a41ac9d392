package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/austinmedina/spendingManagement/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run storage migrations",
		Long: `Initialize or update the storage schema to the latest version. For the
CSV backend this creates any missing entity files.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	slog.Info("Running storage migrations",
		"backend", viper.GetString("storage.backend"),
		"latest_version", storage.ExpectedSchemaVersion)

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	slog.Info("Storage migrations completed")
	return nil
}
