package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Materialize due recurring transactions and run alert checks",
		Long: `Run one processing pass: post every recurring transaction that has come
due (catching up on missed days), then evaluate budgets, upcoming charges,
and achievements. The pass is idempotent; running it twice posts nothing
twice.`,
		RunE: runProcess,
	}

	cmd.Flags().String("owner", "", "process a single owner instead of everyone")
	cmd.Flags().String("as-of", "", "process as of this date (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("skip-checks", false, "only materialize recurring transactions")

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	owner, _ := cmd.Flags().GetString("owner")
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	skipChecks, _ := cmd.Flags().GetBool("skip-checks")

	asOf, err := parseDateFlag(asOfFlag)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	eng, err := initEngine(store)
	if err != nil {
		return err
	}

	posted, err := eng.ProcessDue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("failed to process recurring transactions: %w", err)
	}
	slog.Info("Recurring pass complete", "posted", len(posted), "as_of", asOf.Format("2006-01-02"))

	if skipChecks {
		return nil
	}

	if owner != "" {
		created, err := eng.RunChecks(ctx, owner, asOf)
		if err != nil {
			return fmt.Errorf("failed to run checks for %s: %w", owner, err)
		}
		slog.Info("Checks complete", "owner", owner, "notifications", len(created))
		return nil
	}

	created, err := eng.RunChecksAll(ctx, asOf)
	if err != nil {
		return fmt.Errorf("failed to run checks: %w", err)
	}
	slog.Info("Checks complete", "notifications", len(created))
	return nil
}
