package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring transaction definitions",
		Long: `Define transactions that post themselves on a schedule: rent, salary,
subscriptions. The process command materializes them when they come due.`,
	}

	cmd.AddCommand(recurringAddCmd())
	cmd.AddCommand(recurringListCmd())
	cmd.AddCommand(recurringPauseCmd())
	cmd.AddCommand(recurringResumeCmd())
	cmd.AddCommand(recurringDeleteCmd())

	return cmd
}

func recurringAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recurring definition",
		RunE:  runRecurringAdd,
	}

	cmd.Flags().String("owner", "", "owner of the definition (required)")
	cmd.Flags().String("amount", "", "amount per occurrence (required)")
	cmd.Flags().String("description", "", "description (required)")
	cmd.Flags().String("frequency", "monthly", "daily, weekly, biweekly, monthly or yearly")
	cmd.Flags().String("start", "", "first occurrence date (YYYY-MM-DD, default today)")
	cmd.Flags().String("category", "", "spending category")
	cmd.Flags().String("merchant", "", "merchant name")
	cmd.Flags().String("type", "expense", "transaction type (expense, income)")
	cmd.Flags().String("account", "", "account identifier")
	cmd.Flags().String("group", "", "expense-sharing group ID")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runRecurringAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid amount %q, expected a number like 42.50", amountStr), err)
	}

	startStr, _ := cmd.Flags().GetString("start")
	start, err := parseDateFlag(startStr)
	if err != nil {
		return err
	}

	owner, _ := cmd.Flags().GetString("owner")
	description, _ := cmd.Flags().GetString("description")
	frequency, _ := cmd.Flags().GetString("frequency")
	category, _ := cmd.Flags().GetString("category")
	merchant, _ := cmd.Flags().GetString("merchant")
	typeStr, _ := cmd.Flags().GetString("type")
	account, _ := cmd.Flags().GetString("account")
	group, _ := cmd.Flags().GetString("group")

	def := &model.RecurringDefinition{
		ID:          model.NewID(),
		Owner:       owner,
		Description: description,
		Category:    category,
		Merchant:    merchant,
		AccountID:   account,
		GroupID:     group,
		Amount:      amount,
		Type:        model.TransactionType(typeStr),
		Frequency:   model.Frequency(frequency),
		NextDate:    start,
		Active:      true,
	}
	if err := def.Validate(); err != nil {
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

	if err := store.SaveRecurringDefinition(ctx, def); err != nil {
		return fmt.Errorf("failed to save recurring definition: %w", err)
	}

	slog.Info("Recurring definition added",
		"id", def.ID,
		"description", description,
		"frequency", frequency,
		"next", start.Format("2006-01-02"))
	return nil
}

func recurringListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring definitions, soonest first",
		RunE:  runRecurringList,
	}

	cmd.Flags().String("owner", "", "filter by owner")

	return cmd
}

func runRecurringList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	owner, _ := cmd.Flags().GetString("owner")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	defs, err := store.GetRecurringDefinitions(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to list recurring definitions: %w", err)
	}

	if len(defs) == 0 {
		fmt.Println("No recurring definitions found. Use 'spend recurring add' to create one.") //nolint:forbidigo // User-facing output
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintln(w, "ID\tOwner\tDescription\tAmount\tFrequency\tNext\tActive")
	for _, def := range defs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			def.ID,
			def.Owner,
			def.Description,
			def.Amount.StringFixed(2),
			def.Frequency,
			def.NextDate.Format("2006-01-02"),
			def.Active)
	}
	return nil
}

func recurringPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Stop a definition from firing without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRecurringActive(cmd, args[0], false)
		},
	}
}

func recurringResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Reactivate a paused definition",
		Long: `Reactivate a paused definition. If its next date is in the past it will
catch up on the missed occurrences at the next processing pass; adjust the
date first with 'spend recurring add' if that is not wanted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRecurringActive(cmd, args[0], true)
		},
	}
}

func setRecurringActive(cmd *cobra.Command, id string, active bool) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	if err := store.SetRecurringActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to update definition %s: %w", id, err)
	}
	slog.Info("Recurring definition updated", "id", id, "active", active)
	return nil
}

func recurringDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recurring definition",
		Long: `Delete a recurring definition. Transactions it already posted are kept;
only future occurrences stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("failed to close storage", "error", closeErr)
				}
			}()

			if err := store.DeleteRecurringDefinition(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete definition %s: %w", args[0], err)
			}
			slog.Info("Recurring definition deleted", "id", args[0])
			return nil
		},
	}
}
