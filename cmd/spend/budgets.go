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

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage monthly category budgets",
	}

	cmd.AddCommand(budgetsSetCmd())
	cmd.AddCommand(budgetsListCmd())
	cmd.AddCommand(budgetsDeleteCmd())

	return cmd
}

func budgetsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create a monthly budget for a category",
		RunE:  runBudgetsSet,
	}

	cmd.Flags().String("owner", "", "owner of the budget (required)")
	cmd.Flags().String("category", "", "spending category (required)")
	cmd.Flags().String("limit", "", "monthly limit, e.g. 400 (required)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("limit")

	return cmd
}

func runBudgetsSet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	limitStr, _ := cmd.Flags().GetString("limit")
	limit, err := decimal.NewFromString(limitStr)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid limit %q, expected a number like 400", limitStr), err)
	}

	owner, _ := cmd.Flags().GetString("owner")
	category, _ := cmd.Flags().GetString("category")

	budget := &model.Budget{
		ID:        model.NewID(),
		Owner:     owner,
		Category:  category,
		Limit:     limit,
		Period:    model.PeriodMonthly,
		StartDate: firstOfCurrentMonth(),
	}
	if err := budget.Validate(); err != nil {
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

	if err := store.SaveBudget(ctx, budget); err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}

	slog.Info("Budget set", "owner", owner, "category", category, "limit", limit.StringFixed(2))
	return nil
}

func budgetsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets with current-month utilization",
		RunE:  runBudgetsList,
	}

	cmd.Flags().String("owner", "", "owner of the budgets (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runBudgetsList(cmd *cobra.Command, _ []string) error {
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

	eng, err := initEngine(store)
	if err != nil {
		return err
	}

	asOf, err := parseDateFlag("")
	if err != nil {
		return err
	}
	statuses, err := eng.EvaluateBudgets(ctx, owner, asOf)
	if err != nil {
		return fmt.Errorf("failed to evaluate budgets: %w", err)
	}

	if len(statuses) == 0 {
		fmt.Println("No budgets found. Use 'spend budgets set' to create one.") //nolint:forbidigo // User-facing output
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintln(w, "Category\tLimit\tSpent\tUsed\tStatus")
	for _, status := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%s\n",
			status.Budget.Category,
			status.Budget.Limit.StringFixed(2),
			status.Spent.StringFixed(2),
			status.Ratio*100,
			status.Level.String())
	}
	return nil
}

func budgetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
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

			if err := store.DeleteBudget(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete budget %s: %w", args[0], err)
			}
			slog.Info("Budget deleted", "id", args[0])
			return nil
		},
	}
}
