package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a monthly income and spending summary",
		RunE:  runSummary,
	}

	cmd.Flags().String("owner", "", "owner to summarize (required)")
	cmd.Flags().String("month", "", "month to summarize (YYYY-MM, default current)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	owner, _ := cmd.Flags().GetString("owner")

	month := time.Now().UTC()
	if monthStr, _ := cmd.Flags().GetString("month"); monthStr != "" {
		var err error
		month, err = time.Parse("2006-01", monthStr)
		if err != nil {
			return fmt.Errorf("invalid month %q, expected YYYY-MM: %w", monthStr, err)
		}
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

	summary, err := store.GetMonthlySummary(ctx, owner, month)
	if err != nil {
		return fmt.Errorf("failed to build summary: %w", err)
	}

	fmt.Printf("Summary for %s, %s\n\n", owner, summary.Month) //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	categories := make([]string, 0, len(summary.ByCategory))
	for category := range summary.ByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Fprintf(w, "%s\t%s\n", category, summary.ByCategory[category].StringFixed(2))
	}

	fmt.Fprintf(w, "\nTransactions\t%d\n", summary.Count)
	fmt.Fprintf(w, "Total expenses\t%s\n", summary.TotalExpenses.StringFixed(2))
	fmt.Fprintf(w, "Total income\t%s\n", summary.TotalIncome.StringFixed(2))
	fmt.Fprintf(w, "Net\t%s\n", summary.Net.StringFixed(2))
	return nil
}
