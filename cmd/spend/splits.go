package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/austinmedina/spendingManagement/internal/model"
)

func splitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "splits",
		Short: "Allocate group transactions among members",
		Long: `A split divides one group transaction's cost by percentage. Percentages
must sum to 100 and every share must name a member of the transaction's
group; shares replace any previous split for the transaction.`,
	}

	cmd.AddCommand(splitsSetCmd())
	cmd.AddCommand(splitsShowCmd())

	return cmd
}

func splitsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <transaction-id>",
		Short: "Set the percentage split for a group transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runSplitsSet,
	}

	cmd.Flags().StringSlice("share", nil, "member=percent pair, repeatable (e.g. --share alice=60 --share bob=40)")
	_ = cmd.MarkFlagRequired("share")

	return cmd
}

func runSplitsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	shareFlags, _ := cmd.Flags().GetStringSlice("share")
	shares, err := parseShares(shareFlags)
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

	split := &model.Split{TransactionID: args[0], Shares: shares}
	if err := store.SaveSplit(ctx, split); err != nil {
		return fmt.Errorf("failed to save split: %w", err)
	}

	slog.Info("Split saved", "transaction", args[0], "shares", len(shares))
	return nil
}

// parseShares turns repeated member=percent flags into split shares.
func parseShares(pairs []string) ([]model.SplitShare, error) {
	shares := make([]model.SplitShare, 0, len(pairs))
	for _, pair := range pairs {
		member, percentStr, ok := strings.Cut(pair, "=")
		if !ok || member == "" {
			return nil, fmt.Errorf("invalid share %q, expected member=percent", pair)
		}
		percent, err := decimal.NewFromString(percentStr)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage in share %q: %w", pair, err)
		}
		shares = append(shares, model.SplitShare{Member: member, Percent: percent})
	}
	return shares, nil
}

func splitsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <transaction-id>",
		Short: "Show a transaction's split with per-member amounts",
		Args:  cobra.ExactArgs(1),
		RunE:  runSplitsShow,
	}
}

func runSplitsShow(cmd *cobra.Command, args []string) error {
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

	txn, err := store.GetTransactionByID(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	split, err := store.GetSplit(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load split: %w", err)
	}
	if split == nil {
		fmt.Println("Transaction is not split.") //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Printf("%s: %s ($%s)\n\n", txn.Date.Format("2006-01-02"), txn.Description, txn.Amount.Abs().StringFixed(2)) //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintln(w, "Member\tPercent\tShare")
	for _, share := range split.Shares {
		fmt.Fprintf(w, "%s\t%s%%\t$%s\n",
			share.Member,
			share.Percent.StringFixed(0),
			share.ShareOf(txn.Amount.Abs()).StringFixed(2))
	}
	return nil
}
