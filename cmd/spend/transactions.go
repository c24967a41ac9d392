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
	"github.com/austinmedina/spendingManagement/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn"},
		Short:   "Record and list transactions",
	}

	cmd.AddCommand(transactionsAddCmd())
	cmd.AddCommand(transactionsListCmd())

	return cmd
}

func transactionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a single transaction. Identical entries (same owner, date, amount
and description) are deduplicated; unusually large expenses raise an alert.`,
		RunE: runTransactionsAdd,
	}

	cmd.Flags().String("owner", "", "owner of the transaction (required)")
	cmd.Flags().String("amount", "", "amount, e.g. 42.50 (required)")
	cmd.Flags().String("description", "", "description (required)")
	cmd.Flags().String("category", "", "spending category")
	cmd.Flags().String("merchant", "", "merchant name")
	cmd.Flags().String("date", "", "transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().String("type", "expense", "transaction type (expense, income)")
	cmd.Flags().String("account", "", "account identifier")
	cmd.Flags().String("group", "", "expense-sharing group ID")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runTransactionsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid amount %q, expected a number like 42.50", amountStr), err)
	}

	dateStr, _ := cmd.Flags().GetString("date")
	date, err := parseDateFlag(dateStr)
	if err != nil {
		return err
	}

	typeStr, _ := cmd.Flags().GetString("type")
	txnType := model.TransactionType(typeStr)
	if err := txnType.Validate(); err != nil {
		return err
	}

	owner, _ := cmd.Flags().GetString("owner")
	description, _ := cmd.Flags().GetString("description")
	category, _ := cmd.Flags().GetString("category")
	merchant, _ := cmd.Flags().GetString("merchant")
	account, _ := cmd.Flags().GetString("account")
	group, _ := cmd.Flags().GetString("group")

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

	txn := &model.Transaction{
		ID:          model.NewID(),
		Owner:       owner,
		Description: description,
		Category:    category,
		Merchant:    merchant,
		AccountID:   account,
		GroupID:     group,
		Date:        date,
		Amount:      amount,
		Type:        txnType,
	}

	created, err := eng.RecordTransaction(ctx, txn)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	if !created {
		slog.Warn("Transaction already recorded, skipping", "description", description, "date", date.Format("2006-01-02"))
		return nil
	}

	slog.Info("Transaction recorded",
		"id", txn.ID,
		"owner", owner,
		"amount", amount.StringFixed(2),
		"date", date.Format("2006-01-02"))
	return nil
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE:  runTransactionsList,
	}

	cmd.Flags().String("owner", "", "filter by owner")
	cmd.Flags().String("category", "", "filter by category")
	cmd.Flags().String("from", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "latest date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 50, "maximum rows to show")
	cmd.Flags().Bool("shared", false, "include group transactions the owner holds a split share of")

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	owner, _ := cmd.Flags().GetString("owner")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	shared, _ := cmd.Flags().GetBool("shared")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	var txns []model.Transaction
	if shared {
		if owner == "" {
			return fmt.Errorf("--shared requires --owner")
		}
		txns, err = store.GetVisibleTransactions(ctx, owner)
	} else {
		filter := service.TransactionFilter{
			Owner:    owner,
			Category: category,
			Limit:    limit,
		}
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			start, parseErr := parseDateFlag(from)
			if parseErr != nil {
				return parseErr
			}
			filter.StartDate = &start
		}
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			last, parseErr := parseDateFlag(to)
			if parseErr != nil {
				return parseErr
			}
			// The filter's end bound is exclusive; include the named day.
			end := endOfDay(last)
			filter.EndDate = &end
		}
		txns, err = store.GetTransactions(ctx, filter)
	}
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	if len(txns) == 0 {
		fmt.Println("No transactions found.") //nolint:forbidigo // User-facing output
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintln(w, "Date\tOwner\tCategory\tDescription\tAmount")
	for _, txn := range txns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			txn.Date.Format("2006-01-02"),
			txn.Owner,
			txn.Category,
			txn.Description,
			txn.Signed().StringFixed(2))
	}
	return nil
}
