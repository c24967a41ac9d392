package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/austinmedina/spendingManagement/internal/model"
)

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage expense-sharing groups",
		Long: `Groups let several people share a transaction's cost. Tag a transaction
with a group ID at entry, then allocate it with 'spend splits set'.`,
	}

	cmd.AddCommand(groupsAddCmd())
	cmd.AddCommand(groupsListCmd())

	return cmd
}

func groupsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update a group",
		RunE:  runGroupsAdd,
	}

	cmd.Flags().String("name", "", "group name (required)")
	cmd.Flags().StringSlice("members", nil, "comma-separated member names (required)")
	cmd.Flags().String("id", "", "group ID to update; omitted for a new group")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("members")

	return cmd
}

func runGroupsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	name, _ := cmd.Flags().GetString("name")
	members, _ := cmd.Flags().GetStringSlice("members")
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = model.NewID()
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

	group := &model.Group{ID: id, Name: name, Members: members}
	if err := store.SaveGroup(ctx, group); err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}

	slog.Info("Group saved", "id", id, "name", name, "members", strings.Join(members, ", "))
	return nil
}

func groupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List expense-sharing groups",
		RunE:  runGroupsList,
	}
}

func runGroupsList(cmd *cobra.Command, _ []string) error {
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

	groups, err := store.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	if len(groups) == 0 {
		fmt.Println("No groups found. Use 'spend groups add' to create one.") //nolint:forbidigo // User-facing output
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintln(w, "ID\tName\tMembers")
	for _, group := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\n", group.ID, group.Name, strings.Join(group.Members, ", "))
	}
	return nil
}
