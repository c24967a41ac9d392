package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "View and acknowledge notifications",
	}

	cmd.AddCommand(notificationsListCmd())
	cmd.AddCommand(notificationsReadCmd())
	cmd.AddCommand(notificationsReadAllCmd())

	return cmd
}

func notificationsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE:  runNotificationsList,
	}

	cmd.Flags().String("owner", "", "owner of the notifications (required)")
	cmd.Flags().Bool("unread", false, "only show unread notifications")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	owner, _ := cmd.Flags().GetString("owner")
	unread, _ := cmd.Flags().GetBool("unread")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	notifications, err := store.GetNotifications(ctx, owner, unread)
	if err != nil {
		return fmt.Errorf("failed to list notifications: %w", err)
	}

	if len(notifications) == 0 {
		fmt.Println("No notifications.") //nolint:forbidigo // User-facing output
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintln(w, "ID\tKind\tMessage\tRead")
	for _, n := range notifications {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", n.ID, n.Kind, n.Message, n.Read)
	}
	return nil
}

func notificationsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
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

			if err := store.MarkNotificationRead(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to mark notification %s read: %w", args[0], err)
			}
			slog.Info("Notification marked read", "id", args[0])
			return nil
		},
	}
}

func notificationsReadAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark all of an owner's notifications as read",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			count, err := store.MarkAllNotificationsRead(ctx, owner)
			if err != nil {
				return fmt.Errorf("failed to mark notifications read: %w", err)
			}
			slog.Info("Notifications marked read", "owner", owner, "count", count)
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner of the notifications (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
