package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/notify"
)

func newNotificationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif", "n"},
		Short:   "List and acknowledge notifications",
	}
	cmd.AddCommand(
		newNotificationsListCmd(opts),
		newNotificationsAckCmd(opts),
	)
	return cmd
}

func newNotificationsListCmd(opts *rootOptions) *cobra.Command {
	var (
		unread bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications from every stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			res, err := rt.notify.Refresh(cmd.Context(), rt.streams())
			if err != nil && len(res.Items) == 0 {
				return err
			}
			for _, f := range res.Failures {
				rt.logger.Warn("stream unavailable", "stream", f.Stream.Kind, "err", f.Err)
			}

			items := res.Items
			if unread {
				items = unreadOnly(items)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderNotifications(items))
			if badge := notify.BadgeText(res.Unread); badge != "" {
				printf(cmd.OutOrStdout(), "%s unread\n", badge)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "only unread notifications")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newNotificationsAckCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "ack [unique-id...]",
		Short: "Mark notifications as read",
		Long: `Mark notifications as read.

Pass the unique ids shown by "notifications list", or --all to mark
everything currently listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("pass at least one id or --all")
			}
			rt := opts.rt
			if all {
				if _, err := rt.notify.Refresh(cmd.Context(), rt.streams()); err != nil && len(rt.notify.Items()) == 0 {
					return err
				}
				n, err := rt.notify.AcknowledgeAll(cmd.Context())
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "Marked %d notification(s) read.\n", n)
				return nil
			}

			for _, id := range args {
				if err := rt.notify.Acknowledge(cmd.Context(), id); err != nil {
					return err
				}
			}
			printf(cmd.OutOrStdout(), "Marked %d notification(s) read.\n", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "mark every notification read")
	return cmd
}

func unreadOnly(items []model.NotificationItem) []model.NotificationItem {
	var out []model.NotificationItem
	for _, it := range items {
		if !it.IsRead {
			out = append(out, it)
		}
	}
	return out
}
