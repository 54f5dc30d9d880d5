package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaronwang/auction-client/api-client/internal/service"
)

var notificationsUnread bool

func notifications() *service.NotificationService {
	return service.NewNotificationService(client, cfg.NotificationInterval, logger)
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notes"},
	Short:   "Read and acknowledge notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications (* marks unread)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		notes, err := notifications().List(cmd.Context(), sess.User.Username, notificationsUnread)
		if err != nil {
			return err
		}
		printNotifications(os.Stdout, notes)
		return nil
	},
}

var notificationsUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Print the number of unread notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		count, err := notifications().UnreadCount(cmd.Context(), sess.User.Username)
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>...",
	Short: "Mark notifications as read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireSession(); err != nil {
			return err
		}
		svc := notifications()
		for _, id := range args {
			if err := svc.MarkRead(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
		}
		return nil
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		return notifications().MarkAllRead(cmd.Context(), sess.User.Username)
	},
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report the unread count whenever it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		err = notifications().WatchUnread(cmd.Context(), sess.User.Username, func(count int) {
			stamp := faintColor.Sprint(time.Now().Format("15:04:05"))
			if count == 0 {
				fmt.Printf("%s no unread notifications\n", stamp)
				return
			}
			fmt.Printf("%s %s\n", stamp, warnColor.Sprintf("%d unread", count))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	notificationsListCmd.Flags().BoolVar(&notificationsUnread, "unread", false, "only unread notifications")

	notificationsCmd.AddCommand(notificationsListCmd, notificationsUnreadCmd, notificationsReadCmd,
		notificationsReadAllCmd, notificationsWatchCmd)
	rootCmd.AddCommand(notificationsCmd)
}
