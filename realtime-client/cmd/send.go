package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaronwang/auction-client/realtime-client/internal/service"
	"github.com/aaronwang/auction-client/shared/models"
)

var (
	sendUser    string
	sendAuction string
	sendTo      string
	sendWait    time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one private message and wait for the server's echo",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		content := strings.Join(args, " ")

		chat := service.NewChatService(service.ChatConfig{
			ChatURL:    cfg.ChatURL,
			BaseDelay:  cfg.ReconnectBaseDelay,
			MaxRetries: cfg.ReconnectMaxAttempts,
			Logger:     logger,
		})
		defer chat.Close()

		echoed := make(chan struct{}, 1)
		chat.SubscribeToAuction(sendAuction, func(e *models.Event) {
			if e.IsOwnMessage && e.Recipient == sendTo && e.Content == content {
				select {
				case echoed <- struct{}{}:
				default:
				}
			}
		})

		if err := chat.Connect(ctx, sendUser); err != nil {
			return fmt.Errorf("failed to connect to chat: %w", err)
		}
		if !chat.SendPrivateMessage(sendTo, content, sendAuction) {
			return errors.New("message could not be sent")
		}

		select {
		case <-echoed:
			fmt.Printf("Sent to %s in %s\n", sendTo, sendAuction)
			return nil
		case <-time.After(sendWait):
			return fmt.Errorf("no confirmation from the chat server after %s", sendWait)
		case <-ctx.Done():
			return ctx.Err()
		}
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendUser, "user", "u", "", "username to send as")
	sendCmd.Flags().StringVarP(&sendAuction, "auction", "a", "", "auction the message is about")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient username")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 5*time.Second, "how long to wait for the echo")
	_ = sendCmd.MarkFlagRequired("user")
	_ = sendCmd.MarkFlagRequired("auction")
	_ = sendCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(sendCmd)
}
