package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaronwang/auction-client/realtime-client/internal/poller"
	"github.com/aaronwang/auction-client/realtime-client/internal/relay"
	"github.com/aaronwang/auction-client/realtime-client/internal/service"
	"github.com/aaronwang/auction-client/realtime-client/internal/status"
	"github.com/aaronwang/auction-client/shared/api"
	"github.com/aaronwang/auction-client/shared/models"
)

var (
	watchUser       string
	watchAuctions   []string
	watchSeller     string
	watchTo         string
	watchNoBids     bool
	watchStatusAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream chat messages and bid updates for auctions",
	Long: `Stream chat messages and bid updates for one or more auctions.

Lines typed on stdin are sent as private messages:
  hello             to the default recipient in the first auction
  @bob hello        to bob
  #AUC-2 @bob hi    to bob in auction AUC-2`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchUser, "user", "u", "", "username to chat as")
	watchCmd.Flags().StringSliceVarP(&watchAuctions, "auction", "a", nil, "auction id to follow (repeatable)")
	watchCmd.Flags().StringVar(&watchSeller, "seller", "", "follow every auction of this seller")
	watchCmd.Flags().StringVar(&watchTo, "to", "", "default recipient for typed messages")
	watchCmd.Flags().BoolVar(&watchNoBids, "no-bids", false, "do not poll for bid updates")
	watchCmd.Flags().StringVar(&watchStatusAddr, "status-addr", "", "serve the status API on this address")
	_ = watchCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client := newAPIClient()

	auctions, err := resolveAuctions(ctx, client, watchAuctions, watchSeller)
	if err != nil {
		return err
	}

	chat := service.NewChatService(service.ChatConfig{
		ChatURL:    cfg.ChatURL,
		BaseDelay:  cfg.ReconnectBaseDelay,
		MaxRetries: cfg.ReconnectMaxAttempts,
		Messages:   client,
		Relay:      relay.New(newPublisher(), logger),
		Logger:     logger,
	})
	defer chat.Close()

	out := newPrinter(os.Stdout, watchUser)
	chat.OnConnectionChange(out.connection)

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	refresh := newRefresher(refreshCtx, client, out.auction)
	defer func() {
		stopRefresh()
		refresh.wait()
	}()

	for _, id := range auctions {
		chat.SubscribeToAuction(id, func(e *models.Event) {
			if e.Kind != models.EventKindBidUpdate {
				out.message(e)
				return
			}
			out.bidUpdate(e)
			refresh.request(e.AuctionID)
		})
	}

	if err := chat.Connect(ctx, watchUser); err != nil {
		return fmt.Errorf("failed to connect to chat: %w", err)
	}

	for _, id := range auctions {
		if _, err := chat.LoadHistory(ctx, id); err != nil {
			out.systemf("[%s] could not load messages: %s", id, api.Message(err, "Failed to load messages"))
		}
		out.history(chat.Timeline(id))
	}

	if !watchNoBids {
		bids := poller.New(client, cfg.PollInterval, poller.WithLogger(logger))
		defer bids.Close()

		highest := poller.NewHighestBid()
		for _, id := range auctions {
			bids.Subscribe(id, func(e *models.Event) {
				if highest.Observe(e) {
					chat.PublishBidUpdate(e)
				}
			})
		}
	}

	statusAddr := watchStatusAddr
	if statusAddr == "" {
		statusAddr = cfg.StatusAddr
	}
	if statusAddr != "" {
		srv, hub := startStatusServer(statusAddr, chat)
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	recipient := watchTo
	if recipient == "" && len(auctions) == 1 {
		if a, err := client.GetAuction(ctx, auctions[0]); err == nil && a.SellerID != watchUser {
			recipient = a.SellerID
		}
	}
	go readInput(ctx, os.Stdin, chat, out, auctions[0], recipient)

	<-ctx.Done()
	out.systemf("shutting down")
	return nil
}

// resolveAuctions merges explicit auction ids with a seller's auctions
func resolveAuctions(ctx context.Context, client *api.Client, explicit []string, seller string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range explicit {
		add(id)
	}

	if seller != "" {
		list, err := client.SellerAuctions(ctx, seller)
		if err != nil {
			return nil, fmt.Errorf("failed to list auctions of %s: %w", seller, err)
		}
		for _, a := range list {
			add(a.AuctionID)
		}
	}

	if len(ids) == 0 {
		return nil, errors.New("no auctions to watch: pass --auction or --seller")
	}
	return ids, nil
}

func startStatusServer(addr string, chat *service.ChatService) (*http.Server, *status.Hub) {
	hub := status.NewHub(chat.Router(), logger)
	h := status.NewHandler("auction-live", chat.Router(), func() status.ConnectionInfo {
		st := chat.Status()
		return status.ConnectionInfo{State: st.State.String(), Identity: st.Identity, Attempts: st.Attempts}
	}, logger).WithStream(hub)

	srv := status.NewServer(addr, h.SetupRoutes())
	go func() {
		logger.Info().Str("addr", addr).Msg("Status API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Status API stopped")
		}
	}()
	return srv, hub
}

// outgoing is a parsed input line
type outgoing struct {
	auctionID string
	recipient string
	content   string
}

// parseInput reads "[#auction] [@recipient] content", filling in defaults
func parseInput(line, defaultAuction, defaultRecipient string) (outgoing, error) {
	msg := outgoing{auctionID: defaultAuction, recipient: defaultRecipient}
	rest := strings.TrimSpace(line)

	if strings.HasPrefix(rest, "#") {
		id, tail, _ := strings.Cut(rest[1:], " ")
		msg.auctionID = id
		rest = strings.TrimSpace(tail)
	}
	if strings.HasPrefix(rest, "@") {
		name, tail, _ := strings.Cut(rest[1:], " ")
		msg.recipient = name
		rest = strings.TrimSpace(tail)
	}
	msg.content = rest

	switch {
	case msg.content == "":
		return msg, errors.New("empty message")
	case msg.recipient == "":
		return msg, errors.New("no recipient: start the line with @name or pass --to")
	case msg.auctionID == "":
		return msg, errors.New("no auction: start the line with #auction")
	}
	return msg, nil
}

func readInput(ctx context.Context, r io.Reader, chat *service.ChatService, out *printer, defaultAuction, defaultRecipient string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		msg, err := parseInput(line, defaultAuction, defaultRecipient)
		if err != nil {
			out.systemf("%s", err)
			continue
		}
		if !chat.SendPrivateMessage(msg.recipient, msg.content, msg.auctionID) {
			out.systemf("message not sent: chat is not connected")
		}
	}
}
