// Package service composes the connection, decoder, router and history
// loader into the chat service used by the live client.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/realtime-client/internal/history"
	"github.com/aaronwang/auction-client/realtime-client/internal/protocol"
	"github.com/aaronwang/auction-client/realtime-client/internal/relay"
	"github.com/aaronwang/auction-client/realtime-client/internal/router"
	"github.com/aaronwang/auction-client/realtime-client/internal/websocket"
	"github.com/aaronwang/auction-client/shared/models"
)

// ChatConfig configures a ChatService
type ChatConfig struct {
	ChatURL    string
	BaseDelay  time.Duration
	MaxRetries int

	// Messages serves chat history; usually *api.Client
	Messages history.MessageSource
	// Relay, if set, receives every accepted live event
	Relay  *relay.Relay
	Logger zerolog.Logger
}

// Status is a point-in-time view of the service
type Status struct {
	State    websocket.State
	Identity string
	Attempts int
	Topics   []string
}

// ChatService is the live chat client for one user session
type ChatService struct {
	conn    *websocket.Connection
	router  *router.Router
	history *history.Reconciler
	relay   *relay.Relay
	logger  zerolog.Logger
	now     func() time.Time
}

// NewChatService wires a ChatService. Nothing connects until Connect.
func NewChatService(cfg ChatConfig) *ChatService {
	s := &ChatService{
		relay:  cfg.Relay,
		logger: cfg.Logger.With().Str("component", "chat").Logger(),
		now:    time.Now,
	}

	s.router = router.New(router.WithLogger(cfg.Logger), router.WithAcceptHook(s.relayEvent))

	wsCfg := websocket.DefaultConfig(cfg.ChatURL)
	if cfg.BaseDelay > 0 {
		wsCfg.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxRetries > 0 {
		wsCfg.MaxRetries = cfg.MaxRetries
	}
	wsCfg.QuitFrame = protocol.QuitFrame
	s.conn = websocket.NewConnection(wsCfg,
		websocket.WithLogger(cfg.Logger),
		websocket.WithFrameHandler(s.handleFrame),
	)

	if cfg.Messages != nil {
		s.history = history.NewReconciler(cfg.Messages, s.router, cfg.Logger)
	}
	return s
}

// handleFrame runs on the connection's read goroutine
func (s *ChatService) handleFrame(raw string) {
	frame, ok := protocol.Decode(raw)
	if !ok {
		s.logger.Debug().Str("frame", raw).Msg("Ignoring frame")
		return
	}
	event := frame.Event(s.conn.Identity(), s.now())
	s.router.Dispatch(event)
}

func (s *ChatService) relayEvent(e *models.Event) {
	if s.relay != nil {
		s.relay.Enqueue(e)
	}
}

// Connect opens the chat session as username
func (s *ChatService) Connect(ctx context.Context, username string) error {
	return s.conn.Connect(ctx, username)
}

// Disconnect ends the chat session without reconnecting
func (s *ChatService) Disconnect() {
	s.conn.Disconnect()
}

// IsConnected reports whether the chat socket is open
func (s *ChatService) IsConnected() bool {
	return s.conn.IsConnected()
}

// SendPrivateMessage sends content to recipient within auctionID. It
// reports false if the message is malformed or the socket is not open.
func (s *ChatService) SendPrivateMessage(recipient, content, auctionID string) bool {
	frame, err := protocol.PrivateMessage(recipient, auctionID, content)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Refusing to send message")
		return false
	}
	return s.conn.Send(frame)
}

// SubscribeToAuction registers h for messages and bid updates on auctionID
func (s *ChatService) SubscribeToAuction(auctionID string, h router.Handler) (unsubscribe func()) {
	return s.router.Subscribe(auctionID, h)
}

// PublishBidUpdate routes a bid update into its auction's topic so chat
// subscribers, the relay and stream clients see it alongside messages
func (s *ChatService) PublishBidUpdate(e *models.Event) bool {
	if e == nil || e.Kind != models.EventKindBidUpdate {
		return false
	}
	return s.router.Dispatch(e)
}

// OnConnectionChange registers fn for connection open/close transitions
func (s *ChatService) OnConnectionChange(fn func(connected bool)) (unsubscribe func()) {
	return s.conn.OnStateChange(fn)
}

// LoadHistory seeds auctionID with persisted messages for the current
// identity. It is safe to call repeatedly.
func (s *ChatService) LoadHistory(ctx context.Context, auctionID string) (int, error) {
	if s.history == nil {
		s.router.MarkLoaded(auctionID, nil)
		return 0, nil
	}
	return s.history.Load(ctx, auctionID, s.conn.Identity())
}

// Timeline returns the visible events of auctionID
func (s *ChatService) Timeline(auctionID string) router.Timeline {
	return s.router.Timeline(auctionID)
}

// Router exposes the router for read-only consumers such as the status API
func (s *ChatService) Router() *router.Router {
	return s.router
}

// Status reports the connection and topic state
func (s *ChatService) Status() Status {
	return Status{
		State:    s.conn.State(),
		Identity: s.conn.Identity(),
		Attempts: s.conn.Attempts(),
		Topics:   s.router.Topics(),
	}
}

// Close disconnects and flushes the relay
func (s *ChatService) Close() error {
	s.conn.Disconnect()
	if s.relay != nil {
		return s.relay.Close()
	}
	return nil
}
