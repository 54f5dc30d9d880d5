// Package websocket maintains the client's single connection to the chat
// server: identity handshake, keep-alive and linear-backoff reconnection.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Connection
type State int

// State constants
const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ErrSuperseded is returned by Connect when a Disconnect or another
// Connect replaced the attempt before it completed
var ErrSuperseded = errors.New("connection attempt superseded")

// FrameHandler receives inbound text frames in arrival order
type FrameHandler func(frame string)

// Config holds connection settings
type Config struct {
	URL string

	// Reconnection waits BaseDelay × attempt before each retry and gives
	// up after MaxRetries consecutive failures
	BaseDelay  time.Duration
	MaxRetries int

	// QuitFrame is sent before a deliberate close, if set
	QuitFrame string

	HandshakeTimeout time.Duration
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	MaxMessageSize   int64
}

// DefaultConfig returns the settings used against the stock chat server
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		BaseDelay:        3 * time.Second,
		MaxRetries:       5,
		HandshakeTimeout: 10 * time.Second,
		WriteWait:        10 * time.Second,
		PongWait:         60 * time.Second,
		PingPeriod:       54 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// Connection is a reconnecting chat socket bound to one identity
type Connection struct {
	cfg     Config
	dialer  *websocket.Dialer
	handler FrameHandler
	logger  zerolog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	done       chan struct{} // closed when conn is detached
	identity   string
	state      State
	attempts   int
	generation uint64
	retryTimer *time.Timer

	// gorilla allows one concurrent writer per socket
	writeMu sync.Mutex

	obsMu     sync.Mutex
	observers []observer
	nextObsID int
	announced bool // last connected value delivered to observers
}

type observer struct {
	id int
	fn func(connected bool)
}

// Option configures a Connection
type Option func(*Connection)

// WithLogger sets the connection logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Connection) { c.logger = logger.With().Str("component", "websocket").Logger() }
}

// WithDialer replaces the default dialer
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Connection) { c.dialer = d }
}

// WithFrameHandler sets the receiver of inbound text frames
func WithFrameHandler(h FrameHandler) Option {
	return func(c *Connection) { c.handler = h }
}

// NewConnection creates a disconnected Connection
func NewConnection(cfg Config, opts ...Option) *Connection {
	c := &Connection{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger: zerolog.Nop(),
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the socket as identity. It is a no-op when already open
// as identity; any other socket is closed first. A failed Connect returns
// the error and does not schedule retries.
func (c *Connection) Connect(ctx context.Context, identity string) error {
	c.mu.Lock()
	if c.state == StateOpen && c.identity == identity {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.stopRetryLocked()
	prev := c.detachLocked()
	c.identity = identity
	c.state = StateConnecting
	c.attempts = 0
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	c.notify()

	if err := c.open(ctx, gen, identity); err != nil {
		c.mu.Lock()
		if gen == c.generation {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// open dials, sends the identity frame and installs the socket if gen is
// still current
func (c *Connection) open(ctx context.Context, gen uint64, identity string) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.cfg.URL, err)
	}

	conn.SetWriteDeadline(deadline(c.cfg.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(identity)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send identity: %w", err)
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		conn.Close()
		return ErrSuperseded
	}
	done := make(chan struct{})
	c.conn = conn
	c.done = done
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info().Str("identity", identity).Str("url", c.cfg.URL).Msg("Connected to chat server")

	// observers hear about the open before the read pump can report a close
	c.notify()
	go c.readPump(conn, gen)
	go c.pingPump(conn, done)
	return nil
}

// Disconnect ends the session deliberately: no retry follows until the
// next Connect.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.generation++
	c.stopRetryLocked()
	conn := c.detachLocked()
	c.state = StateClosed
	c.attempts = c.cfg.MaxRetries
	c.identity = ""
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(deadline(c.cfg.WriteWait))
		if c.cfg.QuitFrame != "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(c.cfg.QuitFrame))
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
		c.logger.Info().Msg("Disconnected from chat server")
	}
	c.notify()
}

// Send writes frame unmodified. It reports false when the socket is not
// open or the write fails.
func (c *Connection) Send(frame string) bool {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		return false
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(deadline(c.cfg.WriteWait))
	err := conn.WriteMessage(websocket.TextMessage, []byte(frame))
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send frame")
		// Unblocks the read pump, which takes the reconnect path
		conn.Close()
		return false
	}
	return true
}

// OnStateChange registers fn to be called on every open/close transition.
// Observers run synchronously in registration order.
func (c *Connection) OnStateChange(fn func(connected bool)) (unsubscribe func()) {
	c.obsMu.Lock()
	c.nextObsID++
	id := c.nextObsID
	c.observers = append(c.observers, observer{id: id, fn: fn})
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			defer c.obsMu.Unlock()
			for i, o := range c.observers {
				if o.id == id {
					c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the socket is open
func (c *Connection) IsConnected() bool {
	return c.State() == StateOpen
}

// Identity returns the identity of the current session, "" after Disconnect
func (c *Connection) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Attempts returns the number of reconnection attempts since the last
// successful open
func (c *Connection) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// notify delivers the current connected value to observers when it
// differs from the last one delivered
func (c *Connection) notify() {
	connected := c.IsConnected()

	c.obsMu.Lock()
	if connected == c.announced {
		c.obsMu.Unlock()
		return
	}
	c.announced = connected
	snapshot := make([]observer, len(c.observers))
	copy(snapshot, c.observers)
	c.obsMu.Unlock()

	for _, o := range snapshot {
		o.fn(connected)
	}
}

// detachLocked removes the current socket and stops its ping pump
func (c *Connection) detachLocked() *websocket.Conn {
	conn := c.conn
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	return conn
}

func (c *Connection) stopRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// scheduleRetryLocked arms the next reconnection attempt. It reports
// false once the retry ceiling is reached.
func (c *Connection) scheduleRetryLocked() bool {
	if c.attempts >= c.cfg.MaxRetries {
		c.logger.Warn().Int("attempts", c.attempts).Msg("Giving up on reconnecting")
		return false
	}
	c.attempts++
	delay := c.cfg.BaseDelay * time.Duration(c.attempts)
	gen := c.generation

	c.logger.Info().Int("attempt", c.attempts).Dur("delay", delay).Msg("Scheduling reconnect")
	c.retryTimer = time.AfterFunc(delay, func() { c.retry(gen) })
	return true
}

func (c *Connection) retry(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	identity := c.identity
	c.state = StateConnecting
	c.mu.Unlock()

	ctx, cancel := c.handshakeContext()
	defer cancel()

	err := c.open(ctx, gen, identity)
	if err == nil {
		return
	}
	c.logger.Debug().Err(err).Msg("Reconnect attempt failed")

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.state = StateDisconnected
	c.scheduleRetryLocked()
}

func (c *Connection) handshakeContext() (context.Context, context.CancelFunc) {
	if c.cfg.HandshakeTimeout > 0 {
		return context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	}
	return context.WithCancel(context.Background())
}

// handleClose runs when the read pump of conn stops
func (c *Connection) handleClose(conn *websocket.Conn, gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.detachLocked()
	c.state = StateDisconnected
	c.scheduleRetryLocked()
	c.mu.Unlock()

	conn.Close()
	c.notify()
}

// readPump delivers inbound text frames to the handler until the socket fails
func (c *Connection) readPump(conn *websocket.Conn, gen uint64) {
	defer c.handleClose(conn, gen)

	if c.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	conn.SetReadDeadline(deadline(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(deadline(c.cfg.PongWait))
		return nil
	})

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("Chat connection lost")
			}
			return
		}
		conn.SetReadDeadline(deadline(c.cfg.PongWait))

		if msgType != websocket.TextMessage || c.handler == nil {
			continue
		}
		c.handler(string(message))
	}
}

// pingPump keeps the connection alive until done is closed
func (c *Connection) pingPump(conn *websocket.Conn, done <-chan struct{}) {
	if c.cfg.PingPeriod <= 0 {
		return
	}
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline(c.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

// deadline returns now+d, or the zero time (no deadline) for d <= 0
func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
