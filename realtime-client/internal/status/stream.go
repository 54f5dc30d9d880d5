package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/realtime-client/internal/router"
	"github.com/aaronwang/auction-client/shared/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Subscriber is the fan-out side of the router
type Subscriber interface {
	Subscribe(topicID string, h router.Handler) (unsubscribe func())
}

// Hub streams accepted events of one auction to local WebSocket clients,
// for dashboards that want the live feed without joining the chat.
type Hub struct {
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     zerolog.Logger

	clients sync.Map // auctionID -> *sync.Map of *streamClient
	total   atomic.Int64
}

type streamClient struct {
	id        string
	auctionID string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a hub fed by subscriber
func NewHub(subscriber Subscriber, logger zerolog.Logger) *Hub {
	return &Hub{
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// local tooling only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "stream").Logger(),
	}
}

// ServeStream upgrades the request and streams events of auction {id}
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	if auctionID == "" {
		respondError(w, http.StatusBadRequest, "Auction ID is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to upgrade stream connection")
		return
	}

	c := &streamClient{
		id:        uuid.NewString(),
		auctionID: auctionID,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}
	unsubscribe := h.subscriber.Subscribe(auctionID, func(e *models.Event) {
		h.deliver(c, e)
	})
	h.register(c)

	go c.writePump()
	go func() {
		c.readPump()
		unsubscribe()
		h.unregister(c)
		close(c.done)
	}()
}

// deliver queues e for c. A client too slow to drain its buffer is
// disconnected instead of blocking the router.
func (h *Hub) deliver(c *streamClient, e *models.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", e.ID).Msg("Failed to marshal event")
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		h.logger.Warn().Str("client", c.id).Str("auction_id", c.auctionID).Msg("Dropping slow stream client")
		c.close()
	}
}

func (h *Hub) register(c *streamClient) {
	clients, _ := h.clients.LoadOrStore(c.auctionID, &sync.Map{})
	clients.(*sync.Map).Store(c, struct{}{})
	h.total.Add(1)
	h.logger.Debug().Str("client", c.id).Str("auction_id", c.auctionID).Msg("Stream client connected")
}

func (h *Hub) unregister(c *streamClient) {
	if clients, ok := h.clients.Load(c.auctionID); ok {
		clients.(*sync.Map).Delete(c)
	}
	h.total.Add(-1)
	h.logger.Debug().Str("client", c.id).Str("auction_id", c.auctionID).Msg("Stream client disconnected")
}

// ClientCount returns the number of stream clients watching auctionID
func (h *Hub) ClientCount(auctionID string) int {
	clients, ok := h.clients.Load(auctionID)
	if !ok {
		return 0
	}
	n := 0
	clients.(*sync.Map).Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Total returns the number of connected stream clients
func (h *Hub) Total() int {
	return int(h.total.Load())
}

func (c *streamClient) close() {
	c.closeOnce.Do(func() { c.conn.Close() })
}

// writePump moves queued events to the socket and keeps it alive with pings
func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client input and returns when the socket closes
func (c *streamClient) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close disconnects every stream client
func (h *Hub) Close() {
	h.clients.Range(func(_, clients any) bool {
		clients.(*sync.Map).Range(func(c, _ any) bool {
			c.(*streamClient).close()
			return true
		})
		return true
	})
}
