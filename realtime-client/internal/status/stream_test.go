package status

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/realtime-client/internal/router"
	"github.com/aaronwang/auction-client/shared/models"
)

func startStream(t *testing.T) (*router.Router, *Hub, string) {
	t.Helper()
	r := router.New()
	hub := NewHub(r, zerolog.Nop())
	h := NewHandler("auction-live", r, nil, zerolog.Nop()).WithStream(hub)

	srv := httptest.NewServer(h.SetupRoutes())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return r, hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialStream(t *testing.T, base, auctionID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(base+"/auctions/"+auctionID+"/stream", nil)
	require.NoError(t, err)
	return conn
}

func TestStream_DeliversAcceptedEvents(t *testing.T) {
	r, hub, base := startStream(t)

	conn := dialStream(t, base, "AUC-100")
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("AUC-100") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.Stats("AUC-100").Subscribers)

	at := time.Now()
	require.True(t, r.Dispatch(models.NewMessageEvent("AUC-100", "seller1", "alice", "Is this still available?", at)))
	// same fingerprint, suppressed by the router
	require.False(t, r.Dispatch(models.NewMessageEvent("AUC-100", "seller1", "alice", "Is this still available?", at)))
	require.True(t, r.Dispatch(models.NewMessageEvent("AUC-100", "seller1", "alice", "Still there?", at)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got []models.Event
	for range 2 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var e models.Event
		require.NoError(t, json.Unmarshal(data, &e))
		got = append(got, e)
	}
	assert.Equal(t, "Is this still available?", got[0].Content)
	assert.Equal(t, "seller1", got[0].Sender)
	assert.Equal(t, "Still there?", got[1].Content)
}

func TestStream_OnlyWatchedAuction(t *testing.T) {
	r, hub, base := startStream(t)

	conn := dialStream(t, base, "A1")
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("A1") == 1 }, time.Second, 5*time.Millisecond)

	r.Subscribe("A2", func(*models.Event) {})
	r.Dispatch(models.NewMessageEvent("A2", "bob", "", "elsewhere", time.Now()))
	r.Dispatch(models.NewMessageEvent("A1", "bob", "", "here", time.Now()))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content":"here"`)
}

func TestStream_DisconnectUnsubscribes(t *testing.T) {
	r, hub, base := startStream(t)

	conn := dialStream(t, base, "A1")
	require.Eventually(t, func() bool { return hub.Total() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.Total() == 0 && r.Stats("A1").Subscribers == 0
	}, 2*time.Second, 10*time.Millisecond)

	// nobody left to receive it
	assert.False(t, r.Dispatch(models.NewMessageEvent("A1", "bob", "", "late", time.Now())))
}

func TestHealthCheck_StreamClients(t *testing.T) {
	r := router.New()
	h := NewHandler("auction-live", r, nil, zerolog.Nop()).WithStream(NewHub(r, zerolog.Nop()))

	var body map[string]any
	get(t, h.SetupRoutes(), "/health", &body)
	assert.Equal(t, 0.0, body["streamClients"])
}
