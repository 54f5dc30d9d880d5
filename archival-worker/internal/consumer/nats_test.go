package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/shared/models"
)

func startTestJetStream(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second), "embedded NATS not ready")
	return srv.ClientURL()
}

type memoryArchive struct {
	mu       sync.Mutex
	events   map[string]*models.Event
	highest  map[string]float64
	failOnce map[string]bool
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{
		events:   make(map[string]*models.Event),
		highest:  make(map[string]float64),
		failOnce: make(map[string]bool),
	}
}

func (m *memoryArchive) InsertEvent(_ context.Context, e *models.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOnce[e.ID] {
		delete(m.failOnce, e.ID)
		return false, errors.New("database unavailable")
	}
	if _, ok := m.events[e.ID]; ok {
		return false, nil
	}
	m.events[e.ID] = e
	return true, nil
}

func (m *memoryArchive) UpdateAuctionHighest(_ context.Context, auctionID string, amount float64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount > m.highest[auctionID] {
		m.highest[auctionID] = amount
	}
	return nil
}

func (m *memoryArchive) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[id]
	return ok
}

func (m *memoryArchive) highestOf(auctionID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.highest[auctionID]
}

func startConsumer(t *testing.T, url string, archive Archive) *NATSConsumer {
	t.Helper()
	c, err := NewNATSConsumer(context.Background(), DefaultConfig(url), archive, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		c.Close()
	})
	return c
}

func publish(t *testing.T, nc *nats.Conn, subject string, v any) {
	t.Helper()
	data, ok := v.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(v)
		require.NoError(t, err)
	}
	require.NoError(t, nc.Publish(subject, data))
	require.NoError(t, nc.Flush())
}

func TestConsumer_ArchivesRelayedEvents(t *testing.T) {
	url := startTestJetStream(t)
	archive := newMemoryArchive()
	c := startConsumer(t, url, archive)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	msg := models.NewMessageEvent("AUC-100", "seller1", "alice", "Is this still available?", time.Now())
	bid := models.NewBidUpdateEvent("AUC-100", models.Bid{BidID: "b1", UserID: "bob", Amount: 150}, time.Now())

	publish(t, nc, "auction.events.AUC-100", msg)
	publish(t, nc, "auction.events.AUC-100", bid)
	publish(t, nc, "auction.events.AUC-100", msg)

	require.Eventually(t, func() bool {
		s := c.Stats()
		return s.Archived == 2 && s.Duplicates == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.True(t, archive.has(msg.ID))
	assert.True(t, archive.has(bid.ID))
	assert.Equal(t, 150.0, archive.highestOf("AUC-100"))
}

func TestConsumer_RejectsMalformed(t *testing.T) {
	url := startTestJetStream(t)
	archive := newMemoryArchive()
	c := startConsumer(t, url, archive)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	publish(t, nc, "auction.events.X", []byte("{not json"))
	publish(t, nc, "auction.events.X", &models.Event{ID: "e1", Kind: models.EventKindBidUpdate, AuctionID: "X"})
	publish(t, nc, "auction.events.X", &models.Event{ID: "e2", Kind: models.EventKindMessage})

	require.Eventually(t, func() bool {
		return c.Stats().Rejected == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Zero(t, c.Stats().Archived)
}

func TestConsumer_RetriesFailedWrites(t *testing.T) {
	url := startTestJetStream(t)
	archive := newMemoryArchive()

	msg := models.NewMessageEvent("AUC-1", "seller1", "alice", "hello", time.Now())
	archive.failOnce[msg.ID] = true

	c := startConsumer(t, url, archive)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	publish(t, nc, "auction.events.AUC-1", msg)

	require.Eventually(t, func() bool {
		return c.Stats().Archived == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.True(t, archive.has(msg.ID))
	assert.Equal(t, int64(1), c.Stats().Failed)
}

func TestDecode(t *testing.T) {
	_, err := decode([]byte(`{"id":"e","kind":"bidUpdate","auctionId":"A"}`))
	assert.ErrorContains(t, err, "without bid")

	_, err = decode([]byte(`{"id":"e","kind":"other","auctionId":"A"}`))
	assert.ErrorContains(t, err, "unknown event kind")

	e, err := decode([]byte(`{"id":"e","kind":"message","auctionId":"A","sender":"s","content":"x","timestamp":"2026-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "s", e.Sender)
}
