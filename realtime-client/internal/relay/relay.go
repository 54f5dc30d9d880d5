package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/models"
)

const (
	queueSize      = 256
	publishTimeout = 5 * time.Second
)

// Relay publishes events in the background so dispatch never waits on
// the network
type Relay struct {
	pub    Publisher
	logger zerolog.Logger
	queue  chan *models.Event
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a Relay in front of pub
func New(pub Publisher, logger zerolog.Logger) *Relay {
	r := &Relay{
		pub:    pub,
		logger: logger.With().Str("component", "relay").Logger(),
		queue:  make(chan *models.Event, queueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Enqueue schedules e for publishing. It reports false when the relay is
// closed or its queue is full.
func (r *Relay) Enqueue(e *models.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- e:
		return true
	default:
		r.logger.Warn().Str("auction_id", e.AuctionID).Msg("Relay queue full, dropping event")
		return false
	}
}

func (r *Relay) run() {
	defer r.wg.Done()
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := r.pub.Publish(ctx, e); err != nil {
			r.logger.Warn().Err(err).Str("auction_id", e.AuctionID).Str("event_id", e.ID).Msg("Failed to relay event")
		}
		cancel()
	}
}

// Close publishes what is queued, then closes the publisher
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	return r.pub.Close()
}
