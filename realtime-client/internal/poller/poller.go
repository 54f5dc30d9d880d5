// Package poller delivers bid updates for subscribed auctions by polling
// the bid history endpoint on a shared interval.
package poller

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/models"
)

// DefaultInterval is the polling period
const DefaultInterval = 2 * time.Second

// BidSource fetches the bid history of an auction, latest bid first
type BidSource interface {
	BidHistory(ctx context.Context, auctionID string) ([]models.Bid, error)
}

// Handler receives bid update events
type Handler func(event *models.Event)

type subscription struct {
	id int
	fn Handler
}

// Poller polls every subscribed auction once per interval. The ticker
// runs only while at least one subscription exists. Fetches are
// independent: an auction whose previous fetch is still in flight is
// skipped for that tick and the others proceed.
type Poller struct {
	source   BidSource
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	topics   map[string][]subscription
	inflight map[string]bool
	nextID   int
	stop     chan struct{} // non-nil while the ticker runs
	running  sync.WaitGroup
	fetches  sync.WaitGroup
}

// Option configures a Poller
type Option func(*Poller)

// WithLogger sets the poller logger
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) { p.logger = logger.With().Str("component", "poller").Logger() }
}

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// New creates an idle Poller. A non-positive interval means DefaultInterval.
func New(source BidSource, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		source:   source,
		interval: interval,
		logger:   zerolog.Nop(),
		now:      time.Now,
		topics:   make(map[string][]subscription),
		inflight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers h for bid updates on auctionID. The first
// subscription starts the shared ticker.
func (p *Poller) Subscribe(auctionID string, h Handler) (unsubscribe func()) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.topics[auctionID] = append(p.topics[auctionID], subscription{id: id, fn: h})
	if p.stop == nil {
		p.startLocked()
	}
	p.mu.Unlock()

	p.logger.Debug().Str("auction_id", auctionID).Msg("Subscribed to bid updates")

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(auctionID, id) })
	}
}

func (p *Poller) unsubscribe(auctionID string, id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.topics[auctionID]
	for i, s := range subs {
		if s.id == id {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(p.topics, auctionID)
	} else {
		p.topics[auctionID] = subs
	}

	if len(p.topics) == 0 {
		p.stopLocked()
	}
	p.logger.Debug().Str("auction_id", auctionID).Msg("Unsubscribed from bid updates")
}

func (p *Poller) startLocked() {
	stop := make(chan struct{})
	p.stop = stop
	p.running.Add(1)
	go p.run(stop)
	p.logger.Debug().Dur("interval", p.interval).Msg("Started polling")
}

func (p *Poller) stopLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	p.stop = nil
	p.logger.Debug().Msg("Stopped polling")
}

func (p *Poller) run(stop <-chan struct{}) {
	defer p.running.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.launch(ctx)
		}
	}
}

// Tick polls every subscribed auction once, concurrently, and waits for
// the fetches it started. A failed fetch is logged and skipped.
func (p *Poller) Tick(ctx context.Context) {
	p.launch(ctx).Wait()
}

// launch starts one fetch per subscribed auction that has no fetch in
// flight and returns without waiting for them.
func (p *Poller) launch(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, id := range p.Auctions() {
		if !p.claim(id) {
			p.logger.Debug().Str("auction_id", id).Msg("Previous poll still running, skipping")
			continue
		}
		wg.Add(1)
		p.fetches.Add(1)
		go func(auctionID string) {
			defer p.fetches.Done()
			defer wg.Done()
			defer p.release(auctionID)
			p.poll(ctx, auctionID)
		}(id)
	}
	return &wg
}

func (p *Poller) claim(auctionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[auctionID] {
		return false
	}
	p.inflight[auctionID] = true
	return true
}

func (p *Poller) release(auctionID string) {
	p.mu.Lock()
	delete(p.inflight, auctionID)
	p.mu.Unlock()
}

func (p *Poller) poll(ctx context.Context, auctionID string) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	bids, err := p.source.BidHistory(fetchCtx, auctionID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Str("auction_id", auctionID).Msg("Failed to poll bids")
		}
		return
	}
	if len(bids) == 0 {
		return
	}

	event := models.NewBidUpdateEvent(auctionID, bids[0], p.now())

	p.mu.Lock()
	subs := p.topics[auctionID]
	p.mu.Unlock()

	for _, s := range subs {
		s.fn(event)
	}
}

// Auctions returns the subscribed auction ids in sorted order
func (p *Poller) Auctions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.topics))
	for id := range p.topics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Running reports whether the ticker is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Close stops polling, drops every subscription and waits for the ticker
// goroutine and any fetches it started to exit
func (p *Poller) Close() {
	p.mu.Lock()
	p.stopLocked()
	p.topics = make(map[string][]subscription)
	p.mu.Unlock()

	p.running.Wait()
	p.fetches.Wait()
}
