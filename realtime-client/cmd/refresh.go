package main

import (
	"context"
	"sync"

	"github.com/aaronwang/auction-client/shared/models"
)

// auctionFetcher loads one auction summary
type auctionFetcher interface {
	GetAuction(ctx context.Context, auctionID string) (*models.Auction, error)
}

// refresher reloads auction summaries off the dispatch path. Each auction
// gets one worker; requests arriving while a fetch runs collapse into a
// single follow-up fetch.
type refresher struct {
	ctx   context.Context
	fetch auctionFetcher
	show  func(*models.Auction)

	mu      sync.Mutex
	pending map[string]chan struct{}
	workers sync.WaitGroup
}

func newRefresher(ctx context.Context, fetch auctionFetcher, show func(*models.Auction)) *refresher {
	return &refresher{
		ctx:     ctx,
		fetch:   fetch,
		show:    show,
		pending: make(map[string]chan struct{}),
	}
}

// request schedules a refresh of auctionID and returns immediately
func (r *refresher) request(auctionID string) {
	r.mu.Lock()
	queue, ok := r.pending[auctionID]
	if !ok {
		queue = make(chan struct{}, 1)
		r.pending[auctionID] = queue
		r.workers.Add(1)
		go r.run(auctionID, queue)
	}
	r.mu.Unlock()

	select {
	case queue <- struct{}{}:
	default:
	}
}

func (r *refresher) run(auctionID string, queue <-chan struct{}) {
	defer r.workers.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-queue:
		}
		a, err := r.fetch.GetAuction(r.ctx, auctionID)
		if err != nil {
			if r.ctx.Err() == nil {
				logger.Debug().Err(err).Str("auction_id", auctionID).Msg("Failed to refresh auction")
			}
			continue
		}
		r.show(a)
	}
}

// wait blocks until every worker has exited, which happens once ctx is done
func (r *refresher) wait() {
	r.workers.Wait()
}
