package poller

import (
	"sync"

	"github.com/aaronwang/auction-client/shared/models"
)

// HighestBid remembers the last bid seen per auction so consumers can
// ignore poll results that repeat what they already know
type HighestBid struct {
	mu   sync.Mutex
	last map[string]models.Bid
}

// NewHighestBid creates an empty tracker
func NewHighestBid() *HighestBid {
	return &HighestBid{last: make(map[string]models.Bid)}
}

// Observe records a bid update and reports whether it is material: the
// first bid seen, a different bid, or a higher amount.
func (h *HighestBid) Observe(e *models.Event) bool {
	if e == nil || e.Kind != models.EventKindBidUpdate || e.Bid == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	prev, ok := h.last[e.AuctionID]
	if ok && prev.Key() == e.Bid.Key() && e.Bid.Amount <= prev.Amount {
		return false
	}
	h.last[e.AuctionID] = *e.Bid
	return true
}

// Current returns the last bid recorded for auctionID
func (h *HighestBid) Current(auctionID string) (models.Bid, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.last[auctionID]
	return b, ok
}
