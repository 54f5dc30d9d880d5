package service

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/shared/api"
	"github.com/aaronwang/auction-client/shared/models"
)

// fakeBidAPI behaves like a server holding one price per auction
type fakeBidAPI struct {
	mu     sync.Mutex
	prices map[string]*models.Auction
	gets   int
	posts  int
}

func newFakeBidAPI() *fakeBidAPI {
	return &fakeBidAPI{prices: make(map[string]*models.Auction)}
}

func (f *fakeBidAPI) GetAuction(_ context.Context, auctionID string) (*models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	a, ok := f.prices[auctionID]
	if !ok {
		return nil, &api.Error{Method: http.MethodGet, Endpoint: "/auctions/" + auctionID, StatusCode: http.StatusNotFound}
	}
	cp := *a
	return &cp, nil
}

func (f *fakeBidAPI) PlaceBid(_ context.Context, req *models.PlaceBidRequest) (*models.BidResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts++
	a := f.prices[req.AuctionID]
	if req.Amount <= a.MinimumBid() {
		return nil, &api.Error{Method: http.MethodPost, Endpoint: "/bids/place", StatusCode: http.StatusOK, Message: "Bid too low"}
	}
	a.CurrentHighestBid = req.Amount
	a.CurrentHighestBidder = req.UserID
	return &models.BidResult{Accepted: true, CurrentBid: req.Amount, YourBid: req.Amount}, nil
}

func (f *fakeBidAPI) counts() (gets, posts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.posts
}

func (f *fakeBidAPI) setPrice(auctionID string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[auctionID].CurrentHighestBid = price
}

func newBidding(t *testing.T, fake *fakeBidAPI) *BiddingService {
	s := NewBiddingService(fake, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func TestValidateBid(t *testing.T) {
	assert.NoError(t, ValidateBid(101, 100))
	assert.ErrorIs(t, ValidateBid(100, 100), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBid(99.99, 100), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBid(0, 0), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBid(-5, 0), ErrInvalidInput)

	err := ValidateBid(50, 100)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)
	assert.Contains(t, verr.Message, "$100.00")
}

func TestPlaceBid_RejectedLocallyWithoutPost(t *testing.T) {
	fake := newFakeBidAPI()
	fake.prices["AUC-1"] = &models.Auction{AuctionID: "AUC-1", BasePrice: 50, CurrentHighestBid: 100}
	s := newBidding(t, fake)

	for _, amount := range []float64{100, 80} {
		_, err := s.PlaceBid(context.Background(), "AUC-1", "bob", amount)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	_, posts := fake.counts()
	assert.Zero(t, posts)
}

func TestPlaceBid_Accepted(t *testing.T) {
	fake := newFakeBidAPI()
	fake.prices["AUC-1"] = &models.Auction{AuctionID: "AUC-1", BasePrice: 50, CurrentHighestBid: 100}
	s := newBidding(t, fake)

	result, err := s.PlaceBid(context.Background(), "AUC-1", "bob", 100.01)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 100.01, result.CurrentBid)

	_, posts := fake.counts()
	assert.Equal(t, 1, posts)
}

func TestPlaceBid_BasePriceBeforeFirstBid(t *testing.T) {
	fake := newFakeBidAPI()
	fake.prices["AUC-2"] = &models.Auction{AuctionID: "AUC-2", BasePrice: 25}
	s := newBidding(t, fake)

	_, err := s.PlaceBid(context.Background(), "AUC-2", "bob", 25)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.PlaceBid(context.Background(), "AUC-2", "bob", 26)
	assert.NoError(t, err)
}

func TestPlaceBid_StaleCacheRechecked(t *testing.T) {
	fake := newFakeBidAPI()
	fake.prices["AUC-1"] = &models.Auction{AuctionID: "AUC-1", BasePrice: 10, CurrentHighestBid: 100}
	s := newBidding(t, fake)

	// cache holds a price higher than the server's
	s.Observe("AUC-1", 500)

	_, err := s.PlaceBid(context.Background(), "AUC-1", "bob", 200)
	require.NoError(t, err)

	gets, posts := fake.counts()
	assert.Equal(t, 1, gets)
	assert.Equal(t, 1, posts)
}

func TestPlaceBid_CachedPriceSkipsFetch(t *testing.T) {
	fake := newFakeBidAPI()
	fake.prices["AUC-1"] = &models.Auction{AuctionID: "AUC-1", BasePrice: 10}
	s := newBidding(t, fake)

	_, err := s.PlaceBid(context.Background(), "AUC-1", "bob", 20)
	require.NoError(t, err)
	_, err = s.PlaceBid(context.Background(), "AUC-1", "carol", 30)
	require.NoError(t, err)

	gets, posts := fake.counts()
	assert.Equal(t, 1, gets)
	assert.Equal(t, 2, posts)
}

func TestPlaceBid_ServerRejectionDropsCache(t *testing.T) {
	fake := newFakeBidAPI()
	fake.prices["AUC-1"] = &models.Auction{AuctionID: "AUC-1", BasePrice: 10}
	s := newBidding(t, fake)

	_, err := s.PlaceBid(context.Background(), "AUC-1", "bob", 20)
	require.NoError(t, err)

	// someone else outbid us out of band
	fake.setPrice("AUC-1", 40)
	_, err = s.PlaceBid(context.Background(), "AUC-1", "bob", 30)
	require.ErrorIs(t, err, api.ErrUnsuccessful)
	assert.Equal(t, "Bid too low", api.Message(err, ""))

	// the next attempt asks the server again and is refused locally
	_, err = s.PlaceBid(context.Background(), "AUC-1", "bob", 35)
	assert.ErrorIs(t, err, ErrInvalidInput)

	gets, posts := fake.counts()
	assert.Equal(t, 2, gets)
	assert.Equal(t, 2, posts)
}

func TestPlaceBid_MissingFields(t *testing.T) {
	s := newBidding(t, newFakeBidAPI())

	_, err := s.PlaceBid(context.Background(), "", "bob", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.PlaceBid(context.Background(), "AUC-1", "", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.PlaceBid(context.Background(), "AUC-1", "bob", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
	s := newBidding(t, newFakeBidAPI())

	_, err := s.PlaceBid(context.Background(), "missing", "bob", 10)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestObserve_KeepsHighest(t *testing.T) {
	s := newBidding(t, newFakeBidAPI())

	s.Observe("AUC-1", 100)
	s.Observe("AUC-1", 90)
	assert.Equal(t, 100.0, s.priceCache.Get("AUC-1").Value())

	s.Observe("AUC-1", 120)
	assert.Equal(t, 120.0, s.priceCache.Get("AUC-1").Value())
}
