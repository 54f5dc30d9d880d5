package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/api"
	"github.com/aaronwang/auction-client/shared/models"
)

// priceTTL bounds how long a known price is trusted without asking the server
const priceTTL = 30 * time.Second

// BidAPI is the part of the REST client bidding needs
type BidAPI interface {
	GetAuction(ctx context.Context, auctionID string) (*models.Auction, error)
	PlaceBid(ctx context.Context, req *models.PlaceBidRequest) (*models.BidResult, error)
}

// ValidateBid checks a bid against the price it has to beat
func ValidateBid(amount, currentHighest float64) error {
	if amount <= 0 {
		return invalid("amount", "Bid amount must be positive")
	}
	if amount <= currentHighest {
		return invalid("amount", fmt.Sprintf("Bid must be higher than the current bid of $%.2f", currentHighest))
	}
	return nil
}

// BiddingService places bids, rejecting obviously low ones locally
type BiddingService struct {
	api        BidAPI
	logger     zerolog.Logger
	priceCache *ttlcache.Cache[string, float64] // auctionID -> price to beat
}

// NewBiddingService creates a bidding service. Call Close to stop the
// cache janitor.
func NewBiddingService(bidAPI BidAPI, logger zerolog.Logger) *BiddingService {
	cache := ttlcache.New[string, float64](
		ttlcache.WithTTL[string, float64](priceTTL),
		ttlcache.WithDisableTouchOnHit[string, float64](),
	)
	go cache.Start()

	return &BiddingService{
		api:        bidAPI,
		logger:     logger.With().Str("component", "bidding").Logger(),
		priceCache: cache,
	}
}

// PlaceBid validates and submits a bid.
// 1. Reject non-positive amounts
// 2. Pre-filter against the cached price, re-reading the auction when the
//    cache says the bid is too low so a stale entry never blocks a valid bid
// 3. Submit to the server, which stays the authority
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, userID string, amount float64) (*models.BidResult, error) {
	if auctionID == "" {
		return nil, invalid("auctionId", "Auction ID is required")
	}
	if userID == "" {
		return nil, invalid("userId", "You must be logged in to bid")
	}
	if amount <= 0 {
		return nil, ValidateBid(amount, 0)
	}

	current, err := s.priceToBeat(ctx, auctionID, amount)
	if err != nil {
		return nil, err
	}
	if err := ValidateBid(amount, current); err != nil {
		s.logger.Debug().
			Str("auction_id", auctionID).
			Float64("amount", amount).
			Float64("current", current).
			Msg("Rejected bid locally")
		return nil, err
	}

	result, err := s.api.PlaceBid(ctx, &models.PlaceBidRequest{
		AuctionID: auctionID,
		UserID:    userID,
		Amount:    amount,
	})
	if err != nil {
		if errors.Is(err, api.ErrUnsuccessful) {
			// our view of the price is wrong; ask again next time
			s.priceCache.Delete(auctionID)
		}
		return nil, err
	}

	s.priceCache.Set(auctionID, result.CurrentBid, ttlcache.DefaultTTL)
	s.logger.Info().Str("auction_id", auctionID).Float64("amount", amount).Msg("Bid placed")
	return result, nil
}

// priceToBeat returns the amount a bid on auctionID must exceed
func (s *BiddingService) priceToBeat(ctx context.Context, auctionID string, amount float64) (float64, error) {
	if item := s.priceCache.Get(auctionID); item != nil {
		cached := item.Value()
		if amount > cached {
			return cached, nil
		}
		// Looks too low; confirm before refusing
		actual, err := s.refresh(ctx, auctionID)
		if err != nil {
			s.logger.Debug().Err(err).Msg("Using cached price")
			return cached, nil
		}
		if actual != cached {
			s.logger.Debug().Float64("cached", cached).Float64("actual", actual).Msg("Cached price was stale")
		}
		return actual, nil
	}

	actual, err := s.refresh(ctx, auctionID)
	if err != nil {
		return 0, fmt.Errorf("failed to load auction %s: %w", auctionID, err)
	}
	return actual, nil
}

func (s *BiddingService) refresh(ctx context.Context, auctionID string) (float64, error) {
	auction, err := s.api.GetAuction(ctx, auctionID)
	if err != nil {
		return 0, err
	}
	price := auction.MinimumBid()
	s.priceCache.Set(auctionID, price, ttlcache.DefaultTTL)
	return price, nil
}

// Observe records a price learned elsewhere, such as a polled bid update
func (s *BiddingService) Observe(auctionID string, price float64) {
	if item := s.priceCache.Get(auctionID); item != nil && item.Value() >= price {
		return
	}
	s.priceCache.Set(auctionID, price, ttlcache.DefaultTTL)
}

// Close stops the cache janitor
func (s *BiddingService) Close() {
	s.priceCache.Stop()
}
