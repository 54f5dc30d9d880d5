package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/models"
)

// AuctionAPI is the part of the REST client auction management needs
type AuctionAPI interface {
	ListAuctions(ctx context.Context) ([]models.Auction, error)
	SellerAuctions(ctx context.Context, sellerID string) ([]models.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (*models.Auction, error)
	CreateAuction(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error)
}

// ValidateAuction checks a new listing and fills in the defaults
func ValidateAuction(req *models.CreateAuctionRequest) error {
	req.ItemName = strings.TrimSpace(req.ItemName)
	req.SellerID = strings.TrimSpace(req.SellerID)
	if req.ItemName == "" || req.SellerID == "" || req.BasePrice == 0 {
		return invalid("auction", "Please fill out item name, seller ID and base price")
	}
	if req.BasePrice < 0 {
		return invalid("basePrice", "Base price must be positive")
	}
	if req.Duration < 0 {
		return invalid("duration", "Duration must be positive")
	}
	if req.Duration == 0 {
		req.Duration = models.DefaultAuctionDuration
	}
	if req.Category == "" {
		req.Category = models.DefaultAuctionCategory
	}
	return nil
}

// AuctionService lists and creates auctions
type AuctionService struct {
	api    AuctionAPI
	logger zerolog.Logger
}

// NewAuctionService creates an auction service
func NewAuctionService(auctionAPI AuctionAPI, logger zerolog.Logger) *AuctionService {
	return &AuctionService{
		api:    auctionAPI,
		logger: logger.With().Str("component", "auctions").Logger(),
	}
}

// List returns every auction, or only those of sellerID when it is set
func (s *AuctionService) List(ctx context.Context, sellerID string) ([]models.Auction, error) {
	if sellerID != "" {
		return s.api.SellerAuctions(ctx, sellerID)
	}
	return s.api.ListAuctions(ctx)
}

// Get returns one auction
func (s *AuctionService) Get(ctx context.Context, auctionID string) (*models.Auction, error) {
	if auctionID == "" {
		return nil, invalid("auctionId", "Auction ID is required")
	}
	return s.api.GetAuction(ctx, auctionID)
}

// Create validates and submits a new listing
func (s *AuctionService) Create(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error) {
	if err := ValidateAuction(req); err != nil {
		return nil, err
	}
	auction, err := s.api.CreateAuction(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("auction_id", auction.AuctionID).Str("item", req.ItemName).Msg("Auction created")
	return auction, nil
}
