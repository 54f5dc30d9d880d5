package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/shared/models"
)

type fakeAuctionAPI struct {
	created  *models.CreateAuctionRequest
	sellerOf string
}

func (f *fakeAuctionAPI) ListAuctions(_ context.Context) ([]models.Auction, error) {
	return []models.Auction{{AuctionID: "A1"}, {AuctionID: "A2"}}, nil
}

func (f *fakeAuctionAPI) SellerAuctions(_ context.Context, sellerID string) ([]models.Auction, error) {
	f.sellerOf = sellerID
	return []models.Auction{{AuctionID: "A1", SellerID: sellerID}}, nil
}

func (f *fakeAuctionAPI) GetAuction(_ context.Context, auctionID string) (*models.Auction, error) {
	return &models.Auction{AuctionID: auctionID}, nil
}

func (f *fakeAuctionAPI) CreateAuction(_ context.Context, req *models.CreateAuctionRequest) (*models.Auction, error) {
	f.created = req
	return &models.Auction{AuctionID: "NEW-1", ItemName: req.ItemName}, nil
}

func TestValidateAuction_Defaults(t *testing.T) {
	req := &models.CreateAuctionRequest{ItemName: " Lamp ", SellerID: "sam", BasePrice: 20}
	require.NoError(t, ValidateAuction(req))
	assert.Equal(t, "Lamp", req.ItemName)
	assert.Equal(t, 60, req.Duration)
	assert.Equal(t, "general", req.Category)

	req = &models.CreateAuctionRequest{ItemName: "Lamp", SellerID: "sam", BasePrice: 20, Duration: 15, Category: "home"}
	require.NoError(t, ValidateAuction(req))
	assert.Equal(t, 15, req.Duration)
	assert.Equal(t, "home", req.Category)
}

func TestValidateAuction_Missing(t *testing.T) {
	for _, req := range []*models.CreateAuctionRequest{
		{SellerID: "sam", BasePrice: 20},
		{ItemName: "Lamp", BasePrice: 20},
		{ItemName: "Lamp", SellerID: "sam"},
	} {
		assert.EqualError(t, ValidateAuction(req), "Please fill out item name, seller ID and base price")
	}

	assert.ErrorIs(t, ValidateAuction(&models.CreateAuctionRequest{ItemName: "Lamp", SellerID: "sam", BasePrice: -1}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateAuction(&models.CreateAuctionRequest{ItemName: "Lamp", SellerID: "sam", BasePrice: 1, Duration: -5}), ErrInvalidInput)
}

func TestAuctionService(t *testing.T) {
	fake := &fakeAuctionAPI{}
	s := NewAuctionService(fake, zerolog.Nop())
	ctx := context.Background()

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.List(ctx, "sam")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, "sam", fake.sellerOf)

	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	created, err := s.Create(ctx, &models.CreateAuctionRequest{ItemName: "Lamp", SellerID: "sam", BasePrice: 20})
	require.NoError(t, err)
	assert.Equal(t, "NEW-1", created.AuctionID)
	assert.Equal(t, "general", fake.created.Category)

	_, err = s.Create(ctx, &models.CreateAuctionRequest{ItemName: "Lamp"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
