package models

import "encoding/json"

// Auction represents an auction listing as returned by the auction API
type Auction struct {
	AuctionID            string  `json:"auctionId"`
	ItemName             string  `json:"itemName"`
	ItemDescription      string  `json:"itemDescription,omitempty"`
	SellerID             string  `json:"sellerId"`
	BasePrice            float64 `json:"basePrice"`
	CurrentHighestBid    float64 `json:"currentHighestBid"`
	CurrentHighestBidder string  `json:"currentHighestBidder,omitempty"`
	Status               string  `json:"status,omitempty"` // "ACTIVE", "CLOSED"
	Category             string  `json:"category,omitempty"`
	Duration             int     `json:"duration,omitempty"` // minutes
	StartTime            Millis  `json:"startTime,omitzero"`
	EndTime              Millis  `json:"endTime,omitzero"`
}

// AuctionStatus constants
const (
	AuctionStatusActive = "ACTIVE"
	AuctionStatusClosed = "CLOSED"
)

// Auction creation defaults
const (
	DefaultAuctionDuration = 60
	DefaultAuctionCategory = "general"
)

// MinimumBid returns the amount a new bid has to exceed.
// Before the first bid this is the base price.
func (a *Auction) MinimumBid() float64 {
	if a.CurrentHighestBid > 0 {
		return a.CurrentHighestBid
	}
	return a.BasePrice
}

// HasBidder reports whether someone holds the highest bid.
// The API reports "None" when nobody has bid yet.
func (a *Auction) HasBidder() bool {
	return a.CurrentHighestBidder != "" && a.CurrentHighestBidder != "None"
}

// CreateAuctionRequest is the body of POST /auctions/create
type CreateAuctionRequest struct {
	ItemName        string  `json:"itemName"`
	ItemDescription string  `json:"itemDescription"`
	SellerID        string  `json:"sellerId"`
	BasePrice       float64 `json:"basePrice"`
	Duration        int     `json:"duration"` // minutes
	Category        string  `json:"category"`
}

// UnmarshalJSON accepts "id" as an alias for "auctionId"
func (a *Auction) UnmarshalJSON(data []byte) error {
	type plain Auction
	var aux struct {
		plain
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Auction(aux.plain)
	if a.AuctionID == "" {
		a.AuctionID = aux.ID
	}
	return nil
}
