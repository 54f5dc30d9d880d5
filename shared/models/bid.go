package models

// Bid represents a single bid on an auction
type Bid struct {
	BidID     string  `json:"bidId,omitempty"`
	AuctionID string  `json:"auctionId"`
	UserID    string  `json:"userId"`
	Amount    float64 `json:"amount"`
	Timestamp Millis  `json:"timestamp,omitzero"`
}

// Key identifies a bid for change detection. Servers that omit bid ids
// are handled by falling back to bidder, amount and time.
func (b *Bid) Key() string {
	if b.BidID != "" {
		return b.BidID
	}
	return b.UserID + "|" + formatAmount(b.Amount) + "|" + formatInt(b.Timestamp.UnixMilli())
}

// PlaceBidRequest is the body of POST /bids/place
type PlaceBidRequest struct {
	AuctionID string  `json:"auctionId"`
	UserID    string  `json:"userId"`
	Amount    float64 `json:"amount"`
}

// BidResult is the data returned after placing a bid. The server is the
// authority on acceptance; CurrentBid reflects its view after the call.
type BidResult struct {
	Accepted   bool    `json:"accepted"`
	Message    string  `json:"message,omitempty"`
	CurrentBid float64 `json:"currentBid,omitempty"`
	YourBid    float64 `json:"yourBid"`
}
