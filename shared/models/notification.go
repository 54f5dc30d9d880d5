package models

// Notification is a user notification from GET /notifications
type Notification struct {
	NotificationID string `json:"notificationId"`
	Username       string `json:"username,omitempty"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	AuctionID      string `json:"auctionId,omitempty"`
	IsRead         bool   `json:"isRead"`
	CreatedAt      Millis `json:"createdAt,omitzero"`
}

// Notification types emitted by the auction service
const (
	NotificationBidWon     = "BID_WON"
	NotificationOutbid     = "OUTBID"
	NotificationAuctionEnd = "AUCTION_ENDED"
	NotificationNewMessage = "NEW_MESSAGE"
	NotificationNewBid     = "NEW_BID"
)
