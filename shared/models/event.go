package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind distinguishes chat messages from bid updates
type EventKind string

// EventKind constants
const (
	EventKindMessage   EventKind = "message"
	EventKindBidUpdate EventKind = "bidUpdate"
)

// Event is a normalized inbound message or bid update for one auction.
// Events come from three places:
// 1. The chat socket (live messages and echoes of our own messages)
// 2. The chat history endpoint (FromHistory set)
// 3. The bid poller (Kind == EventKindBidUpdate)
type Event struct {
	ID           string    `json:"id"`
	Kind         EventKind `json:"kind"`
	AuctionID    string    `json:"auctionId"`
	Sender       string    `json:"sender,omitempty"`
	Recipient    string    `json:"recipient,omitempty"`
	Content      string    `json:"content,omitempty"`
	Bid          *Bid      `json:"bid,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsOwnMessage bool      `json:"isOwnMessage"`
	FromHistory  bool      `json:"fromHistory,omitempty"`
	Raw          string    `json:"raw,omitempty"`
}

// NewMessageEvent creates a message event with a fresh id
func NewMessageEvent(auctionID, sender, recipient, content string, at time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Kind:      EventKindMessage,
		AuctionID: auctionID,
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Timestamp: at,
	}
}

// NewBidUpdateEvent creates a bid update event for the latest bid of an auction
func NewBidUpdateEvent(auctionID string, bid Bid, at time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Kind:      EventKindBidUpdate,
		AuctionID: auctionID,
		Sender:    bid.UserID,
		Bid:       &bid,
		Timestamp: at,
	}
}

// Fingerprint identifies an event for duplicate detection. Two events with
// the same sender and content inside the same wall-clock second are
// considered the same message, whichever path delivered them.
type Fingerprint struct {
	Sender  string
	Content string
	Second  int64
}

// Fingerprint returns the event's duplicate-detection key.
// The timestamp is truncated toward negative infinity to whole seconds.
func (e *Event) Fingerprint() Fingerprint {
	ms := e.Timestamp.UnixMilli()
	sec := ms / 1000
	if ms < 0 && ms%1000 != 0 {
		sec--
	}
	return Fingerprint{
		Sender:  e.Sender,
		Content: e.Content,
		Second:  sec,
	}
}
