package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMillis_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
		zero bool
	}{
		{"number", `1700000000123`, 1700000000123, false},
		{"fractional number", `1700000000123.9`, 1700000000123, false},
		{"numeric string", `"1700000000123"`, 1700000000123, false},
		{"rfc3339", `"2023-11-14T22:13:20.5Z"`, 1700000000500, false},
		{"local iso", `"2023-11-14T22:13:20"`, 1700000000000, false},
		{"sql", `"2023-11-14 22:13:20"`, 1700000000000, false},
		{"null", `null`, 0, true},
		{"empty string", `""`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Millis
			require.NoError(t, json.Unmarshal([]byte(tt.in), &m))
			if tt.zero {
				assert.True(t, m.IsZero())
				return
			}
			assert.Equal(t, tt.want, m.UnixMilli())
		})
	}
}

func TestMillis_UnmarshalInvalid(t *testing.T) {
	var m Millis
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &m))
	assert.Error(t, json.Unmarshal([]byte(`true`), &m))
}

func TestMillis_Marshal(t *testing.T) {
	data, err := json.Marshal(MillisOf(time.UnixMilli(1700000000123)))
	require.NoError(t, err)
	assert.Equal(t, "1700000000123", string(data))

	data, err = json.Marshal(Bid{AuctionID: "a", UserID: "u", Amount: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "timestamp")
}

func TestEvent_Fingerprint(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	a := NewMessageEvent("AUC-1", "alice", "bob", "hi", base.Add(100*time.Millisecond))
	b := NewMessageEvent("AUC-1", "alice", "bob", "hi", base.Add(900*time.Millisecond))
	c := NewMessageEvent("AUC-1", "alice", "bob", "hi", base.Add(1000*time.Millisecond))

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Equal(t, int64(1700000000), a.Fingerprint().Second)
}

func TestEvent_FingerprintNegative(t *testing.T) {
	e := &Event{Sender: "x", Timestamp: time.UnixMilli(-1)}
	assert.Equal(t, int64(-1), e.Fingerprint().Second)
}

func TestNewBidUpdateEvent(t *testing.T) {
	bid := Bid{BidID: "b1", AuctionID: "AUC-1", UserID: "bob", Amount: 200}
	e := NewBidUpdateEvent("AUC-1", bid, time.Now())

	assert.Equal(t, EventKindBidUpdate, e.Kind)
	assert.Equal(t, "bob", e.Sender)
	require.NotNil(t, e.Bid)
	assert.Equal(t, 200.0, e.Bid.Amount)
}

func TestBid_Key(t *testing.T) {
	withID := Bid{BidID: "b1", UserID: "bob", Amount: 10}
	assert.Equal(t, "b1", withID.Key())

	withoutID := Bid{UserID: "bob", Amount: 10.5, Timestamp: MillisOf(time.UnixMilli(42))}
	assert.Equal(t, "bob|10.50|42", withoutID.Key())
}

func TestAuction_UnmarshalIDAlias(t *testing.T) {
	var a Auction
	require.NoError(t, json.Unmarshal([]byte(`{"id":"AUC-7","itemName":"Lamp","basePrice":5}`), &a))
	assert.Equal(t, "AUC-7", a.AuctionID)
	assert.Equal(t, "Lamp", a.ItemName)

	require.NoError(t, json.Unmarshal([]byte(`{"auctionId":"AUC-8","id":"other"}`), &a))
	assert.Equal(t, "AUC-8", a.AuctionID)
}

func TestAuction_MinimumBidAndBidder(t *testing.T) {
	a := Auction{BasePrice: 50}
	assert.Equal(t, 50.0, a.MinimumBid())
	assert.False(t, a.HasBidder())

	a.CurrentHighestBid = 80
	a.CurrentHighestBidder = "None"
	assert.Equal(t, 80.0, a.MinimumBid())
	assert.False(t, a.HasBidder())

	a.CurrentHighestBidder = "bob"
	assert.True(t, a.HasBidder())
}
