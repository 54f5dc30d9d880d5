package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/shared/models"
)

func auctionIDs(auctions []models.Auction) []string {
	ids := make([]string, 0, len(auctions))
	for _, a := range auctions {
		ids = append(ids, a.AuctionID)
	}
	return ids
}

func TestDecodeAuctionList_Shapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `[{"auctionId":"a1"},{"auctionId":"a2"}]`, []string{"a1", "a2"}},
		{"wrapped auctions", `{"auctions":[{"auctionId":"a1"}]}`, []string{"a1"}},
		{"wrapped items", `{"items":[{"id":"a2"}]}`, []string{"a2"}},
		{"wrapped results", `{"results":[{"auctionId":"a3"}],"total":1}`, []string{"a3"}},
		{"records", `{"b":{"itemName":"Lamp"},"a":{"auctionId":"x1"},"ok":true}`, []string{"x1", "b"}},
		{"null", `null`, []string{}},
		{"empty", ``, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAuctionList(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, auctionIDs(got))
		})
	}
}

func TestDecodeAuctionList_RejectsScalars(t *testing.T) {
	_, err := decodeAuctionList(json.RawMessage(`"nope"`))
	assert.Error(t, err)
}

func TestListAuctions(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/auctions/list", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data": map[string]any{"auctions": []map[string]any{
					{"auctionId": "AUC-100", "itemName": "Camera", "basePrice": 50, "currentHighestBid": 75},
				}},
			})
		}).Methods(http.MethodGet)
	})

	auctions, err := c.ListAuctions(context.Background())
	require.NoError(t, err)
	require.Len(t, auctions, 1)
	assert.Equal(t, "Camera", auctions[0].ItemName)
	assert.Equal(t, 75.0, auctions[0].MinimumBid())
}

func TestSellerAuctions(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/auctions/seller", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "seller1", req.URL.Query().Get("sellerId"))
			writeJSON(w, http.StatusOK, []map[string]any{{"auctionId": "AUC-1"}, {"auctionId": "AUC-2"}})
		})
	})

	auctions, err := c.SellerAuctions(context.Background(), "seller1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AUC-1", "AUC-2"}, auctionIDs(auctions))
}

func TestGetAuction(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/auctions/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]any{"auctionId": mux.Vars(req)["id"], "status": "ACTIVE"},
			})
		})
	})

	auction, err := c.GetAuction(context.Background(), "AUC-100")
	require.NoError(t, err)
	assert.Equal(t, "AUC-100", auction.AuctionID)
	assert.Equal(t, models.AuctionStatusActive, auction.Status)
}

func TestCreateAuction(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/auctions/create", func(w http.ResponseWriter, req *http.Request) {
			var body models.CreateAuctionRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]any{"auctionId": "AUC-9", "itemName": body.ItemName, "sellerId": body.SellerID},
			})
		}).Methods(http.MethodPost)
	})

	auction, err := c.CreateAuction(context.Background(), &models.CreateAuctionRequest{
		ItemName: "Lamp",
		SellerID: "seller1",
	})
	require.NoError(t, err)
	assert.Equal(t, "AUC-9", auction.AuctionID)
	assert.Equal(t, "seller1", auction.SellerID)
}
