package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/aaronwang/auction-client/shared/models"
)

// listShape tags the layouts GET /auctions/list has been seen to return
type listShape int

const (
	shapeEmpty   listShape = iota
	shapeArray             // [Auction, ...]
	shapeWrapped           // {"auctions"|"items"|"results": [Auction, ...]}
	shapeRecords           // {"<id>": Auction, ...}
)

// wrapperKeys are checked in order when the list arrives wrapped in an object
var wrapperKeys = []string{"auctions", "items", "results"}

// classifyAuctionList determines the layout of raw and returns the part
// holding the auctions
func classifyAuctionList(raw json.RawMessage) (listShape, json.RawMessage, map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return shapeEmpty, nil, nil, nil
	}

	switch raw[0] {
	case '[':
		return shapeArray, raw, nil, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return shapeEmpty, nil, nil, err
		}
		for _, key := range wrapperKeys {
			if list, ok := fields[key]; ok && isJSONArray(list) {
				return shapeWrapped, list, nil, nil
			}
		}
		return shapeRecords, nil, fields, nil
	default:
		return shapeEmpty, nil, nil, fmt.Errorf("unexpected auction list payload starting with %q", raw[0])
	}
}

// decodeAuctionList canonicalizes every known list layout into a slice.
// Record maps are returned in key order; non-object values (such as a
// stray "success" flag) are skipped.
func decodeAuctionList(raw json.RawMessage) ([]models.Auction, error) {
	shape, list, records, err := classifyAuctionList(raw)
	if err != nil {
		return nil, err
	}

	switch shape {
	case shapeArray, shapeWrapped:
		var auctions []models.Auction
		if err := json.Unmarshal(list, &auctions); err != nil {
			return nil, fmt.Errorf("failed to decode auction list: %w", err)
		}
		return auctions, nil

	case shapeRecords:
		keys := make([]string, 0, len(records))
		for k := range records {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		auctions := make([]models.Auction, 0, len(keys))
		for _, k := range keys {
			value := bytes.TrimSpace(records[k])
			if len(value) == 0 || value[0] != '{' {
				continue
			}
			var a models.Auction
			if err := json.Unmarshal(value, &a); err != nil {
				return nil, fmt.Errorf("failed to decode auction %q: %w", k, err)
			}
			if a.AuctionID == "" {
				a.AuctionID = k
			}
			auctions = append(auctions, a)
		}
		return auctions, nil
	}

	return []models.Auction{}, nil
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// ListAuctions returns every auction from GET /auctions/list
func (c *Client) ListAuctions(ctx context.Context) ([]models.Auction, error) {
	data, err := c.call(ctx, request{method: http.MethodGet, path: "/auctions/list"})
	if err != nil {
		return nil, err
	}
	return decodeAuctionList(data)
}

// SellerAuctions returns the auctions created by sellerID
func (c *Client) SellerAuctions(ctx context.Context, sellerID string) ([]models.Auction, error) {
	data, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/auctions/seller",
		query:  url.Values{"sellerId": {sellerID}},
	})
	if err != nil {
		return nil, err
	}
	return decodeAuctionList(data)
}

// GetAuction returns a single auction
func (c *Client) GetAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	var auction models.Auction
	err := c.callInto(ctx, request{
		method: http.MethodGet,
		path:   "/auctions/" + url.PathEscape(auctionID),
	}, &auction)
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// CreateAuction creates an auction and returns it as stored by the server
func (c *Client) CreateAuction(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error) {
	var auction models.Auction
	err := c.callInto(ctx, request{
		method: http.MethodPost,
		path:   "/auctions/create",
		body:   req,
		auth:   true,
	}, &auction)
	if err != nil {
		return nil, err
	}
	return &auction, nil
}
