package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aaronwang/auction-client/shared/models"
)

// ChatMessages returns the persisted chat history for an auction in
// server order
func (c *Client) ChatMessages(ctx context.Context, auctionID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := c.callInto(ctx, request{
		method: http.MethodGet,
		path:   "/chat/messages",
		query:  url.Values{"auctionId": {auctionID}},
	}, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}
