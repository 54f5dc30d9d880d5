package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aaronwang/auction-client/shared/models"
)

// Notifications returns the notifications for username, newest first
func (c *Client) Notifications(ctx context.Context, username string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := c.callInto(ctx, request{
		method: http.MethodGet,
		path:   "/notifications",
		query:  url.Values{"username": {username}},
		auth:   true,
	}, &notifications)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount returns the number of unread notifications for username.
// The count arrives either as a bare number or as {"count"|"unreadCount": n}.
func (c *Client) UnreadCount(ctx context.Context, username string) (int, error) {
	data, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/notifications/unread-count",
		query:  url.Values{"username": {username}},
		auth:   true,
	})
	if err != nil {
		return 0, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, nil
	}
	if data[0] == '{' {
		var wrapped struct {
			Count       *int `json:"count"`
			UnreadCount *int `json:"unreadCount"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return 0, fmt.Errorf("failed to decode unread count: %w", err)
		}
		switch {
		case wrapped.Count != nil:
			return *wrapped.Count, nil
		case wrapped.UnreadCount != nil:
			return *wrapped.UnreadCount, nil
		}
		return 0, nil
	}

	var count int
	if err := json.Unmarshal(data, &count); err != nil {
		return 0, fmt.Errorf("failed to decode unread count: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read
func (c *Client) MarkRead(ctx context.Context, notificationID string) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/notifications/mark-read",
		body:   map[string]string{"notificationId": notificationID},
		auth:   true,
	})
	return err
}

// MarkAllRead marks every notification of username as read
func (c *Client) MarkAllRead(ctx context.Context, username string) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/notifications/mark-all-read",
		body:   map[string]string{"username": username},
		auth:   true,
	})
	return err
}
