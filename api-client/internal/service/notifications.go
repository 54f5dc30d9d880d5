package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/models"
)

// DefaultNotificationInterval is how often WatchUnread polls
const DefaultNotificationInterval = 10 * time.Second

// NotificationAPI is the part of the REST client notifications need
type NotificationAPI interface {
	Notifications(ctx context.Context, username string) ([]models.Notification, error)
	UnreadCount(ctx context.Context, username string) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, username string) error
}

// NotificationService reads and acknowledges a user's notifications
type NotificationService struct {
	api      NotificationAPI
	interval time.Duration
	logger   zerolog.Logger
}

// NewNotificationService creates a notification service polling every
// interval; zero uses DefaultNotificationInterval.
func NewNotificationService(notificationAPI NotificationAPI, interval time.Duration, logger zerolog.Logger) *NotificationService {
	if interval <= 0 {
		interval = DefaultNotificationInterval
	}
	return &NotificationService{
		api:      notificationAPI,
		interval: interval,
		logger:   logger.With().Str("component", "notifications").Logger(),
	}
}

// List returns the user's notifications, newest first as the server orders them
func (s *NotificationService) List(ctx context.Context, username string, unreadOnly bool) ([]models.Notification, error) {
	all, err := s.api.Notifications(ctx, username)
	if err != nil || !unreadOnly {
		return all, err
	}
	unread := all[:0]
	for _, n := range all {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// UnreadCount returns how many notifications are unread
func (s *NotificationService) UnreadCount(ctx context.Context, username string) (int, error) {
	return s.api.UnreadCount(ctx, username)
}

// MarkRead acknowledges one notification
func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return invalid("notificationId", "Notification ID is required")
	}
	return s.api.MarkRead(ctx, notificationID)
}

// MarkAllRead acknowledges every notification of username
func (s *NotificationService) MarkAllRead(ctx context.Context, username string) error {
	return s.api.MarkAllRead(ctx, username)
}

// WatchUnread polls the unread count until ctx is done, calling fn with the
// first count and whenever it changes. Failed polls are logged and skipped.
func (s *NotificationService) WatchUnread(ctx context.Context, username string, fn func(count int)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := -1
	poll := func() {
		count, err := s.api.UnreadCount(ctx, username)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn().Err(err).Str("username", username).Msg("Failed to fetch unread count")
			}
			return
		}
		if count != last {
			last = count
			fn(count)
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}
