package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/shared/models"
)

type fakeNotificationAPI struct {
	mu       sync.Mutex
	counts   []int
	polls    int
	marked   []string
	allReads []string
}

func (f *fakeNotificationAPI) Notifications(_ context.Context, _ string) ([]models.Notification, error) {
	return []models.Notification{
		{NotificationID: "n1", Type: models.NotificationOutbid, IsRead: false},
		{NotificationID: "n2", Type: models.NotificationNewBid, IsRead: true},
		{NotificationID: "n3", Type: models.NotificationNewMessage, IsRead: false},
	}, nil
}

// UnreadCount replays counts; a negative value is a failed poll
func (f *fakeNotificationAPI) UnreadCount(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if i >= len(f.counts) {
		i = len(f.counts) - 1
	}
	if f.counts[i] < 0 {
		return 0, errors.New("unavailable")
	}
	return f.counts[i], nil
}

func (f *fakeNotificationAPI) MarkRead(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeNotificationAPI) MarkAllRead(_ context.Context, username string) error {
	f.allReads = append(f.allReads, username)
	return nil
}

func TestNotifications_List(t *testing.T) {
	s := NewNotificationService(&fakeNotificationAPI{}, 0, zerolog.Nop())
	assert.Equal(t, DefaultNotificationInterval, s.interval)

	all, err := s.List(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	unread, err := s.List(context.Background(), "alice", true)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "n1", unread[0].NotificationID)
	assert.Equal(t, "n3", unread[1].NotificationID)
}

func TestNotifications_Mark(t *testing.T) {
	fake := &fakeNotificationAPI{}
	s := NewNotificationService(fake, 0, zerolog.Nop())

	assert.ErrorIs(t, s.MarkRead(context.Background(), ""), ErrInvalidInput)
	require.NoError(t, s.MarkRead(context.Background(), "n1"))
	require.NoError(t, s.MarkAllRead(context.Background(), "alice"))

	assert.Equal(t, []string{"n1"}, fake.marked)
	assert.Equal(t, []string{"alice"}, fake.allReads)
}

func TestNotifications_WatchUnreadReportsChanges(t *testing.T) {
	fake := &fakeNotificationAPI{counts: []int{2, 2, -1, 3, 0}}
	s := NewNotificationService(fake, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []int
	done := make(chan error, 1)
	go func() {
		done <- s.WatchUnread(ctx, "alice", func(count int) {
			mu.Lock()
			seen = append(seen, count)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 3, 0}, seen)
}
