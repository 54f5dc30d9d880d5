package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aaronwang/auction-client/shared/models"
)

// ChannelPrefix is the Redis Pub/Sub channel root: "bid_events:{auctionID}"
const ChannelPrefix = "bid_events:"

// Channel returns the channel carrying events for auctionID
func Channel(auctionID string) string {
	return ChannelPrefix + auctionID
}

// AuctionFromChannel extracts the auction id from a channel name.
// Example: "bid_events:AUC-1" -> "AUC-1"
func AuctionFromChannel(channel string) string {
	return strings.TrimPrefix(channel, ChannelPrefix)
}

// RedisPublisher publishes events to Redis Pub/Sub
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and verifies the connection
func NewRedisPublisher(addr, password string, db int) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPublisher{client: rdb}, nil
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(event.AuctionID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

// Close implements Publisher
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
