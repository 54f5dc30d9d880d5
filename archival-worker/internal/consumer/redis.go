package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultPattern matches the channels the relay publishes on:
// "bid_events:{auctionID}"
const DefaultPattern = "bid_events:*"

// RedisConsumer archives events from Redis Pub/Sub. Pub/Sub keeps no
// backlog, so events published while the worker is down are missed;
// JetStream is the durable path.
type RedisConsumer struct {
	client   *redis.Client
	pattern  string
	archiver *archiver
	logger   zerolog.Logger
}

// NewRedisConsumer connects to Redis and verifies the connection
func NewRedisConsumer(addr, password string, db int, archive Archive, logger zerolog.Logger) (*RedisConsumer, error) {
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

	logger = logger.With().Str("component", "redis-consumer").Logger()
	return &RedisConsumer{
		client:   rdb,
		pattern:  DefaultPattern,
		archiver: newArchiver(archive, logger),
		logger:   logger,
	}, nil
}

// Start subscribes to the event channels and archives messages until ctx
// is cancelled. ready, if not nil, is closed once the subscription is live.
func (c *RedisConsumer) Start(ctx context.Context, ready chan<- struct{}) error {
	pubsub := c.client.PSubscribe(ctx, c.pattern)
	defer pubsub.Close()

	// wait for the subscription confirmation so nothing published after
	// Start reports ready is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.pattern, err)
	}
	c.logger.Info().Str("pattern", c.pattern).Msg("Subscribed to Redis channels")
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.archiver.handle(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

// Stats returns the message counters
func (c *RedisConsumer) Stats() Stats {
	return c.archiver.stats()
}

// Close closes the Redis connection
func (c *RedisConsumer) Close() error {
	return c.client.Close()
}
