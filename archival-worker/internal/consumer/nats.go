// Package consumer archives the auction events relayed by auction-live
// clients. Events are read from a JetStream stream so nothing published
// while the worker is down is lost; Redis Pub/Sub can be read as well.
package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// Stream defaults. The subject matches what the relay publishes.
const (
	DefaultStream   = "AUCTION_EVENTS"
	DefaultDurable  = "archival-worker"
	DefaultSubjects = "auction.events.*"
)

// Config describes the stream and consumer
type Config struct {
	URL        string
	Stream     string
	Durable    string
	Subjects   []string
	MaxAge     time.Duration
	MaxDeliver int
}

// DefaultConfig returns the config for a server at url
func DefaultConfig(url string) Config {
	return Config{
		URL:        url,
		Stream:     DefaultStream,
		Durable:    DefaultDurable,
		Subjects:   []string{DefaultSubjects},
		MaxAge:     24 * time.Hour,
		MaxDeliver: 5,
	}
}

// NATSConsumer consumes auction events from JetStream and persists them
type NATSConsumer struct {
	cfg      Config
	conn     *nats.Conn
	consumer jetstream.Consumer
	archiver *archiver
	logger   zerolog.Logger
}

// NewNATSConsumer connects, ensures the stream and durable consumer
// exist, and returns a consumer ready to Start
func NewNATSConsumer(ctx context.Context, cfg Config, archive Archive, logger zerolog.Logger) (*NATSConsumer, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name(cfg.Durable))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Relayed auction chat messages and bid updates",
		Subjects:    cfg.Subjects,
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy, // each event archived once
		MaxAge:      cfg.MaxAge,
		Replicas:    1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:    cfg.Durable,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    30 * time.Second,
		MaxDeliver: cfg.MaxDeliver,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	logger = logger.With().Str("component", "nats-consumer").Logger()
	logger.Info().Str("stream", cfg.Stream).Strs("subjects", cfg.Subjects).Msg("Stream ready")

	return &NATSConsumer{
		cfg:      cfg,
		conn:     conn,
		consumer: cons,
		archiver: newArchiver(archive, logger),
		logger:   logger,
	}, nil
}

// Start consumes messages until ctx is cancelled
func (c *NATSConsumer) Start(ctx context.Context) error {
	cc, err := c.consumer.Consume(func(msg jetstream.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}
	defer cc.Stop()

	c.logger.Info().Str("durable", c.cfg.Durable).Msg("Consuming auction events")

	<-ctx.Done()
	return nil
}

// handleMessage processes a single event message.
// Malformed messages are terminated so they are not redelivered; storage
// failures are negatively acknowledged for a retry.
func (c *NATSConsumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var err error
	switch c.archiver.handle(ctx, msg.Subject(), msg.Data()) {
	case outcomeRejected:
		err = msg.Term()
	case outcomeFailed:
		err = msg.Nak()
	default:
		err = msg.Ack()
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("Failed to acknowledge message")
	}
}

// Stats returns the message counters
func (c *NATSConsumer) Stats() Stats {
	return c.archiver.stats()
}

// Close drains the NATS connection
func (c *NATSConsumer) Close() error {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
	return nil
}
