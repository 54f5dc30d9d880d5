package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aaronwang/auction-client/shared/models"
)

// SubjectPrefix is the NATS subject root for relayed events.
// Events for auction X are published on "auction.events.X".
const SubjectPrefix = "auction.events"

// SubjectWildcard matches every relayed auction
const SubjectWildcard = SubjectPrefix + ".*"

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// Subject returns the subject carrying events for auctionID. Characters
// with meaning in NATS subjects are replaced.
func Subject(auctionID string) string {
	return SubjectPrefix + "." + subjectReplacer.Replace(auctionID)
}

// NATSPublisher publishes events as JSON to NATS
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url with automatic reconnection
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	defaults := []nats.Option{
		nats.Name("auction-live"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish implements Publisher
func (p *NATSPublisher) Publish(_ context.Context, event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(Subject(event.AuctionID), data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

// Flush waits until the server has processed everything published so far
func (p *NATSPublisher) Flush() error {
	return p.conn.Flush()
}

// Close implements Publisher
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}
