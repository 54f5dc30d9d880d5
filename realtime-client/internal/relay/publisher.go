// Package relay mirrors accepted auction events onto message buses so
// other processes (the archival worker, dashboards) can follow them.
package relay

import (
	"context"
	"errors"

	"github.com/aaronwang/auction-client/shared/models"
)

// Publisher sends one event to a bus
type Publisher interface {
	Publish(ctx context.Context, event *models.Event) error
	Close() error
}

// NoopPublisher discards events (used when no bus is configured)
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(context.Context, *models.Event) error { return nil }

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }

// Multi publishes to every publisher in turn
type Multi []Publisher

// Publish implements Publisher. Every publisher is attempted; failures
// are joined.
func (m Multi) Publish(ctx context.Context, event *models.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
