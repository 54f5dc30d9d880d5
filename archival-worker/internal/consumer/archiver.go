package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/models"
)

// Archive stores events
type Archive interface {
	InsertEvent(ctx context.Context, event *models.Event) (bool, error)
	UpdateAuctionHighest(ctx context.Context, auctionID string, amount float64, bidderID string) error
}

// Stats counts handled messages
type Stats struct {
	Archived   int64
	Duplicates int64
	Rejected   int64
	Failed     int64
}

type outcome int

const (
	outcomeArchived outcome = iota
	outcomeDuplicate
	outcomeRejected // malformed, never retried
	outcomeFailed   // storage error, worth retrying
)

// archiver decodes relayed payloads and writes them to the archive. It is
// shared by every transport the worker reads from.
type archiver struct {
	archive Archive
	logger  zerolog.Logger

	archived   atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64
	failed     atomic.Int64
}

func newArchiver(archive Archive, logger zerolog.Logger) *archiver {
	return &archiver{archive: archive, logger: logger}
}

func (a *archiver) handle(ctx context.Context, source string, data []byte) outcome {
	event, err := decode(data)
	if err != nil {
		a.rejected.Add(1)
		a.logger.Warn().Err(err).Str("source", source).Msg("Dropping malformed event")
		return outcomeRejected
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	inserted, err := a.persist(dbCtx, event)
	if err != nil {
		a.failed.Add(1)
		a.logger.Error().Err(err).Str("source", source).Str("event_id", event.ID).Msg("Failed to persist event")
		return outcomeFailed
	}

	if !inserted {
		a.duplicates.Add(1)
		return outcomeDuplicate
	}
	a.archived.Add(1)
	a.logger.Debug().
		Str("source", source).
		Str("event_id", event.ID).
		Str("auction_id", event.AuctionID).
		Str("kind", string(event.Kind)).
		Msg("Archived event")
	return outcomeArchived
}

func decode(data []byte) (*models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.AuctionID == "" {
		return nil, errors.New("event has no auction id")
	}
	switch event.Kind {
	case models.EventKindMessage:
	case models.EventKindBidUpdate:
		if event.Bid == nil {
			return nil, errors.New("bid update without bid")
		}
	default:
		return nil, fmt.Errorf("unknown event kind %q", event.Kind)
	}
	return &event, nil
}

// persist writes the event and, for bid updates, the auction's highest
// bid. The highest-bid update is idempotent and runs for redeliveries too.
func (a *archiver) persist(ctx context.Context, event *models.Event) (bool, error) {
	inserted, err := a.archive.InsertEvent(ctx, event)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	if event.Kind == models.EventKindBidUpdate {
		if err := a.archive.UpdateAuctionHighest(ctx, event.AuctionID, event.Bid.Amount, event.Bid.UserID); err != nil {
			return false, fmt.Errorf("failed to update auction: %w", err)
		}
	}

	return inserted, nil
}

func (a *archiver) stats() Stats {
	return Stats{
		Archived:   a.archived.Load(),
		Duplicates: a.duplicates.Load(),
		Rejected:   a.rejected.Load(),
		Failed:     a.failed.Load(),
	}
}
