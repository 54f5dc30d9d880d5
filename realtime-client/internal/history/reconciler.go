// Package history seeds topic timelines with persisted chat messages so
// that live echoes of already-stored messages are recognised as duplicates.
package history

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/models"
)

// MessageSource fetches the persisted messages of an auction
type MessageSource interface {
	ChatMessages(ctx context.Context, auctionID string) ([]models.ChatMessage, error)
}

// Sink receives converted history. *router.Router satisfies it.
type Sink interface {
	Merge(topicID string, events []*models.Event) int
	MarkLoaded(topicID string, err error)
}

// Reconciler loads history into a Sink
type Reconciler struct {
	source MessageSource
	sink   Sink
	logger zerolog.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(source MessageSource, sink Sink, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		source: source,
		sink:   sink,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Load fetches the messages of auctionID and merges them into the sink as
// seen by self. It returns the number of rows added; running it again
// adds nothing for messages already visible. On failure the topic is
// still marked loaded, carrying the error.
func (r *Reconciler) Load(ctx context.Context, auctionID, self string) (int, error) {
	messages, err := r.source.ChatMessages(ctx, auctionID)
	if err != nil {
		r.logger.Warn().Err(err).Str("auction_id", auctionID).Msg("Failed to load chat history")
		r.sink.MarkLoaded(auctionID, err)
		return 0, fmt.Errorf("failed to load history for auction %s: %w", auctionID, err)
	}

	events := make([]*models.Event, 0, len(messages))
	for i := range messages {
		events = append(events, ToEvent(auctionID, &messages[i], self))
	}
	added := r.sink.Merge(auctionID, events)

	r.logger.Debug().
		Str("auction_id", auctionID).
		Int("fetched", len(messages)).
		Int("added", added).
		Msg("Loaded chat history")
	return added, nil
}

// ToEvent converts a persisted message into a history event
func ToEvent(auctionID string, msg *models.ChatMessage, self string) *models.Event {
	e := models.NewMessageEvent(auctionID, msg.SenderUsername, msg.RecipientUsername, msg.Content, msg.Timestamp.Time)
	e.FromHistory = true
	e.IsOwnMessage = self != "" && msg.SenderUsername == self
	return e
}

// Counterparts returns, in first-seen order, the users other than self
// who wrote in events. When nobody has written yet, fallback is returned
// if it names someone.
func Counterparts(events []models.Event, self, fallback string) []string {
	seen := make(map[string]bool)
	var users []string
	for _, e := range events {
		if e.Kind != models.EventKindMessage || e.Sender == "" || e.Sender == self || seen[e.Sender] {
			continue
		}
		seen[e.Sender] = true
		users = append(users, e.Sender)
	}
	if len(users) == 0 && fallback != "" && fallback != "None" && fallback != self {
		users = append(users, fallback)
	}
	return users
}
