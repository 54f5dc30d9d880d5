package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/aaronwang/auction-client/shared/models"
)

// archiveNamespace seeds the deterministic ids of archived events
var archiveNamespace = uuid.MustParse("6f1c2a4e-9b7d-4c1e-8a53-2d0e5f7b9c31")

// PostgresClient wraps the PostgreSQL database connection
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewWithDB(db), nil
}

// NewWithDB wraps an open database
func NewWithDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// InitSchema creates the necessary database tables
func (c *PostgresClient) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS auctions (
		id VARCHAR(255) PRIMARY KEY,
		current_bid DECIMAL(12, 2) DEFAULT 0,
		highest_bidder_id VARCHAR(255),
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS auction_events (
		id UUID PRIMARY KEY,
		kind VARCHAR(32) NOT NULL,
		auction_id VARCHAR(255) NOT NULL,
		sender VARCHAR(255),
		recipient VARCHAR(255),
		content TEXT,
		bid_id VARCHAR(255),
		amount DECIMAL(12, 2),
		occurred_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_auction_events_auction_id ON auction_events(auction_id);
	CREATE INDEX IF NOT EXISTS idx_auction_events_occurred_at ON auction_events(occurred_at);
	`

	_, err := c.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// ArchiveID returns the row id for event. Every client that relays the
// same chat message or observes the same bid produces the same id, so
// the archive holds each once.
func ArchiveID(event *models.Event) uuid.UUID {
	var key string
	if event.Kind == models.EventKindBidUpdate && event.Bid != nil {
		key = "bid|" + event.AuctionID + "|" + event.Bid.Key()
	} else {
		fp := event.Fingerprint()
		key = "msg|" + event.AuctionID + "|" + fp.Sender + "|" + strconv.FormatInt(fp.Second, 10) + "|" + fp.Content
	}
	return uuid.NewSHA1(archiveNamespace, []byte(key))
}

// InsertEvent archives an event. It reports false when the event was
// already archived.
func (c *PostgresClient) InsertEvent(ctx context.Context, event *models.Event) (bool, error) {
	query := `
		INSERT INTO auction_events (id, kind, auction_id, sender, recipient, content, bid_id, amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	var (
		bidID  sql.NullString
		amount sql.NullFloat64
	)
	if event.Bid != nil {
		bidID = sql.NullString{String: event.Bid.BidID, Valid: event.Bid.BidID != ""}
		amount = sql.NullFloat64{Float64: event.Bid.Amount, Valid: true}
	}

	result, err := c.db.ExecContext(
		ctx,
		query,
		ArchiveID(event).String(),
		string(event.Kind),
		event.AuctionID,
		event.Sender,
		event.Recipient,
		event.Content,
		bidID,
		amount,
		event.Timestamp.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// UpdateAuctionHighest records a bid as the auction's highest unless a
// higher one is already known
func (c *PostgresClient) UpdateAuctionHighest(ctx context.Context, auctionID string, amount float64, bidderID string) error {
	query := `
		INSERT INTO auctions (id, current_bid, highest_bidder_id, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE
		SET current_bid = EXCLUDED.current_bid,
		    highest_bidder_id = EXCLUDED.highest_bidder_id,
		    updated_at = CURRENT_TIMESTAMP
		WHERE auctions.current_bid < EXCLUDED.current_bid
	`

	if _, err := c.db.ExecContext(ctx, query, auctionID, amount, bidderID); err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	return nil
}

// GetEventHistory retrieves the newest archived events of an auction
func (c *PostgresClient) GetEventHistory(ctx context.Context, auctionID string, limit int) ([]*models.Event, error) {
	query := `
		SELECT id, kind, auction_id, sender, recipient, content, bid_id, amount, occurred_at
		FROM auction_events
		WHERE auction_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := c.db.QueryContext(ctx, query, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var (
			e      models.Event
			kind   string
			sender sql.NullString
			recip  sql.NullString
			text   sql.NullString
			bidID  sql.NullString
			amount sql.NullFloat64
		)
		err := rows.Scan(&e.ID, &kind, &e.AuctionID, &sender, &recip, &text, &bidID, &amount, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = models.EventKind(kind)
		e.Sender = sender.String
		e.Recipient = recip.String
		e.Content = text.String
		if e.Kind == models.EventKindBidUpdate {
			e.Bid = &models.Bid{
				BidID:     bidID.String,
				AuctionID: e.AuctionID,
				UserID:    e.Sender,
				Amount:    amount.Float64,
				Timestamp: models.MillisOf(e.Timestamp),
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	return c.db.Close()
}
