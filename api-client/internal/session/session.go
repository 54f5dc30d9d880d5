// Package session persists the logged-in user between auctionctl runs.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/aaronwang/auction-client/shared/models"
)

// ErrNoSession is returned by Load when nobody is logged in
var ErrNoSession = errors.New("not logged in")

// Session is the token and account of the logged-in user
type Session struct {
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	SavedAt time.Time   `json:"savedAt"`
}

// Store saves and restores a Session
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}
