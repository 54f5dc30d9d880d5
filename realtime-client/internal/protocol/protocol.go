// Package protocol encodes and decodes the chat server's text frames.
//
// Inbound private messages look like
//
//	[Private from <sender>] [Auction:<id>] <content>
//	[Private to <recipient>] [Auction:<id>] <content>
//
// the second form being the server's echo of a message we sent. Every
// other frame (join notices, command replies, broadcasts) is ignored.
package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aaronwang/auction-client/shared/models"
)

// Direction tells whether a frame was sent to us or echoed back to us
type Direction int

// Direction constants
const (
	FrameReceived Direction = iota + 1
	FrameEcho
)

func (d Direction) String() string {
	switch d {
	case FrameReceived:
		return "received"
	case FrameEcho:
		return "echo"
	}
	return "unknown"
}

// QuitFrame asks the server to end the session
const QuitFrame = "/quit"

const (
	privateMarker = "[Private"
	auctionMarker = "[Auction:"
)

// Unanchored: servers may prefix frames, with a timestamp for example
var privatePattern = regexp.MustCompile(`(?s)\[Private (from|to) ([^\]\s]+)\] \[Auction:([^\]\s]+)\] (.+)$`)

// Encoding errors
var (
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidAuctionID = errors.New("invalid auction id")
	ErrEmptyContent     = errors.New("empty message content")
)

// Frame is a decoded private message
type Frame struct {
	Direction Direction
	// Peer is the sender of a received frame or the recipient of an echo
	Peer      string
	AuctionID string
	Content   string
	Raw       string
}

// Decode parses a raw text frame. It reports false for anything that is
// not a private auction message.
func Decode(raw string) (Frame, bool) {
	if !strings.Contains(raw, privateMarker) || !strings.Contains(raw, auctionMarker) {
		return Frame{}, false
	}

	m := privatePattern.FindStringSubmatch(strings.TrimRight(raw, "\r\n"))
	if m == nil {
		return Frame{}, false
	}

	f := Frame{
		Direction: FrameReceived,
		Peer:      m[2],
		AuctionID: m[3],
		Content:   m[4],
		Raw:       raw,
	}
	if m[1] == "to" {
		f.Direction = FrameEcho
	}
	return f, true
}

// Event converts the frame into a message event as seen by self
func (f Frame) Event(self string, at time.Time) *models.Event {
	var e *models.Event
	if f.Direction == FrameEcho {
		e = models.NewMessageEvent(f.AuctionID, self, f.Peer, f.Content, at)
		e.IsOwnMessage = true
	} else {
		e = models.NewMessageEvent(f.AuctionID, f.Peer, self, f.Content, at)
	}
	e.Raw = f.Raw
	return e
}

// PrivateMessage builds the outbound frame for a private message:
//
//	/msg <recipient> [Auction:<id>] <content>
func PrivateMessage(recipient, auctionID, content string) (string, error) {
	if !validField(recipient) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, recipient)
	}
	if !validField(auctionID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAuctionID, auctionID)
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	return "/msg " + recipient + " " + auctionMarker + auctionID + "] " + content, nil
}

// validField reports whether s can appear inside a bracketed frame field
func validField(s string) bool {
	return s != "" && !strings.ContainsAny(s, "] \t\r\n")
}
