package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/aaronwang/auction-client/realtime-client/internal/router"
	"github.com/aaronwang/auction-client/shared/models"
)

// printer renders events as coloured terminal lines. Router and poller
// callbacks arrive on different goroutines, so writes are serialized.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	self string

	own    *color.Color
	peer   *color.Color
	bid    *color.Color
	system *color.Color
}

func newPrinter(w io.Writer, self string) *printer {
	return &printer{
		w:      w,
		self:   self,
		own:    color.New(color.FgCyan),
		peer:   color.New(color.FgGreen, color.Bold),
		bid:    color.New(color.FgYellow),
		system: color.New(color.Faint),
	}
}

func (p *printer) line(c *color.Color, at time.Time, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", at.Local().Format("15:04:05"), c.Sprintf(format, args...))
}

func (p *printer) message(e *models.Event) {
	if e.IsOwnMessage {
		p.line(p.own, e.Timestamp, "[%s] you -> %s: %s", e.AuctionID, e.Recipient, e.Content)
		return
	}
	p.line(p.peer, e.Timestamp, "[%s] %s: %s", e.AuctionID, e.Sender, e.Content)
}

func (p *printer) history(tl router.Timeline) {
	shown := 0
	for i := range tl.Events {
		if tl.Events[i].FromHistory {
			p.message(&tl.Events[i])
			shown++
		}
	}
	if tl.State() == router.StateEmpty {
		p.systemf("[%s] no messages yet", tl.TopicID)
	} else if shown > 0 {
		p.systemf("[%s] %d earlier messages", tl.TopicID, shown)
	}
}

func (p *printer) bidUpdate(e *models.Event) {
	if e.Bid == nil {
		return
	}
	p.line(p.bid, e.Timestamp, "[%s] highest bid %.2f by %s", e.AuctionID, e.Bid.Amount, e.Bid.UserID)
}

func (p *printer) auction(a *models.Auction) {
	bidder := "nobody yet"
	if a.HasBidder() {
		bidder = a.CurrentHighestBidder
	}
	p.systemf("[%s] %s: next bid must exceed %.2f (leader: %s, status: %s)",
		a.AuctionID, a.ItemName, a.MinimumBid(), bidder, a.Status)
}

func (p *printer) connection(connected bool) {
	if connected {
		p.systemf("connected to chat as %s", p.self)
		return
	}
	p.systemf("chat connection lost")
}

func (p *printer) systemf(format string, args ...any) {
	p.line(p.system, time.Now(), format, args...)
}
