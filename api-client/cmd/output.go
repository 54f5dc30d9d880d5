package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/aaronwang/auction-client/shared/models"
)

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	faintColor = color.New(color.Faint)
	boldColor  = color.New(color.Bold)
)

func printAuctions(w io.Writer, auctions []models.Auction) {
	if len(auctions) == 0 {
		faintColor.Fprintln(w, "No auctions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tSELLER\tHIGHEST\tLEADER\tSTATUS\tENDS")
	for i := range auctions {
		a := &auctions[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			a.AuctionID, a.ItemName, a.SellerID, a.MinimumBid(), leader(a), a.Status, when(a.EndTime))
	}
	tw.Flush()
}

func printAuction(w io.Writer, a *models.Auction, bids []models.Bid) {
	boldColor.Fprintf(w, "%s\n", a.ItemName)
	if a.ItemDescription != "" {
		fmt.Fprintln(w, a.ItemDescription)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", a.AuctionID)
	fmt.Fprintf(tw, "Seller\t%s\n", a.SellerID)
	fmt.Fprintf(tw, "Category\t%s\n", a.Category)
	fmt.Fprintf(tw, "Status\t%s\n", a.Status)
	fmt.Fprintf(tw, "Base price\t%.2f\n", a.BasePrice)
	fmt.Fprintf(tw, "Highest bid\t%.2f (%s)\n", a.CurrentHighestBid, leader(a))
	fmt.Fprintf(tw, "Ends\t%s\n", when(a.EndTime))
	tw.Flush()

	if len(bids) == 0 {
		return
	}
	fmt.Fprintln(w)
	boldColor.Fprintln(w, "Bids")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range bids {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\n", b.Amount, b.UserID, when(b.Timestamp))
	}
	tw.Flush()
}

func printNotifications(w io.Writer, notes []models.Notification) {
	if len(notes) == 0 {
		faintColor.Fprintln(w, "No notifications")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, n := range notes {
		marker := " "
		if !n.IsRead {
			marker = warnColor.Sprint("*")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, n.NotificationID, strings.ToLower(n.Type), n.Message, when(n.CreatedAt))
	}
	tw.Flush()
}

func leader(a *models.Auction) string {
	if a.HasBidder() {
		return a.CurrentHighestBidder
	}
	return "none"
}

func when(m models.Millis) string {
	if m.IsZero() {
		return "-"
	}
	return m.Time.Local().Format(time.DateTime)
}
