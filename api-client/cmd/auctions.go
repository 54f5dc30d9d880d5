package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aaronwang/auction-client/api-client/internal/service"
	"github.com/aaronwang/auction-client/shared/models"
)

var (
	listSeller string
	listMine   bool

	createItem        string
	createDescription string
	createBasePrice   float64
	createDuration    int
	createCategory    string
)

var auctionsCmd = &cobra.Command{
	Use:   "auctions",
	Short: "List, show and create auctions",
}

var auctionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List auctions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seller := listSeller
		if listMine {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			seller = sess.User.Username
		}

		list, err := service.NewAuctionService(client, logger).List(cmd.Context(), seller)
		if err != nil {
			return err
		}
		printAuctions(os.Stdout, list)
		return nil
	},
}

var auctionsShowCmd = &cobra.Command{
	Use:   "show <auction-id>",
	Short: "Show an auction and its bids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auction, err := service.NewAuctionService(client, logger).Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		bids, err := client.BidHistory(cmd.Context(), auction.AuctionID)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to load bid history")
		}
		printAuction(os.Stdout, auction, bids)
		return nil
	},
}

var auctionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "List an item for auction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		auction, err := service.NewAuctionService(client, logger).Create(cmd.Context(), &models.CreateAuctionRequest{
			ItemName:        createItem,
			ItemDescription: createDescription,
			SellerID:        sess.User.Username,
			BasePrice:       createBasePrice,
			Duration:        createDuration,
			Category:        createCategory,
		})
		if err != nil {
			return err
		}
		okColor.Printf("Created auction %s\n", auction.AuctionID)
		return nil
	},
}

var bidCmd = &cobra.Command{
	Use:   "bid <auction-id> <amount>",
	Short: "Place a bid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}

		bidding := service.NewBiddingService(client, logger)
		defer bidding.Close()

		result, err := bidding.PlaceBid(cmd.Context(), args[0], sess.User.Username, amount)
		if err != nil {
			return err
		}
		okColor.Printf("Bid of $%.2f placed", result.YourBid)
		if result.Message != "" {
			fmt.Printf(": %s", result.Message)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	auctionsListCmd.Flags().StringVar(&listSeller, "seller", "", "only auctions of this seller")
	auctionsListCmd.Flags().BoolVar(&listMine, "mine", false, "only your own auctions")

	auctionsCreateCmd.Flags().StringVar(&createItem, "item", "", "item name")
	auctionsCreateCmd.Flags().StringVar(&createDescription, "description", "", "item description")
	auctionsCreateCmd.Flags().Float64Var(&createBasePrice, "base-price", 0, "starting price")
	auctionsCreateCmd.Flags().IntVar(&createDuration, "duration", models.DefaultAuctionDuration, "duration in minutes")
	auctionsCreateCmd.Flags().StringVar(&createCategory, "category", models.DefaultAuctionCategory, "category")

	auctionsCmd.AddCommand(auctionsListCmd, auctionsShowCmd, auctionsCreateCmd)
	rootCmd.AddCommand(auctionsCmd, bidCmd)
}
