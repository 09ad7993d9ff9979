package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/biscuitbarter/barterbot/barter/database/models"
	"github.com/spf13/cobra"
)

var holdersCmd = &cobra.Command{
	Use:   "holders <item-id>",
	Short: "List who holds an item, largest holder first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, closeDB, err := openMarket(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		entries, err := b.InventoryRepository.ListHolders(ctx, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "user\tqty\tupdated")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%s\n", e.UserID, e.Quantity, e.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var bidsCmd = &cobra.Command{
	Use:   "bids <user-id>",
	Short: "List the outstanding bids a user has placed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, closeDB, err := openMarket(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		bids, err := b.BidRepository.ListForBidder(ctx, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "bid\ttrade\titem\tqty\tplaced")
		for _, bid := range bids {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", bid.ID, bid.TradeID, bid.ItemID, bid.Qty, bid.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var roleCmd = &cobra.Command{
	Use:       "role <user-id> <USER|ADMIN>",
	Short:     "Change a user's role",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(models.RoleUser), string(models.RoleAdmin)},
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.UserRole(strings.ToUpper(args[1]))
		if role != models.RoleUser && role != models.RoleAdmin {
			return fmt.Errorf("unknown role %q", args[1])
		}
		ctx := cmd.Context()

		b, closeDB, err := openMarket(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := b.UserRepository.SetRole(ctx, args[0], role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], role)
		return nil
	},
}

var (
	itemName  string
	itemBrand string
	itemIcon  string
	itemColor string
)

var itemCmd = &cobra.Command{
	Use:   "item <item-id>",
	Short: "Add a catalog item or update its display fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if itemName == "" {
			return fmt.Errorf("--name is required")
		}
		ctx := cmd.Context()

		b, closeDB, err := openMarket(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		err = b.ItemRepository.Upsert(ctx, &models.Item{
			ID:    strings.ToLower(args[0]),
			Name:  itemName,
			Brand: itemBrand,
			Icon:  itemIcon,
			Color: itemColor,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s; running bots pick it up on their next catalog miss\n", args[0])
		return nil
	},
}

func init() {
	itemCmd.Flags().StringVar(&itemName, "name", "", "display name")
	itemCmd.Flags().StringVar(&itemBrand, "brand", "", "brand")
	itemCmd.Flags().StringVar(&itemIcon, "icon", "", "emoji shown next to the name")
	itemCmd.Flags().StringVar(&itemColor, "color", "", "hex color")
	rootCmd.AddCommand(holdersCmd, bidsCmd, roleCmd, itemCmd)
}
