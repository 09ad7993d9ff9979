package main

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Count every unit of every item, free and reserved",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, closeDB, err := openMarket(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		report, err := b.Trades.Audit(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "item\tfree\toffers\tpayments\tbids\ttotal\t")
		for _, a := range report.Items {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t\n", a.ItemID, a.Balances, a.Offers, a.Payments, a.Bids, a.Total())
		}
		return w.Flush()
	},
}

var restockCmd = &cobra.Command{
	Use:   "restock <user-id> <item-id> <delta>",
	Short: "Add (or with a negative delta, remove) items from a balance",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("delta %q is not a number", args[2])
		}
		ctx := cmd.Context()

		b, closeDB, err := openMarket(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		balance, err := b.Trades.AdjustInventory(ctx, args[0], args[1], delta)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %d %s\n", args[0], balance, args[1])
		return nil
	},
}

var tradesStatus string

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List trades, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, closeDB, err := openMarket(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		counts, err := b.TradeRepository.CountByStatus(ctx)
		if err != nil {
			return err
		}
		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", s, counts[trading.Status(s)])
		}

		trades, err := b.Trades.ListAllTrades(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\ttype\tstatus\tcreator\ttaker\toffer\tcreated")
		for _, t := range trades {
			if tradesStatus != "" && string(t.Status) != tradesStatus {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
				t.ID, t.Type, t.Status, t.CreatorName, t.TakerName, t.Offer.Lines(), t.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	tradesCmd.Flags().StringVar(&tradesStatus, "status", "", "only show trades in this status (OPEN, PENDING, COMPLETED, CANCELLED)")
	rootCmd.AddCommand(auditCmd, restockCmd, tradesCmd)
}
