package trading_test

import (
	"context"
	"testing"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"pgregory.net/rapid"
)

var (
	propUsers = []string{"alice", "bob", "carol", "dave"}
	propItems = []string{"oreo", "timtam", "digestive", "jaffa"}
)

// Trade, bid, confirm and cancel flows never change how many units of an
// item exist. Only AdjustInventory does.
func TestProperty_Conservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		h := buildHarness()

		minted := make(map[string]int64)
		for _, u := range propUsers {
			for _, it := range propItems {
				qty := rapid.Int64Range(0, 6).Draw(t, "seed")
				if qty == 0 {
					continue
				}
				if _, err := h.m.AdjustInventory(ctx, u, it, qty); err != nil {
					t.Fatalf("seed %s/%s: %v", u, it, err)
				}
				minted[it] += qty
			}
		}

		var trades []string
		var bids []*trading.Bid
		pickUser := rapid.SampledFrom(propUsers)
		pickItem := rapid.SampledFrom(propItems)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 6).Draw(t, "op") {
			case 0:
				kind := rapid.SampledFrom([]trading.Kind{trading.KindFixed, trading.KindAuction}).Draw(t, "kind")
				var offer trading.Offer = trading.SingleOffer{Line: trading.Line{ItemID: pickItem.Draw(t, "offer"), Qty: rapid.Int64Range(1, 3).Draw(t, "qty")}}
				if rapid.Bool().Draw(t, "bundle") {
					a, b := pickItem.Draw(t, "a"), pickItem.Draw(t, "b")
					if a != b {
						offer = trading.BundleOffer{Items: []trading.Line{{ItemID: a, Qty: 1}, {ItemID: b, Qty: rapid.Int64Range(1, 3).Draw(t, "bq")}}}
					}
				}
				var req trading.Request = trading.SpecificRequest{Line: trading.Line{ItemID: pickItem.Draw(t, "want"), Qty: rapid.Int64Range(1, 3).Draw(t, "wq")}}
				if kind == trading.KindAuction && rapid.Bool().Draw(t, "any") {
					req = trading.AnyRequest{}
				}
				tr, err := h.m.CreateTrade(ctx, trading.CreateTradeParams{CreatorID: pickUser.Draw(t, "creator"), Type: kind, Offer: offer, Request: req})
				if err == nil {
					trades = append(trades, tr.ID)
				}
			case 1:
				if len(trades) > 0 {
					_, _ = h.m.AcceptTrade(ctx, rapid.SampledFrom(trades).Draw(t, "trade"), pickUser.Draw(t, "taker"))
				}
			case 2:
				if len(trades) > 0 {
					_, _, _ = h.m.ConfirmTrade(ctx, rapid.SampledFrom(trades).Draw(t, "trade"), pickUser.Draw(t, "confirmer"))
				}
			case 3:
				if len(trades) > 0 {
					_, _ = h.m.CancelTrade(ctx, rapid.SampledFrom(trades).Draw(t, "trade"), pickUser.Draw(t, "canceller"))
				}
			case 4:
				if len(trades) > 0 {
					b, err := h.m.PlaceBid(ctx, trading.PlaceBidParams{
						TradeID:  rapid.SampledFrom(trades).Draw(t, "trade"),
						BidderID: pickUser.Draw(t, "bidder"),
						ItemID:   pickItem.Draw(t, "bid item"),
						Qty:      rapid.Int64Range(1, 3).Draw(t, "bid qty"),
					})
					if err == nil {
						bids = append(bids, b)
					}
				}
			case 5:
				if len(bids) > 0 {
					b := rapid.SampledFrom(bids).Draw(t, "bid")
					_, _ = h.m.AcceptBid(ctx, b.TradeID, b.ID, pickUser.Draw(t, "acceptor"))
				}
			case 6:
				// Two confirms in a row push a PENDING trade to completion.
				if len(trades) > 0 {
					id := rapid.SampledFrom(trades).Draw(t, "trade")
					if tr, err := h.m.GetTrade(ctx, id); err == nil && tr.Status == trading.StatusPending {
						_, _, _ = h.m.ConfirmTrade(ctx, id, tr.CreatorID)
						_, _, _ = h.m.ConfirmTrade(ctx, id, tr.TakerID)
					}
				}
			}

			report, err := h.m.Audit(ctx)
			if err != nil {
				t.Fatalf("audit: %v", err)
			}
			for _, it := range propItems {
				if got := report.Item(it).Total(); got != minted[it] {
					t.Fatalf("step %d: %s total %d, minted %d", i, it, got, minted[it])
				}
			}
		}

		for _, u := range propUsers {
			for _, it := range propItems {
				if b, _ := h.store.Balance(ctx, u, it); b < 0 {
					t.Fatalf("%s holds %d %s", u, b, it)
				}
			}
		}
	})
}
