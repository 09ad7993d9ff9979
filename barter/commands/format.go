package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/services"
	"github.com/disgoorg/disgo/discord"
)

const shortIDLen = 8

func catalogNames(ctx context.Context, c *services.CatalogService) NameFunc {
	return func(id string) string {
		item, err := c.Get(ctx, id)
		if err != nil {
			return id
		}
		if item.Icon != "" {
			return item.Icon + " " + item.Name
		}
		return item.Name
	}
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func describeLines(lines []trading.Line, name NameFunc) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%d× %s", l.Qty, name(l.ItemID))
	}
	return strings.Join(parts, ", ")
}

func describeRequest(r trading.Request, name NameFunc) string {
	switch v := r.(type) {
	case trading.SpecificRequest:
		return describeLines([]trading.Line{v.Line}, name)
	case trading.AnyRequest:
		if v.Preferred != nil {
			return "any bid (prefers " + describeLines([]trading.Line{*v.Preferred}, name) + ")"
		}
		return "any bid"
	}
	return "nothing"
}

func statusIcon(s trading.Status) string {
	switch s {
	case trading.StatusOpen:
		return "🟢"
	case trading.StatusPending:
		return "🟡"
	case trading.StatusCompleted:
		return "✅"
	case trading.StatusCancelled:
		return "❌"
	}
	return "❔"
}

func statusColor(s trading.Status) int {
	switch s {
	case trading.StatusPending:
		return config.WarningColor
	case trading.StatusCompleted:
		return config.SuccessColor
	case trading.StatusCancelled:
		return config.ErrorColor
	}
	return config.InfoColor
}

// tradeSummary is the one-line form used in lists and autocomplete.
func tradeSummary(t *trading.Trade, name NameFunc) string {
	return fmt.Sprintf("%s `%s` %s · %s → %s",
		statusIcon(t.Status), shortID(t.ID), strings.ToLower(string(t.Type)),
		describeLines(t.Offer.Lines(), name), describeRequest(t.Request, name))
}

func confirmMark(ok bool) string {
	if ok {
		return "✅"
	}
	return "⏳"
}

func tradeEmbed(t *trading.Trade, bids []*trading.Bid, name NameFunc) discord.Embed {
	eb := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("%s %s trade `%s`", statusIcon(t.Status), capitalize(strings.ToLower(string(t.Type))), shortID(t.ID))).
		SetColor(statusColor(t.Status)).
		AddField("Offer", describeLines(t.Offer.Lines(), name), false).
		AddField("Wants", describeRequest(t.Request, name), false).
		AddField("Creator", fmt.Sprintf("<@%s>", t.CreatorID), true).
		AddField("Status", string(t.Status), true)

	if t.TakerID != "" {
		eb.AddField("Taker", fmt.Sprintf("<@%s>", t.TakerID), true)
	}
	if t.Status == trading.StatusPending {
		eb.AddField("Confirmations",
			fmt.Sprintf("Creator %s · Taker %s", confirmMark(t.CreatorConfirmed), confirmMark(t.TakerConfirmed)), false)
	}
	if t.Type == trading.KindAuction && t.Status == trading.StatusOpen {
		eb.AddField("Bids", fmt.Sprintf("%d", len(bids)), true)
	}

	return eb.
		SetFooter("ID: "+t.ID, "").
		SetTimestamp(t.CreatedAt).
		Build()
}

func bidSummary(b *trading.Bid, name NameFunc) string {
	return fmt.Sprintf("`%s` <@%s> bids %s", shortID(b.ID), b.BidderID, describeLines([]trading.Line{b.Line()}, name))
}

func pageCount(n, perPage int) int {
	if n == 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

func pageBounds(page, perPage, n int) (int, int) {
	start := page * perPage
	if start > n {
		start = n
	}
	return start, min(start+perPage, n)
}
