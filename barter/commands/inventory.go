package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/biscuitbarter/barterbot/barter"
	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
)

func InventoryHandler(b *barter.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		target := e.User()
		if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			target = u
		}

		holdings, err := b.Trades.ReadInventory(ctx, target.ID.String())
		if err != nil {
			return replyError(e, err, nil)
		}

		var total int64
		for _, h := range holdings {
			total += h.Qty
		}
		icons := make(map[string]string, len(holdings))
		items, _ := b.Catalog.Items(ctx)
		for _, it := range items {
			icons[it.ID] = it.Icon
		}

		pages := pageCount(len(holdings), config.HoldingsPerPage)
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start, end := pageBounds(page, config.HoldingsPerPage, len(holdings))
				embed.
					SetTitle(fmt.Sprintf("🍪 %s's biscuit tin", target.Username)).
					SetDescription(renderHoldings(holdings[start:end], icons)).
					SetColor(config.EmbedDefaultColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d biscuits in total", page+1, pages, total), "")
			},
			Pages:      pages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

// renderHoldings lists every catalog item, greying out the ones at zero.
func renderHoldings(holdings []trading.Holding, icons map[string]string) string {
	if len(holdings) == 0 {
		return "The catalog is empty."
	}

	var sb strings.Builder
	sb.WriteString("```ansi\n")
	for _, h := range holdings {
		color := "\x1b[32m"
		if h.Qty == 0 {
			color = "\x1b[30m"
		}
		icon := icons[h.ItemID]
		if icon == "" {
			icon = "🍪"
		}
		sb.WriteString(fmt.Sprintf("%s %s%-20s\x1b[0m %5d\n", icon, color, h.ItemName, h.Qty))
	}
	sb.WriteString("```")
	return sb.String()
}
