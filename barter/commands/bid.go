package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/biscuitbarter/barterbot/barter"
	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/handlers"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
)

type BidHandler struct {
	b *barter.Bot
}

func NewBidHandler(b *barter.Bot) *BidHandler {
	return &BidHandler{b: b}
}

func (h *BidHandler) Register(r handler.Router) {
	r.Route("/bid", func(r handler.Router) {
		r.Command("/place", handlers.WrapWithLogging("bid-place",
			handlers.WrapWithRateLimit(h.b.RateLimiter, "bid-place", h.HandlePlace)))
		r.Command("/accept", handlers.WrapWithLogging("bid-accept",
			handlers.WrapWithRateLimit(h.b.RateLimiter, "bid-accept", h.HandleAccept)))
		r.Command("/list", handlers.WrapWithLogging("bid-list", h.HandleList))

		r.Autocomplete("/place", Autocomplete(map[string]choiceSource{
			"trade_id": tradeChoices(h.b, openAuctions),
			"item":     itemChoices(h.b),
		}))
		r.Autocomplete("/accept", Autocomplete(map[string]choiceSource{
			"trade_id": tradeChoices(h.b, myAuctions),
			"bid_id":   bidChoices(h.b),
		}))
		r.Autocomplete("/list", Autocomplete(map[string]choiceSource{
			"trade_id": tradeChoices(h.b, anyOpenAuction),
		}))
	})
}

func (h *BidHandler) HandlePlace(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	userID, err := registerUser(ctx, h.b, e)
	if err != nil {
		return replyError(e, err, names)
	}

	data := e.SlashCommandInteractionData()
	tradeID, err := resolveTradeID(ctx, h.b, userID, data.String("trade_id"))
	if err != nil {
		return replyError(e, err, names)
	}
	item, err := h.b.Catalog.Resolve(ctx, data.String("item"))
	if err != nil {
		return replyError(e, err, names)
	}
	qty := int64(1)
	if n, ok := data.OptInt("qty"); ok {
		qty = int64(n)
	}

	bid, err := h.b.Trades.PlaceBid(ctx, trading.PlaceBidParams{
		TradeID:  tradeID,
		BidderID: userID,
		ItemID:   item.ID,
		Qty:      qty,
	})
	if err != nil {
		return replyError(e, err, names)
	}

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("📣 Bid `%s` placed: %s are reserved until the auction closes.",
			shortID(bid.ID), describeLines([]trading.Line{bid.Line()}, names)),
	})
}

func (h *BidHandler) HandleAccept(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	userID, err := registerUser(ctx, h.b, e)
	if err != nil {
		return replyError(e, err, names)
	}

	data := e.SlashCommandInteractionData()
	tradeID, err := resolveTradeID(ctx, h.b, userID, data.String("trade_id"))
	if err != nil {
		return replyError(e, err, names)
	}
	bidID, err := h.resolveBidID(ctx, tradeID, data.String("bid_id"))
	if err != nil {
		return replyError(e, err, names)
	}

	trade, err := h.b.Trades.AcceptBid(ctx, tradeID, bidID, userID)
	if err != nil && !trading.IsReconciliation(err) {
		return replyError(e, err, names)
	}
	logReconciliation("accept-bid", err)

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("🤝 You accepted <@%s>'s bid. Other bids were returned. Both of you must run `/trade confirm`.",
			trade.TakerID) + outcomeNotice(err),
		Embeds: []discord.Embed{tradeEmbed(trade, nil, names)},
	})
}

// resolveBidID accepts a full bid id or the short prefix shown in listings.
func (h *BidHandler) resolveBidID(ctx context.Context, tradeID, input string) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", fmt.Errorf("%w: missing bid id", trading.ErrInvalidInput)
	}

	bids, err := h.b.Trades.ListBidsForTrade(ctx, tradeID)
	if err != nil {
		return "", err
	}
	var found string
	for _, bid := range bids {
		if bid.ID == input {
			return bid.ID, nil
		}
		if strings.HasPrefix(bid.ID, input) {
			if found != "" {
				return "", fmt.Errorf("%w: %q matches more than one bid", trading.ErrInvalidInput, input)
			}
			found = bid.ID
		}
	}
	if found == "" {
		return input, nil
	}
	return found, nil
}

func (h *BidHandler) HandleList(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()

	tradeID, err := resolveTradeID(ctx, h.b, e.User().ID.String(), e.SlashCommandInteractionData().String("trade_id"))
	if err != nil {
		return replyError(e, err, nil)
	}
	bids, err := h.b.Trades.ListBidsForTrade(ctx, tradeID)
	if err != nil {
		return replyError(e, err, nil)
	}
	if len(bids) == 0 {
		return replyText(e, "No bids yet.")
	}

	total := pageCount(len(bids), config.BidsPerPage)
	names := catalogNames(context.Background(), h.b.Catalog)
	return h.b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start, end := pageBounds(page, config.BidsPerPage, len(bids))

			var description strings.Builder
			for _, bid := range bids[start:end] {
				description.WriteString(bidSummary(bid, names))
				description.WriteString("\n")
			}

			embed.
				SetTitle(fmt.Sprintf("📣 Bids on `%s`", shortID(tradeID))).
				SetDescription(description.String()).
				SetColor(config.EmbedDefaultColor).
				SetFooter(fmt.Sprintf("Page %d/%d • %d bids • oldest first", page+1, total, len(bids)), "")
		},
		Pages:      total,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}
