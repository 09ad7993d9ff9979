package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biscuitbarter/barterbot/barter"
	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/handlers"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
)

type TradeHandler struct {
	b *barter.Bot
}

func NewTradeHandler(b *barter.Bot) *TradeHandler {
	return &TradeHandler{b: b}
}

func (h *TradeHandler) Register(r handler.Router) {
	wrap := func(name string, fn handler.CommandHandler) handler.CommandHandler {
		return handlers.WrapWithLogging(name, handlers.WrapWithRateLimit(h.b.RateLimiter, name, fn))
	}

	r.Route("/trade", func(r handler.Router) {
		r.Command("/create", wrap("trade-create", h.HandleCreate))
		r.Command("/accept", wrap("trade-accept", h.HandleAccept))
		r.Command("/confirm", wrap("trade-confirm", h.HandleConfirm))
		r.Command("/cancel", wrap("trade-cancel", h.HandleCancel))
		r.Command("/view", handlers.WrapWithLogging("trade-view", h.HandleView))
		r.Command("/list", handlers.WrapWithLogging("trade-list", h.HandleList))
		r.Command("/history", handlers.WrapWithLogging("trade-history", h.HandleHistory))

		r.Autocomplete("/create", Autocomplete(map[string]choiceSource{
			"offer": offerChoices(h.b),
			"want":  itemChoices(h.b),
		}))
		r.Autocomplete("/accept", Autocomplete(map[string]choiceSource{"trade_id": tradeChoices(h.b, openFixedTrades)}))
		r.Autocomplete("/confirm", Autocomplete(map[string]choiceSource{"trade_id": tradeChoices(h.b, myPendingTrades)}))
		r.Autocomplete("/cancel", Autocomplete(map[string]choiceSource{"trade_id": tradeChoices(h.b, myLiveTrades)}))
		r.Autocomplete("/view", Autocomplete(map[string]choiceSource{"trade_id": tradeChoices(h.b, anyVisibleTrade)}))
	})
}

func (h *TradeHandler) HandleCreate(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	userID, err := registerUser(ctx, h.b, e)
	if err != nil {
		return replyError(e, err, names)
	}

	data := e.SlashCommandInteractionData()
	kind := trading.Kind(data.String("type"))

	lines, err := ParseLines(data.String("offer"))
	if err != nil {
		return replyError(e, err, names)
	}
	for i := range lines {
		item, err := h.b.Catalog.Resolve(ctx, lines[i].ItemID)
		if err != nil {
			return replyError(e, err, names)
		}
		lines[i].ItemID = item.ID
	}

	request, err := h.buildRequest(ctx, data)
	if err != nil {
		return replyError(e, err, names)
	}

	trade, err := h.b.Trades.CreateTrade(ctx, trading.CreateTradeParams{
		CreatorID: userID,
		Type:      kind,
		Offer:     OfferFromLines(lines),
		Request:   request,
	})
	if err != nil {
		return replyError(e, err, names)
	}

	next := "Others can take it with `/trade accept`."
	if trade.Type == trading.KindAuction {
		next = "Others can `/bid place` on it, then you pick one with `/bid accept`."
	}
	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("Your biscuits are reserved. %s", next),
		Embeds:  []discord.Embed{tradeEmbed(trade, nil, names)},
	})
}

func (h *TradeHandler) buildRequest(ctx context.Context, data discord.SlashCommandInteractionData) (trading.Request, error) {
	qty := int64(1)
	if n, ok := data.OptInt("want_qty"); ok {
		qty = int64(n)
	}

	var want *trading.Line
	if name, ok := data.OptString("want"); ok && strings.TrimSpace(name) != "" {
		item, err := h.b.Catalog.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		want = &trading.Line{ItemID: item.ID, Qty: qty}
	}

	if data.Bool("any_item") {
		return trading.AnyRequest{Preferred: want}, nil
	}
	if want == nil {
		return nil, fmt.Errorf("%w: say what you want back, or set any_item for an auction", trading.ErrInvalidInput)
	}
	return trading.SpecificRequest{Line: *want}, nil
}

func (h *TradeHandler) HandleAccept(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	userID, err := registerUser(ctx, h.b, e)
	if err != nil {
		return replyError(e, err, names)
	}
	tradeID, err := resolveTradeID(ctx, h.b, userID, e.SlashCommandInteractionData().String("trade_id"))
	if err != nil {
		return replyError(e, err, names)
	}

	trade, err := h.b.Trades.AcceptTrade(ctx, tradeID, userID)
	if err != nil {
		return replyError(e, err, names)
	}
	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("You took <@%s>'s trade. Both of you must run `/trade confirm` to finish it.", trade.CreatorID),
		Embeds:  []discord.Embed{tradeEmbed(trade, nil, names)},
	})
}

func (h *TradeHandler) HandleConfirm(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	userID, err := registerUser(ctx, h.b, e)
	if err != nil {
		return replyError(e, err, names)
	}
	tradeID, err := resolveTradeID(ctx, h.b, userID, e.SlashCommandInteractionData().String("trade_id"))
	if err != nil {
		return replyError(e, err, names)
	}

	outcome, trade, err := h.b.Trades.ConfirmTrade(ctx, tradeID, userID)
	if err != nil && !trading.IsReconciliation(err) {
		return replyError(e, err, names)
	}
	logReconciliation("confirm", err)

	content := "✅ Trade complete. The biscuits have changed hands."
	if outcome == trading.OutcomeWaiting {
		content = "👍 Confirmed. Waiting for the other side."
	}
	return e.CreateMessage(discord.MessageCreate{
		Content: content + outcomeNotice(err),
		Embeds:  []discord.Embed{tradeEmbed(trade, nil, names)},
	})
}

func (h *TradeHandler) HandleCancel(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	userID, err := registerUser(ctx, h.b, e)
	if err != nil {
		return replyError(e, err, names)
	}
	tradeID, err := resolveTradeID(ctx, h.b, userID, e.SlashCommandInteractionData().String("trade_id"))
	if err != nil {
		return replyError(e, err, names)
	}

	trade, err := h.b.Trades.CancelTrade(ctx, tradeID, userID)
	if err != nil && !trading.IsReconciliation(err) {
		return replyError(e, err, names)
	}
	logReconciliation("cancel", err)

	return e.CreateMessage(discord.MessageCreate{
		Content: "Trade cancelled. Reserved biscuits went back to their owners." + outcomeNotice(err),
		Embeds:  []discord.Embed{tradeEmbed(trade, nil, names)},
	})
}

func (h *TradeHandler) HandleView(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	tradeID, err := resolveTradeID(ctx, h.b, e.User().ID.String(), e.SlashCommandInteractionData().String("trade_id"))
	if err != nil {
		return replyError(e, err, names)
	}
	trade, err := h.b.Trades.GetTrade(ctx, tradeID)
	if err != nil {
		return replyError(e, err, names)
	}

	var bids []*trading.Bid
	if trade.Type == trading.KindAuction && trade.Status == trading.StatusOpen {
		if bids, err = h.b.Trades.ListBidsForTrade(ctx, trade.ID); err != nil {
			slog.Warn("Failed to load bids for trade view",
				slog.String("type", "cmd"),
				slog.String("trade_id", trade.ID),
				slog.Any("error", err))
		}
	}
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{tradeEmbed(trade, bids, names)},
	})
}

func (h *TradeHandler) HandleList(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()

	trades, err := h.b.Trades.ListOpenTrades(ctx)
	if err != nil {
		return replyError(e, err, nil)
	}
	if len(trades) == 0 {
		return replyText(e, "The market is quiet. Start something with `/trade create`.")
	}
	return h.paginate(e, "🍪 Open trades", trades)
}

func (h *TradeHandler) HandleHistory(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()

	trades, err := h.b.Trades.ListTradeHistory(ctx, e.User().ID.String())
	if err != nil {
		return replyError(e, err, nil)
	}
	if len(trades) == 0 {
		return replyText(e, "You haven't traded yet.")
	}
	return h.paginate(e, "📜 Your trades", trades)
}

// paginate renders trades a page at a time. Item names are resolved when
// a page is drawn, so the lookup context outlives the command.
func (h *TradeHandler) paginate(e *handler.CommandEvent, title string, trades []*trading.Trade) error {
	total := pageCount(len(trades), config.TradesPerPage)
	names := catalogNames(context.Background(), h.b.Catalog)

	return h.b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start, end := pageBounds(page, config.TradesPerPage, len(trades))

			var description strings.Builder
			for _, t := range trades[start:end] {
				description.WriteString(tradeSummary(t, names))
				description.WriteString(fmt.Sprintf("\nby <@%s>", t.CreatorID))
				if t.TakerID != "" {
					description.WriteString(fmt.Sprintf(" · taken by <@%s>", t.TakerID))
				}
				description.WriteString("\n\n")
			}

			embed.
				SetTitle(title).
				SetDescription(description.String()).
				SetColor(config.EmbedDefaultColor).
				SetFooter(fmt.Sprintf("Page %d/%d • %d trades", page+1, total, len(trades)), "")
		},
		Pages:      total,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}
