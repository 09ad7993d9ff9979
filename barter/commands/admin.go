package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/biscuitbarter/barterbot/barter"
	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/handlers"
	"github.com/biscuitbarter/barterbot/barter/logger"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

type AdminHandler struct {
	b *barter.Bot
}

func NewAdminHandler(b *barter.Bot) *AdminHandler {
	return &AdminHandler{b: b}
}

func (h *AdminHandler) Register(r handler.Router) {
	r.Route("/admin", func(r handler.Router) {
		r.Command("/restock", handlers.WrapWithLogging("admin-restock", h.requireAdmin(h.HandleRestock)))
		r.Command("/set", handlers.WrapWithLogging("admin-set", h.requireAdmin(h.HandleSet)))
		r.Command("/freeze", handlers.WrapWithLogging("admin-freeze", h.requireAdmin(h.HandleFreeze)))
		r.Command("/audit", handlers.WrapWithLogging("admin-audit", h.requireAdmin(h.HandleAudit)))

		items := Autocomplete(map[string]choiceSource{"item": itemChoices(h.b)})
		r.Autocomplete("/restock", items)
		r.Autocomplete("/set", items)
	})
}

// requireAdmin lets through configured admins and users with the ADMIN role.
func (h *AdminHandler) requireAdmin(next handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if h.b.Cfg.IsAdmin(e.User().ID) {
			return next(e)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()
		ok, err := h.b.UserRepository.IsAdmin(ctx, e.User().ID.String())
		if err != nil {
			slog.Warn("Admin lookup failed",
				slog.String("type", "cmd"),
				slog.String("user_id", e.User().ID.String()),
				slog.Any("error", err))
		}
		if !ok {
			return replyText(e, "❌ This command is for market admins.")
		}
		return next(e)
	}
}

func (h *AdminHandler) HandleRestock(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	data := e.SlashCommandInteractionData()
	target := data.User("user")
	item, err := h.b.Catalog.Resolve(ctx, data.String("item"))
	if err != nil {
		return replyError(e, err, names)
	}
	if err := h.b.UserRepository.Register(ctx, target.ID.String(), target.Username); err != nil {
		return replyError(e, err, names)
	}

	delta := int64(data.Int("delta"))
	balance, err := h.b.Trades.AdjustInventory(ctx, target.ID.String(), item.ID, delta)
	if err != nil {
		return replyError(e, err, names)
	}
	logger.LogTrade("Admin restock",
		slog.String("admin_id", e.User().ID.String()),
		slog.String("user_id", target.ID.String()),
		slog.String("item_id", item.ID),
		slog.Int64("delta", delta))
	return replyText(e, fmt.Sprintf("✅ %+d %s for <@%s>. They now hold %d.", delta, names(item.ID), target.ID, balance))
}

// HandleSet moves a balance to an exact value by adjusting by the
// difference.
func (h *AdminHandler) HandleSet(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	data := e.SlashCommandInteractionData()
	target := data.User("user")
	item, err := h.b.Catalog.Resolve(ctx, data.String("item"))
	if err != nil {
		return replyError(e, err, names)
	}
	if err := h.b.UserRepository.Register(ctx, target.ID.String(), target.Username); err != nil {
		return replyError(e, err, names)
	}

	current, err := h.b.InventoryRepository.Balance(ctx, target.ID.String(), item.ID)
	if err != nil {
		return replyError(e, err, names)
	}
	want := int64(data.Int("qty"))
	if want == current {
		return replyText(e, fmt.Sprintf("<@%s> already holds %d %s.", target.ID, want, names(item.ID)))
	}

	balance, err := h.b.Trades.AdjustInventory(ctx, target.ID.String(), item.ID, want-current)
	if err != nil {
		return replyError(e, err, names)
	}
	return replyText(e, fmt.Sprintf("✅ <@%s> now holds %d %s.", target.ID, balance, names(item.ID)))
}

func (h *AdminHandler) HandleFreeze(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()

	data := e.SlashCommandInteractionData()
	target := data.User("user")
	frozen := data.Bool("frozen")

	if err := h.b.UserRepository.Register(ctx, target.ID.String(), target.Username); err != nil {
		return replyError(e, err, nil)
	}
	if err := h.b.UserRepository.SetFrozen(ctx, target.ID.String(), frozen); err != nil {
		return replyError(e, err, nil)
	}

	logger.LogTrade("Account freeze changed",
		slog.String("admin_id", e.User().ID.String()),
		slog.String("user_id", target.ID.String()),
		slog.Bool("frozen", frozen))

	if frozen {
		return replyText(e, fmt.Sprintf("🧊 <@%s> can no longer trade.", target.ID))
	}
	return replyText(e, fmt.Sprintf("✅ <@%s> can trade again.", target.ID))
}

func (h *AdminHandler) HandleAudit(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()
	names := catalogNames(ctx, h.b.Catalog)

	report, err := h.b.Trades.Audit(ctx)
	if err != nil {
		return replyError(e, err, names)
	}
	counts, err := h.b.TradeRepository.CountByStatus(ctx)
	if err != nil {
		return replyError(e, err, names)
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{discord.NewEmbedBuilder().
			SetTitle("📊 Market audit").
			SetDescription(renderAudit(report, names)).
			AddField("Trades", renderCounts(counts), false).
			SetColor(config.InfoColor).
			Build()},
		Flags: discord.MessageFlagEphemeral,
	})
}

func renderAudit(report *trading.AuditReport, names NameFunc) string {
	if len(report.Items) == 0 {
		return "No biscuits exist yet."
	}
	var sb strings.Builder
	sb.WriteString("```\n")
	sb.WriteString(fmt.Sprintf("%-16s %7s %7s %7s %7s %7s\n", "item", "free", "offers", "paid", "bids", "total"))
	for _, a := range report.Items {
		sb.WriteString(fmt.Sprintf("%-16s %7d %7d %7d %7d %7d\n",
			truncateRunes(names(a.ItemID), 16), a.Balances, a.Offers, a.Payments, a.Bids, a.Total()))
	}
	sb.WriteString("```")
	return sb.String()
}

func renderCounts(counts map[trading.Status]int) string {
	if len(counts) == 0 {
		return "none"
	}
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)

	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = fmt.Sprintf("%s %s: %d", statusIcon(trading.Status(s)), s, counts[trading.Status(s)])
	}
	return strings.Join(parts, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
