package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

type ItemNamer interface {
	Get(ctx context.Context, id string) (trading.Item, error)
}

// DiscordPublisher posts trade activity to the market channel and DMs
// creators when someone takes or bids on their trade.
type DiscordPublisher struct {
	channelID snowflake.ID
	names     ItemNamer

	mu     sync.RWMutex
	client bot.Client
}

func NewDiscordPublisher(channelID snowflake.ID, names ItemNamer) *DiscordPublisher {
	return &DiscordPublisher{channelID: channelID, names: names}
}

// SetClient attaches the gateway client once it exists. Events published
// before that are skipped.
func (p *DiscordPublisher) SetClient(client bot.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

func (p *DiscordPublisher) Publish(ctx context.Context, e trading.Event) error {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client == nil {
		return nil
	}

	embed, ok := p.marketEmbed(ctx, e)
	if !ok {
		return nil
	}

	if p.channelID != 0 {
		_, err := client.Rest().CreateMessage(p.channelID, discord.MessageCreate{
			Embeds: []discord.Embed{embed},
		}, rest.WithCtx(ctx))
		if err != nil {
			return fmt.Errorf("failed to post to market channel: %w", err)
		}
	}

	if dm := creatorToNotify(e); dm != "" {
		p.directMessage(ctx, client, dm, embed)
	}
	return nil
}

func (p *DiscordPublisher) directMessage(ctx context.Context, client bot.Client, userID string, embed discord.Embed) {
	id, err := snowflake.Parse(userID)
	if err != nil {
		return
	}

	dmChannel, err := client.Rest().CreateDMChannel(id, rest.WithCtx(ctx))
	if err != nil {
		slog.Warn("Failed to create DM channel",
			slog.String("type", "notify"),
			slog.String("user_id", userID),
			slog.Any("error", err))
		return
	}
	if _, err = client.Rest().CreateMessage(dmChannel.ID(), discord.MessageCreate{
		Embeds: []discord.Embed{embed},
	}, rest.WithCtx(ctx)); err != nil {
		slog.Warn("Failed to send DM",
			slog.String("type", "notify"),
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}

// creatorToNotify returns the creator when the event needs their action.
func creatorToNotify(e trading.Event) string {
	if e.Trade == nil {
		return ""
	}
	switch e.Kind {
	case trading.EventTradeAccepted, trading.EventBidPlaced:
		return e.Trade.CreatorID
	}
	return ""
}

func (p *DiscordPublisher) marketEmbed(ctx context.Context, e trading.Event) (discord.Embed, bool) {
	if e.Trade == nil {
		return discord.Embed{}, false
	}
	t := e.Trade

	var title, desc string
	color := config.InfoColor
	switch e.Kind {
	case trading.EventTradeCreated:
		title = "🍪 New " + strings.ToLower(string(t.Type)) + " trade"
		desc = fmt.Sprintf("<@%s> offers **%s** for %s", t.CreatorID, p.describeLines(ctx, t.Offer.Lines()), p.describeRequest(ctx, t.Request))
	case trading.EventTradeAccepted, trading.EventBidAccepted:
		title = "🤝 Trade accepted"
		desc = fmt.Sprintf("<@%s> took <@%s>'s trade. Both sides must `/trade confirm`.", t.TakerID, t.CreatorID)
		color = config.WarningColor
	case trading.EventTradeCompleted:
		title = "✅ Trade completed"
		desc = fmt.Sprintf("<@%s> and <@%s> swapped **%s** for %s", t.CreatorID, t.TakerID, p.describeLines(ctx, t.Offer.Lines()), p.describeRequest(ctx, t.Request))
		color = config.SuccessColor
	case trading.EventTradeCancelled:
		title = "❌ Trade cancelled"
		desc = fmt.Sprintf("<@%s> withdrew their offer of **%s**", t.CreatorID, p.describeLines(ctx, t.Offer.Lines()))
		color = config.ErrorColor
	case trading.EventBidPlaced:
		if e.Bid == nil {
			return discord.Embed{}, false
		}
		title = "📣 New bid"
		desc = fmt.Sprintf("<@%s> bid **%s** on <@%s>'s auction", e.Bid.BidderID, p.describeLines(ctx, []trading.Line{e.Bid.Line()}), t.CreatorID)
	default:
		return discord.Embed{}, false
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(desc).
		SetColor(color).
		SetFooterText("Trade " + t.ID).
		SetTimestamp(e.At).
		Build()
	return embed, true
}

func (p *DiscordPublisher) describeLines(ctx context.Context, lines []trading.Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%d× %s", l.Qty, p.itemName(ctx, l.ItemID))
	}
	return strings.Join(parts, ", ")
}

func (p *DiscordPublisher) describeRequest(ctx context.Context, r trading.Request) string {
	switch v := r.(type) {
	case trading.SpecificRequest:
		return "**" + p.describeLines(ctx, []trading.Line{v.Line}) + "**"
	case trading.AnyRequest:
		if v.Preferred != nil {
			return "any bid (prefers **" + p.describeLines(ctx, []trading.Line{*v.Preferred}) + "**)"
		}
		return "any bid"
	}
	return "?"
}

func (p *DiscordPublisher) itemName(ctx context.Context, id string) string {
	if p.names == nil {
		return id
	}
	item, err := p.names.Get(ctx, id)
	if err != nil {
		return id
	}
	if item.Icon != "" {
		return item.Icon + " " + item.Name
	}
	return item.Name
}
