package barter

import (
	"context"
	"log/slog"
	"time"

	"github.com/biscuitbarter/barterbot/barter/database"
	"github.com/biscuitbarter/barterbot/barter/database/repositories"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/handlers"
	"github.com/biscuitbarter/barterbot/barter/notify"
	"github.com/biscuitbarter/barterbot/barter/services"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string
	DB        *database.DB

	UserRepository      repositories.UserRepository
	InventoryRepository repositories.InventoryRepository
	TradeRepository     repositories.TradeRepository
	BidRepository       repositories.BidRepository
	ItemRepository      repositories.ItemRepository

	Catalog     *services.CatalogService
	Trades      *trading.Manager
	Market      *notify.DiscordPublisher
	RateLimiter *handlers.RateLimiter
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	if b.Market != nil {
		b.Market.SetClient(client)
	}
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Barter bot is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the biscuit market"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence",
			slog.String("type", "sys"),
			slog.Any("error", err))
	}
}
