package barter

import (
	"log/slog"
	"time"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/database"
	"github.com/biscuitbarter/barterbot/barter/database/repositories"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/handlers"
	"github.com/biscuitbarter/barterbot/barter/logger"
	"github.com/biscuitbarter/barterbot/barter/notify"
	"github.com/biscuitbarter/barterbot/barter/services"
	"golang.org/x/time/rate"
)

const amqpDialRetries = 3

// SetupRepositories attaches the Postgres repositories and the services
// built directly on them.
func (b *Bot) SetupRepositories(db *database.DB) {
	b.DB = db
	bunDB := db.BunDB()

	b.UserRepository = repositories.NewUserRepository(bunDB)
	b.InventoryRepository = repositories.NewInventoryRepository(bunDB)
	b.TradeRepository = repositories.NewTradeRepository(bunDB)
	b.BidRepository = repositories.NewBidRepository(bunDB)
	b.ItemRepository = repositories.NewItemRepository(bunDB)

	b.Catalog = services.NewCatalogService(b.ItemRepository, config.CatalogCacheSize, config.CatalogListTTL)
	b.RateLimiter = handlers.NewRateLimiter(rate.Limit(b.Cfg.Trading.RatePerSecond), b.Cfg.Trading.RateBurst)
}

// SetupNotifications builds the event pipeline: the market channel plus
// any configured broker, behind an async dispatcher. The returned func
// drains pending events and closes broker connections.
func (b *Bot) SetupNotifications() (trading.Publisher, func()) {
	b.Market = notify.NewDiscordPublisher(b.Cfg.Bot.MarketChannel, b.Catalog)
	sinks := notify.Multi{b.Market}
	var closers []func() error

	if url := b.Cfg.Notify.AMQPURL; url != "" {
		p, err := notify.NewAMQPPublisher(url, b.Cfg.Notify.AMQPExchange, amqpDialRetries, time.Second)
		if err != nil {
			logger.LogError("AMQP notifications disabled", err)
		} else {
			sinks = append(sinks, p)
			closers = append(closers, p.Close)
			logger.LogSystem("AMQP notifications enabled",
				slog.String("exchange", b.Cfg.Notify.AMQPExchange))
		}
	}

	if addr := b.Cfg.Notify.RedisAddr; addr != "" {
		p := notify.NewRedisPublisher(addr, b.Cfg.Notify.RedisPassword, b.Cfg.Notify.RedisDB, b.Cfg.Notify.RedisChannel)
		sinks = append(sinks, p)
		closers = append(closers, p.Close)
		logger.LogSystem("Redis notifications enabled",
			slog.String("channel", b.Cfg.Notify.RedisChannel))
	}

	dispatcher := notify.NewDispatcher(sinks, b.Cfg.Notify.QueueSize, b.Cfg.Notify.Workers, config.NotifyPublishWait)
	return dispatcher, func() {
		dispatcher.Close()
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("Failed to close notification sink",
					slog.String("type", "sys"),
					slog.Any("error", err))
			}
		}
	}
}

// SetupTrading builds the trading engine over the repositories.
func (b *Bot) SetupTrading(publisher trading.Publisher) {
	b.Trades = trading.NewManager(trading.Dependencies{
		Ledger:    b.InventoryRepository,
		Trades:    b.TradeRepository,
		Bids:      b.BidRepository,
		Users:     b.UserRepository,
		Catalog:   b.Catalog,
		Publisher: publisher,
	}, trading.WithCompensation(b.Cfg.Trading.CompensationRetries, b.Cfg.Trading.Backoff()))
}
