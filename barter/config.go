package barter

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/database"
	"github.com/biscuitbarter/barterbot/barter/database/models"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := defaultConfig()
	if err = toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Bot     BotConfig         `toml:"bot"`
	DB      database.DBConfig `toml:"db"`
	Notify  NotifyConfig      `toml:"notify"`
	Trading TradingConfig     `toml:"trading"`
	Catalog CatalogConfig     `toml:"catalog"`
}

type BotConfig struct {
	DevGuilds     []snowflake.ID `toml:"dev_guilds"`
	Token         string         `toml:"token"`
	Admins        []snowflake.ID `toml:"admins"`
	MarketChannel snowflake.ID   `toml:"market_channel"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type NotifyConfig struct {
	QueueSize int `toml:"queue_size"`
	Workers   int `toml:"workers"`

	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisChannel  string `toml:"redis_channel"`
}

type TradingConfig struct {
	CompensationRetries int     `toml:"compensation_retries"`
	CompensationBackoff string  `toml:"compensation_backoff"`
	RatePerSecond       float64 `toml:"rate_per_second"`
	RateBurst           int     `toml:"rate_burst"`
}

// Backoff parses CompensationBackoff, falling back to the default.
func (c TradingConfig) Backoff() time.Duration {
	d, err := time.ParseDuration(c.CompensationBackoff)
	if err != nil || d < 0 {
		return config.DefaultCompensationBackoff
	}
	return d
}

type CatalogConfig struct {
	Items []models.Item `toml:"items"`
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: slog.LevelInfo},
		DB: database.DBConfig{
			Host:     "localhost",
			Port:     5432,
			PoolSize: 10,
		},
		Notify: NotifyConfig{
			QueueSize:    config.NotifyQueueSize,
			Workers:      config.NotifyWorkers,
			AMQPExchange: "barter.events",
			RedisChannel: "barter:events",
		},
		Trading: TradingConfig{
			CompensationRetries: config.DefaultCompensationRetries,
			CompensationBackoff: config.DefaultCompensationBackoff.String(),
			RatePerSecond:       config.DefaultTradeRate,
			RateBurst:           config.DefaultTradeBurst,
		},
	}
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Catalog.Items))
	for _, it := range c.Catalog.Items {
		if it.ID == "" || it.Name == "" {
			return fmt.Errorf("catalog item needs an id and a name: %+v", it)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("catalog item %q listed twice", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	if c.Trading.CompensationRetries < 0 {
		return fmt.Errorf("trading.compensation_retries must not be negative")
	}
	return nil
}

// IsAdmin reports whether id is listed under bot.admins.
func (c *Config) IsAdmin(id snowflake.ID) bool {
	for _, a := range c.Bot.Admins {
		if a == id {
			return true
		}
	}
	return false
}
