package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/biscuitbarter/barterbot/barter"
	"github.com/biscuitbarter/barterbot/barter/database"
	"github.com/biscuitbarter/barterbot/barter/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "barterctl",
	Short: "Operate the biscuit barter market",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(slog.New(logger.NewHandlerWithWriter(cmd.ErrOrStderr(), logger.ParseLevel(logLevel))))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect loads the config and opens the database. Callers must call the
// returned close func.
func connect(ctx context.Context) (*barter.Config, *database.DB, error) {
	cfg, err := barter.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return cfg, db, nil
}

// openMarket wires the trading engine without any notification sinks.
func openMarket(ctx context.Context) (*barter.Bot, func(), error) {
	cfg, db, err := connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	b := barter.New(*cfg, "barterctl", "")
	b.SetupRepositories(db)
	b.SetupTrading(nil)
	return b, db.Close, nil
}
