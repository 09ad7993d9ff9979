package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create tables and indexes and seed the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx, cfg.Catalog.Items); err != nil {
			slog.Error("Schema initialization failed", slog.String("type", "db"), slog.Any("error", err))
			return err
		}
		v, err := db.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %s, %d catalog items\n", v, len(cfg.Catalog.Items))
		return nil
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every user, balance, trade and bid",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		ctx := cmd.Context()

		cfg, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ResetAppTables(ctx); err != nil {
			return err
		}
		return db.InitializeItemData(ctx, cfg.Catalog.Items)
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")
	rootCmd.AddCommand(schemaCmd, resetCmd)
}
