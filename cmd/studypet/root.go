package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/studypet/studypet-hub/config"
	"github.com/studypet/studypet-hub/internal/app"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "studypet",
		Short:         "Study Pet progression tool",
		Long:          "Manage study pets: users, study sessions, XP, streaks and pet energy.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("driver", "", "Storage driver: postgres, sqlite or memory (overrides DB_DRIVER)")
	root.PersistentFlags().String("db", "", "Path to SQLite database file (implies --driver=sqlite when --driver is not set)")

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newSessionCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newPetCmd())
	root.AddCommand(newDecayCmd())
	root.AddCommand(newSweepCmd())

	return root
}

// loadConfig reads the environment and applies the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	driver, _ := cmd.Flags().GetString("driver")
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.Database.SQLitePath = path
		if driver == "" {
			driver = config.DriverSQLite
		}
	}
	if driver != "" {
		cfg.Database.Driver = driver
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := app.SetupLogger(cfg)
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
