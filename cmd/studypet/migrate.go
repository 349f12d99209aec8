package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/studypet/studypet-hub/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, app.Options{SkipMigrations: true}, func(ctx context.Context, a *app.App) error {
				n, err := a.Migrate(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"applied": n})
			})
		},
	}
}
