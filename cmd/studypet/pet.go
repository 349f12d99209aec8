package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/studypet/studypet-hub/internal/app"
	"github.com/studypet/studypet-hub/internal/application/command"
	"github.com/studypet/studypet-hub/internal/application/query"
	"github.com/studypet/studypet-hub/internal/infrastructure/scheduler/jobs"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show level, streak and pet state after pending decay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				view, err := a.Queries.GetProgression.Handle(ctx, query.GetProgressionQuery{UserID: args[0]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
}

func newPetCmd() *cobra.Command {
	pet := &cobra.Command{
		Use:   "pet",
		Short: "Manage the pet",
	}

	adjust := &cobra.Command{
		Use:   "adjust <user-id>",
		Short: "Set pet energy and/or mood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.AdjustPetCommand{UserID: args[0]}
			if cmd.Flags().Changed("mood") {
				mood, _ := cmd.Flags().GetString("mood")
				c.Mood = &mood
			}
			if cmd.Flags().Changed("energy") {
				energy, _ := cmd.Flags().GetInt("energy")
				c.Energy = &energy
			}
			if c.Mood == nil && c.Energy == nil {
				return errors.New("at least one of --mood or --energy is required")
			}

			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				res, err := a.Commands.AdjustPet.Handle(ctx, c)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	adjust.Flags().String("mood", "", "Mood: happy, neutral or sad")
	adjust.Flags().Int("energy", 0, "Energy 0-100")

	pet.AddCommand(adjust)
	return pet
}

func newDecayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decay <user-id>",
		Short: "Apply pending energy decay for one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				res, err := a.Commands.ApplyDecay.Handle(ctx, command.ApplyDecayCommand{UserID: args[0]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the decay sweep once for every stale user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				cfg := a.Config.Scheduler
				job := jobs.NewDecaySweepJob(a.Store, a.Commands.ApplyDecay, a.Clock, a.Logger, jobs.DecaySweepConfig{
					Concurrency: cfg.Concurrency,
					BatchSize:   cfg.BatchSize,
					MaxBatches:  cfg.MaxBatches,
					Location:    a.Config.App.Location(),
				})

				runErr := job.Run(ctx)
				if stats := job.LastStats(); stats != nil {
					if err := printJSON(cmd.OutOrStdout(), stats); err != nil {
						return err
					}
				}
				return runErr
			})
		},
	}
}
