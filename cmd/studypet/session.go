package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/studypet/studypet-hub/internal/app"
	"github.com/studypet/studypet-hub/internal/application/command"
	"github.com/studypet/studypet-hub/internal/application/query"
)

func newSessionCmd() *cobra.Command {
	session := &cobra.Command{
		Use:   "session",
		Short: "Start, finish and reward study sessions",
	}

	start := &cobra.Command{
		Use:   "start <user-id>",
		Short: "Start a study session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			target, _ := cmd.Flags().GetInt("target")

			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				s, err := a.Commands.StartSession.Handle(ctx, command.StartSessionCommand{
					UserID:         args[0],
					Title:          title,
					TargetDuration: target,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}
	start.Flags().String("title", "Study session", "Session title")
	start.Flags().Int("target", 25, "Target duration in minutes")

	finish := &cobra.Command{
		Use:   "finish <user-id> <session-id>",
		Short: "Finish a session now and award its XP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.FinishSessionCommand{UserID: args[0], SessionID: args[1]}
			if cmd.Flags().Changed("focus") {
				focus, _ := cmd.Flags().GetInt("focus")
				c.FocusRating = &focus
			}

			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				res, err := a.Commands.FinishSession.Handle(ctx, c)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	finish.Flags().Int("focus", 0, "Focus rating 1-5")

	complete := &cobra.Command{
		Use:   "complete <user-id> <session-id>",
		Short: "Award XP for an already finished session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				res, err := a.Commands.CompleteSession.Handle(ctx, command.CompleteSessionCommand{
					UserID:    args[0],
					SessionID: args[1],
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List recent sessions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				sessions, err := a.Queries.ListSessions.Handle(ctx, query.ListSessionsQuery{
					UserID: args[0],
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sessions)
			})
		},
	}
	list.Flags().Int("limit", 20, "Maximum number of sessions")

	session.AddCommand(start, finish, complete, list)
	return session
}
