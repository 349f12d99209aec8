package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/studypet/studypet-hub/internal/app"
	"github.com/studypet/studypet-hub/internal/application/command"
)

func newUserCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Create or delete user progressions",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a progression with a new pet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("user-id")
			name, _ := cmd.Flags().GetString("pet-name")
			petType, _ := cmd.Flags().GetString("pet-type")

			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				p, err := a.Commands.CreateProgression.Handle(ctx, command.CreateProgressionCommand{
					UserID:  id,
					PetName: name,
					PetType: petType,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
	create.Flags().String("user-id", "", "User ID (generated when empty)")
	create.Flags().String("pet-name", "", "Pet name, 3-30 characters")
	create.Flags().String("pet-type", "cat", "Pet type: cat or dog")
	_ = create.MarkFlagRequired("pet-name")

	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a progression and all its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				if err := a.Commands.DeleteProgression.Handle(ctx, command.DeleteProgressionCommand{UserID: args[0]}); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			})
		},
	}

	user.AddCommand(create, del)
	return user
}
