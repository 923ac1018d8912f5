package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/finwell/internal/app"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove local survey data",
	Long:  "Removes the session in progress, guest results and guest profile from this device. Results stored on the service are not affected.",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		signOut, _ := cmd.Flags().GetBool("sign-out")
		if !force {
			return fmt.Errorf("this deletes local survey data; rerun with --force")
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Cache.ClearSurveyData(ctx); err != nil {
				return fmt.Errorf("clear survey data: %w", err)
			}
			if signOut {
				if err := a.Identity.ClearSurveyCredentials(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local survey data removed.")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().Bool("force", false, "Confirm deletion")
	resetCmd.Flags().Bool("sign-out", false, "Also remove survey session tokens")
}
