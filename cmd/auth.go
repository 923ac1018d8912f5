package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/finwell/internal/app"
	"github.com/abhisek/finwell/internal/identity"
	"github.com/abhisek/finwell/internal/migration"
)

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Store a session token and migrate guest data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		skipMigrate, _ := cmd.Flags().GetBool("no-migrate")

		name, err := tokenName(kind)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Credentials.Set(name, args[0]); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Signed in as", a.Mode())

			if skipMigrate || !a.Identity.IsAuthenticatedForSurvey() {
				return nil
			}
			return runMigration(ctx, out, a)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored session tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Identity.ClearSurveyCredentials(); err != nil {
				return err
			}
			if all {
				if err := a.Credentials.Clear(identity.AdminSessionToken); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out. Now in", a.Mode(), "mode.")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current authentication mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.Mode())
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move guest results and profile to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return runMigration(ctx, cmd.OutOrStdout(), a)
		})
	},
}

func init() {
	loginCmd.Flags().String("kind", "full", "Token kind: simple, full or admin")
	loginCmd.Flags().Bool("no-migrate", false, "Do not migrate guest data after signing in")
	logoutCmd.Flags().Bool("all", false, "Also remove the admin token")
}

func tokenName(kind string) (string, error) {
	switch kind {
	case "simple":
		return identity.SimpleSessionToken, nil
	case "full":
		return identity.FullSessionToken, nil
	case "admin":
		return identity.AdminSessionToken, nil
	default:
		return "", fmt.Errorf("unknown token kind %q (want simple, full or admin)", kind)
	}
}

func runMigration(ctx context.Context, w io.Writer, a *app.App) error {
	report, err := a.Migration.MigrateGuestData(ctx)
	if errors.Is(err, migration.ErrSessionLost) {
		return errors.New("the service rejected your token; guest data was kept on this device, sign in again and run 'finwell migrate'")
	}
	if err != nil {
		return fmt.Errorf("migrate guest data: %w", err)
	}
	printMigrationReport(w, report)
	return nil
}

func printMigrationReport(w io.Writer, r *migration.Report) {
	if !r.HadProfile && r.Records == 0 {
		fmt.Fprintln(w, "No guest data to migrate.")
		return
	}
	if r.HadProfile {
		status := "migrated"
		if !r.ProfileMigrated {
			status = "failed"
		}
		fmt.Fprintln(w, "Profile:", status)
	}
	fmt.Fprintf(w, "Results: %d of %d migrated", r.Submitted, r.Records)
	if r.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", r.Failed)
	}
	fmt.Fprintln(w)
	if r.Cleared {
		fmt.Fprintln(w, "Guest data removed from this device.")
	} else {
		fmt.Fprintln(w, "Guest data kept on this device; run 'finwell migrate' to retry.")
	}
}
