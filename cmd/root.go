package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/abhisek/finwell/internal/app"
)

var rootCmd = &cobra.Command{
	Use:          "finwell",
	Short:        "Financial wellness assessment",
	Long:         "Finwell takes the financial wellness survey, scores it across seven pillars and keeps your history in sync with the survey service.",
	SilenceUsage: true,
}

// Execute runs the root command, canceling its context on interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides FINWELL_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (overrides FINWELL_CONFIG env var)")
	rootCmd.PersistentFlags().String("api-url", "", "Survey service base URL (overrides api.base_url)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(stubServerCmd)
	rootCmd.AddCommand(versionCmd)
}

// openApp builds the App from the persistent flags, logging to logOutput.
// Callers must Close it.
func openApp(cmd *cobra.Command, logOutput io.Writer) (*app.App, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	cfgPath, _ := cmd.Flags().GetString("config")
	apiURL, _ := cmd.Flags().GetString("api-url")
	return app.New(app.Options{
		ConfigPath: cfgPath,
		DBPath:     dbPath,
		BaseURL:    apiURL,
		LogOutput:  logOutput,
	})
}

// withApp opens the App, runs fn and closes the App, waiting for
// background session sync to finish.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := openApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	err = fn(cmd.Context(), a)
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
