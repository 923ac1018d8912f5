package cmd

import (
	"fmt"
	"io"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/finwell/internal/screens/take"
	"github.com/abhisek/finwell/internal/session"
	"github.com/abhisek/finwell/internal/survey"
	"github.com/abhisek/finwell/internal/ui/report"
	"github.com/abhisek/finwell/internal/ui/theme"
)

var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take the survey interactively",
	Long:  "Take resumes the survey in progress, or starts one, and asks each question in turn. Answers are saved as you go; press Esc to leave and run 'finwell take' again to continue.",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		email, _ := cmd.Flags().GetString("email")
		phone, _ := cmd.Flags().GetString("phone")
		children, _ := cmd.Flags().GetBool("children")

		// Logs would draw over the screen.
		a, err := openApp(cmd, io.Discard)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		ctx := cmd.Context()
		profile, err := a.Cache.GuestProfile(ctx)
		if err != nil {
			return err
		}
		if profile == nil && children {
			profile = &survey.Profile{HasChildren: true}
		}

		screen := take.New(ctx, a.Sessions, a.Assessment, take.Options{
			Profile: profile,
			Contact: session.Contact{Email: email, Phone: phone},
		})
		final, err := tea.NewProgram(screen, tea.WithContext(ctx)).Run()
		if err != nil {
			return fmt.Errorf("run survey: %w", err)
		}

		out := cmd.OutOrStdout()
		if ts, ok := final.(*take.TakeScreen); ok && ts.Record() != nil {
			fmt.Fprintln(out, report.Score(*ts.Record(), false))
			return nil
		}
		fmt.Fprintln(out, theme.Hint.Render("Your answers are saved. Run 'finwell take' to continue."))
		return nil
	},
}

func init() {
	takeCmd.Flags().String("email", "", "Contact email")
	takeCmd.Flags().String("phone", "", "Contact phone")
	takeCmd.Flags().Bool("children", false, "Include the question for parents when no profile is saved")
}
