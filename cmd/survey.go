package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/finwell/internal/app"
	"github.com/abhisek/finwell/internal/assessment"
	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/session"
	"github.com/abhisek/finwell/internal/survey"
	"github.com/abhisek/finwell/internal/ui/report"
	"github.com/abhisek/finwell/internal/ui/theme"
)

var errNoSession = errors.New("no survey in progress; run 'finwell start'")

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new survey session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		phone, _ := cmd.Flags().GetString("phone")
		children, _ := cmd.Flags().GetBool("children")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			id := a.Sessions.StartSession(ctx, scoring.TotalSteps(children), session.Contact{Email: email, Phone: phone})
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.Title.Render("Survey started"))
			fmt.Fprintln(out, "Session:", id)
			for i, q := range scoring.Questions(children) {
				fmt.Fprintf(out, "%2d. %-4s %s\n", i+1, q.ID, q.Text)
			}
			fmt.Fprintln(out, theme.Hint.Render("Answer with: finwell answer <step> q1=3 q2=5 ..."))
			return nil
		})
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <step> <question=value>...",
	Short: "Record answers in the current session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step %q: %w", args[0], err)
		}
		delta, err := parseAnswers(args[1:])
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, ok := a.Sessions.ResumeSession(ctx)
			if !ok {
				return errNoSession
			}
			a.Sessions.UpdateSession(ctx, sess.ID, step, delta)
			if sess, ok = a.Sessions.ResumeSession(ctx); ok {
				printProgress(cmd.OutOrStdout(), sess)
			}
			return nil
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Show the survey in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, ok := a.Sessions.ResumeSession(ctx)
			if !ok {
				return errNoSession
			}
			printProgress(cmd.OutOrStdout(), sess)
			return nil
		})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <answers.json>",
	Short: "Preview a score without saving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readAnswerDocument(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			p, err := a.Assessment.Preview(ctx, doc.Responses, doc.Profile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Score(p.ScoreRecord, p.Local))
			return nil
		})
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit [answers.json]",
	Short: "Submit the current survey or an answer file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var doc *survey.AnswerDocument
		if len(args) == 1 {
			d, err := readAnswerDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc = d
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			in := assessment.SubmitInput{}
			if sess, ok := a.Sessions.ResumeSession(ctx); ok {
				in.SessionID = sess.ID
				in.Responses = sess.Responses
			}
			if doc != nil {
				in.Responses = doc.Responses
				in.Profile = doc.Profile
			}
			if len(in.Responses) == 0 {
				return errNoSession
			}
			if in.Profile == nil {
				p, err := a.Cache.GuestProfile(ctx)
				if err != nil {
					return err
				}
				in.Profile = p
			}

			rec, err := a.Assessment.Submit(ctx, in)
			if err != nil {
				if errors.Is(err, assessment.ErrProfileRequired) {
					return fmt.Errorf("%w; run 'finwell profile' first", err)
				}
				var se *assessment.SubmitError
				if errors.As(err, &se) {
					return errors.New(se.Message)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Score(*rec, false))
			return nil
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Save your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var p survey.Profile
		p.Name, _ = f.GetString("name")
		p.AgeRange, _ = f.GetString("age-range")
		p.Gender, _ = f.GetString("gender")
		p.EmploymentStatus, _ = f.GetString("employment")
		p.IncomeRange, _ = f.GetString("income")
		p.CompanyCode, _ = f.GetString("company")
		p.HasChildren, _ = f.GetBool("children")
		p.Email, _ = f.GetString("email")
		p.Phone, _ = f.GetString("phone")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Assessment.SaveProfile(ctx, p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.Ok.Render("Profile saved."))
			return nil
		})
	},
}

func init() {
	startCmd.Flags().String("email", "", "Contact email")
	startCmd.Flags().String("phone", "", "Contact phone")
	startCmd.Flags().Bool("children", false, "Include the question for parents")

	pf := profileCmd.Flags()
	pf.String("name", "", "Display name")
	pf.String("age-range", "", "Age range, e.g. 25-34")
	pf.String("gender", "", "Gender")
	pf.String("employment", "", "Employment status")
	pf.String("income", "", "Income range")
	pf.String("company", "", "Company code")
	pf.Bool("children", false, "Has children")
	pf.String("email", "", "Email")
	pf.String("phone", "", "Phone")
}

// parseAnswers reads question=value pairs.
func parseAnswers(pairs []string) (map[string]int, error) {
	delta := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid answer %q (want question=value)", pair)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		delta[key] = n
	}
	return delta, nil
}

// readAnswerDocument reads path, or stdin when path is "-".
func readAnswerDocument(stdin io.Reader, path string) (*survey.AnswerDocument, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return survey.ParseAnswerDocument(raw)
}

func printProgress(w io.Writer, s *survey.Session) {
	pct := 0.0
	if s.TotalSteps > 0 {
		pct = float64(s.CurrentStep) / float64(s.TotalSteps)
	}
	fmt.Fprintln(w, "Session:", s.ID)
	fmt.Fprintf(w, "%s %d / %d\n", report.ProgressBar(pct, 30), s.CurrentStep, s.TotalSteps)
	fmt.Fprintf(w, "Answered: %d questions\n", len(s.Responses))
	if s.RemoteID == "" {
		fmt.Fprintln(w, theme.Hint.Render("Saved on this device only."))
	}
}
