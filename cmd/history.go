package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/finwell/internal/app"
	"github.com/abhisek/finwell/internal/ui/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past assessment results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		detail, _ := cmd.Flags().GetBool("detail")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			records, err := a.History.GetHistory(ctx)
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			case detail:
				for _, r := range records {
					fmt.Fprintln(out, report.Score(r, false))
				}
			default:
				fmt.Fprintln(out, report.History(records))
			}
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show assessment statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			records, err := a.History.GetHistory(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Stats(report.Summarize(records)))
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().Int("limit", 0, "Show at most this many results")
	historyCmd.Flags().Bool("json", false, "Print results as JSON")
	historyCmd.Flags().Bool("detail", false, "Print the full breakdown of each result")
}
