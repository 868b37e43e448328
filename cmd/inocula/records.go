package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kiranshivaraju/inocula/internal/client"
	"github.com/kiranshivaraju/inocula/pkg/models"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	var (
		limit int
		watch time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch <= 0 {
				records, err := opts.client().History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printRecords(cmd.OutOrStdout(), records)
				return nil
			}
			return watchHistory(cmd.Context(), cmd.OutOrStdout(), client.NewRecordCache(opts.client(), watch, limit), watch)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records (0 for all)")
	cmd.Flags().DurationVar(&watch, "watch", 0, "Re-list every interval until interrupted")
	return cmd
}

// watchHistory prints the listing whenever the cache refreshes it.
func watchHistory(ctx context.Context, out io.Writer, cache *client.RecordCache, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		records, err := cache.Records(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "--- %s ---\n", time.Now().Format("15:04:05"))
		printRecords(out, records)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newReportsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Moderate analysis records",
	}

	var (
		status string
		limit  int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records for moderation",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := opts.client().ListReports(cmd.Context(), status, limit)
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (submitted, escalated, resolved)")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show [analysis-id]",
		Short: "Show a record with its reports and feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			detail, err := opts.client().Detail(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rec := detail.Analysis
			fmt.Fprintf(out, "Analysis: %s\n", rec.ID)
			fmt.Fprintf(out, "Status:   %s\n", rec.Status)
			fmt.Fprintf(out, "Created:  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Text:     %s\n", rec.RequestText)
			printResult(out, rec.Result)
			fmt.Fprintf(out, "\nFeedback: %d helpful, %d not helpful\n", detail.Feedback.Helpful, detail.Feedback.NotHelpful)
			fmt.Fprintf(out, "Reports:  %d\n", len(detail.Reports))
			for _, r := range detail.Reports {
				comment := "-"
				if r.Comment != nil {
					comment = *r.Comment
				}
				fmt.Fprintf(out, "  [%s] %s\n", r.CreatedAt.Format("2006-01-02 15:04"), comment)
			}
			return nil
		},
	}

	setStatusCmd := &cobra.Command{
		Use:   "set-status [analysis-id] [status]",
		Short: "Move a record to escalated or resolved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := opts.client().UpdateStatus(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Analysis %s is now %s\n", rec.ID, rec.Status)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, setStatusCmd)
	return cmd
}

func newAnalyticsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show status counts and records per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := opts.client().Analytics(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tCOUNT")
			for _, s := range models.ModerationStatuses {
				fmt.Fprintf(w, "%s\t%d\n", s, stats.StatusCounts[s])
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "DATE\tRECORDS")
			for _, d := range stats.DailyReports {
				fmt.Fprintf(w, "%s\t%d\n", d.Date, d.Count)
			}
			return w.Flush()
		},
	}
}

func printRecords(out io.Writer, records []*models.AnalysisRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tSTATUS\tCREATED\tTEXT")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.Result.Score, r.Status, r.CreatedAt.Format("2006-01-02 15:04"), truncate(r.RequestText, 40))
	}
	w.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
