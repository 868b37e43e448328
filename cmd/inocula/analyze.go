package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/client"
	"github.com/kiranshivaraju/inocula/pkg/models"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(opts *cliOptions) *cobra.Command {
	var (
		noWait   bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Submit text for analysis and wait for the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			out := cmd.OutOrStdout()

			id, err := c.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if noWait {
				fmt.Fprintf(out, "Submitted task: %s\n", id)
				return nil
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Analyzing (task %s)...\n", id)
			task, err := client.NewPoller(c).WithInterval(interval).Poll(cmd.Context(), id)
			if err != nil {
				return err
			}
			printTask(out, task)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Print the task id and return immediately")
	cmd.Flags().DurationVar(&interval, "poll-interval", client.PollInterval, "Delay between status checks")
	_ = cmd.Flags().MarkHidden("poll-interval")
	return cmd
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show a task's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := opts.client().Status(cmd.Context(), id, wait)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "Long-poll up to this long for the task to finish")
	return cmd
}

func printTask(w io.Writer, task *models.Task) {
	fmt.Fprintf(w, "Task:     %s\n", task.ID)
	fmt.Fprintf(w, "Status:   %s\n", task.Status)
	if task.AnalysisID != nil {
		fmt.Fprintf(w, "Analysis: %s\n", *task.AnalysisID)
	}
	if task.Error != nil {
		fmt.Fprintf(w, "Error:    %s\n", *task.Error)
	}
	if task.Result != nil {
		printResult(w, *task.Result)
	}
}

func printResult(w io.Writer, r models.Result) {
	fmt.Fprintf(w, "Score:    %d/100 (%s)\n", r.Score, bandLabel(models.BandFor(r.Score)))
	fmt.Fprintf(w, "\n%s\n", r.Explanation)
	if len(r.Reasons) > 0 {
		fmt.Fprintln(w, "\nReasons:")
		for _, reason := range r.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
}

func bandLabel(b models.RiskBand) string {
	switch b {
	case models.RiskLow:
		return "low risk"
	case models.RiskCaution:
		return "caution"
	default:
		return "high risk"
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: must be a UUID", raw)
	}
	return id, nil
}
