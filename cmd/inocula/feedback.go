package main

import (
	"errors"
	"fmt"

	"github.com/kiranshivaraju/inocula/internal/moderation"
	"github.com/spf13/cobra"
)

func newReportCmd(opts *cliOptions) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "report [analysis-id]",
		Short: "Ask moderators to review an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			report, err := opts.client().FileReport(cmd.Context(), id, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filed report %s\n", report.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "Why the analysis needs review")
	return cmd
}

func newFeedbackCmd(opts *cliOptions) *cobra.Command {
	var helpful, notHelpful bool
	cmd := &cobra.Command{
		Use:   "feedback [analysis-id]",
		Short: "Rate whether an analysis was helpful",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if helpful == notHelpful {
				return errors.New("exactly one of --helpful or --not-helpful is required")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := opts.client().SubmitFeedback(cmd.Context(), id, helpful); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Thanks for the feedback")
			return nil
		},
	}
	cmd.Flags().BoolVar(&helpful, "helpful", false, "The analysis was helpful")
	cmd.Flags().BoolVar(&notHelpful, "not-helpful", false, "The analysis was not helpful")
	return cmd
}

// newEscalateCmd composes a notice for the platform's safety team. It never
// changes the record's status; use "reports set-status" for that.
func newEscalateCmd(opts *cliOptions) *cobra.Command {
	var comment, to string
	cmd := &cobra.Command{
		Use:   "escalate [analysis-id]",
		Short: "Compose an escalation notice for the platform safety team",
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

			notice := moderation.ComposeEscalation(detail.Analysis, comment, to)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "To: %s\nSubject: %s\n\n%s\n", notice.To, notice.Subject, notice.Body)
			fmt.Fprintf(out, "Open in mail client:\n%s\n", notice.MailtoURL())
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "Comment to include in the notice")
	cmd.Flags().StringVar(&to, "to", moderation.DefaultSafetyAddress, "Recipient address")
	return cmd
}
