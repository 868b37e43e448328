package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/inocula/internal/client"
	"github.com/spf13/cobra"
)

// requestTimeout must exceed the server's long-poll maximum.
const requestTimeout = 30 * time.Second

type cliOptions struct {
	apiAddr string
}

func (o *cliOptions) client() *client.HTTPClient {
	return client.NewHTTPClient(o.apiAddr, requestTimeout)
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "inocula",
		Short:         "Inocula - credibility analysis CLI",
		Long:          `Inocula submits text for credibility analysis, browses analysis history and drives the moderation workflow.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// No RunE - defaults to showing help when no subcommand is provided
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiAddr, "api", envOr("INOCULA_API", "http://127.0.0.1:8080"), "API server address")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newStatusCmd(opts),
		newHistoryCmd(opts),
		newReportsCmd(opts),
		newAnalyticsCmd(opts),
		newReportCmd(opts),
		newFeedbackCmd(opts),
		newEscalateCmd(opts),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
