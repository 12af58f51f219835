// Package worker implements the hidden command that serves tokenization
// jobs over stdin and stdout for an isolated visualizer.
package worker

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/cmdutil"
	"github.com/leefowlercu/tokenscope/internal/worker"
)

// WorkerCmd runs a stdio tokenization worker.
var WorkerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Serve tokenization jobs over stdin and stdout",
	Long:   "Serve tokenization jobs as JSON lines over stdin and stdout. Started by the visualizer with --isolate.",
	Hidden: true,
	Args:   cobra.NoArgs,
	Annotations: map[string]string{
		cmdutil.AnnotationLogs: cmdutil.LogsStderr,
	},
	PreRunE: validateWorker,
	RunE:    runWorker,
}

func validateWorker(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := slog.Default().With("component", "worker", "pid", os.Getpid())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	adapter, err := cmdutil.NewAdapter(cfg, logger)
	if err != nil {
		return err
	}

	logger.Debug("worker serving on stdio")
	return worker.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), adapter, worker.WithLogger(logger))
}
