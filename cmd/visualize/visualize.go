// Package visualize implements the interactive token visualizer command.
package visualize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/cmdutil"
	"github.com/leefowlercu/tokenscope/internal/config"
	"github.com/leefowlercu/tokenscope/internal/coordinator"
	"github.com/leefowlercu/tokenscope/internal/tui/visualizer"
	"github.com/leefowlercu/tokenscope/internal/watcher"
	"github.com/leefowlercu/tokenscope/internal/worker"
)

// Flag variables for the visualize command.
var (
	visualizeModel   string
	visualizeFile    string
	visualizeIsolate bool
)

// VisualizeCmd opens the interactive visualizer.
var VisualizeCmd = &cobra.Command{
	Use:   "visualize [text]",
	Short: "Open the interactive token visualizer",
	Long: "Open the interactive token visualizer.\n\n" +
		"Text typed into the input area is tokenized as you type. Each token is shown as a " +
		"colored chip; select one with the arrow keys or the mouse to see its id, raw bytes " +
		"and code points. Press ctrl+o to switch models and ? for all key bindings.\n\n" +
		"With --file the input follows a file on disk and reloads whenever it is saved.",
	Example: `  # Start with an empty input
  tokenscope

  # Start with text and a specific model
  tokenscope visualize --model gpt-4 "Hello, world!"

  # Follow a prompt file as it is edited
  tokenscope visualize --file prompt.txt`,
	Args:        cobra.ArbitraryArgs,
	Annotations: map[string]string{cmdutil.AnnotationLogs: cmdutil.LogsFileOnly},
	PreRunE:     validateVisualize,
	RunE:        runVisualize,
}

func init() {
	RegisterFlags(VisualizeCmd)
}

// RegisterFlags adds the visualize flags to c. The root command shares them
// so that running tokenscope without a subcommand accepts the same flags.
func RegisterFlags(c *cobra.Command) {
	c.Flags().StringVarP(&visualizeModel, "model", "m", "", "Model to tokenize with (default from visualizer.default_model)")
	c.Flags().StringVarP(&visualizeFile, "file", "f", "", "Follow this file as the input text")
	c.Flags().BoolVar(&visualizeIsolate, "isolate", false, "Run the tokenizer in a child process")
}

func validateVisualize(cmd *cobra.Command, args []string) error {
	if visualizeFile != "" && len(args) > 0 {
		return fmt.Errorf("text arguments cannot be combined with --file")
	}
	cmd.SilenceUsage = true
	return nil
}

func runVisualize(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default().With("component", "visualize")

	cat, err := cmdutil.NewCatalog(cfg)
	if err != nil {
		return err
	}
	model := visualizeModel
	if model == "" {
		model = cfg.Visualizer.DefaultModel
	}
	if _, err := cat.Lookup(model); err != nil {
		return fmt.Errorf("%w; available models: %s", err, strings.Join(cat.IDs(), ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := openWorker(ctx, cfg, visualizeIsolate || cfg.Visualizer.Isolate, logger)
	if err != nil {
		return err
	}

	coord := coordinator.New(conn, coordinator.Options{
		Debounce: cfg.Visualizer.Debounce(),
		Model:    model,
		Logger:   logger.With("component", "coordinator"),
	})
	defer coord.Close()

	opts := visualizer.Options{
		Dispatcher: coord,
		Catalog:    cat,
		Model:      model,
		Text:       strings.Join(args, " "),
		Grid:       cfg.Grid,
		Logger:     logger,
	}

	if visualizeFile != "" {
		path, err := cmdutil.ResolvePath(visualizeFile)
		if err != nil {
			return fmt.Errorf("failed to resolve %s; %w", visualizeFile, err)
		}
		w, err := watcher.New(path, watcher.WithLogger(logger.With("component", "watcher")))
		if err != nil {
			return fmt.Errorf("failed to watch %s; %w", path, err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch %s; %w", path, err)
		}
		defer w.Stop()

		opts.Source = path
		opts.Snapshots = w.Snapshots()
		opts.WatchErrors = w.Errors()
	}

	logger.Info("starting visualizer", "model", model, "isolate", visualizeIsolate || cfg.Visualizer.Isolate, "file", opts.Source)
	return visualizer.Run(ctx, opts)
}

// openWorker starts the tokenizer worker in-process, or as a child running
// the hidden worker command when isolate is set.
func openWorker(ctx context.Context, cfg *config.Config, isolate bool, logger *slog.Logger) (worker.Conn, error) {
	if isolate {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable; %w", err)
		}
		conn, err := worker.Spawn(ctx, logger.With("component", "worker"), exe, "worker")
		if err != nil {
			return nil, fmt.Errorf("failed to start worker process; %w", err)
		}
		return conn, nil
	}

	adapter, err := cmdutil.NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	return worker.Start(ctx, adapter, worker.WithLogger(logger.With("component", "worker"))), nil
}
