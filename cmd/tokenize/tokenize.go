// Package tokenize implements the one-shot tokenize command.
package tokenize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/cmdutil"
	"github.com/leefowlercu/tokenscope/internal/config"
	"github.com/leefowlercu/tokenscope/internal/coordinator"
	"github.com/leefowlercu/tokenscope/internal/export"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokens"
	"github.com/leefowlercu/tokenscope/internal/watcher"
	"github.com/leefowlercu/tokenscope/internal/worker"
)

// Flag variables for the tokenize command.
var (
	tokenizeModel     string
	tokenizeFormat    string
	tokenizeFile      string
	tokenizeOutput    string
	tokenizeMaxTokens int
	tokenizeWatch     bool
)

// TokenizeCmd tokenizes text once, or every time a watched file changes.
var TokenizeCmd = &cobra.Command{
	Use:   "tokenize [text]",
	Short: "Tokenize text and print the tokens",
	Long: "Tokenize text and print the tokens.\n\n" +
		"Text comes from the arguments, from --file, or from stdin when neither is given. " +
		"The result is written in the chosen format: text (a table), json, yaml, toml, xml, " +
		"ids (comma-separated token ids) or raw (the decoded tokens back to back).\n\n" +
		"With --watch the file is tokenized again every time it is saved until interrupted.",
	Example: `  # Tokenize a string
  tokenscope tokenize "Hello, world!"

  # Token ids for a file, using GPT-4's encoding
  tokenscope tokenize --model gpt-4 --format ids --file prompt.txt

  # Pipe text in and write JSON to a file
  cat prompt.txt | tokenscope tokenize --format json --output tokens.json

  # Re-tokenize whenever the file changes
  tokenscope tokenize --file prompt.txt --watch --format text`,
	Args:    cobra.ArbitraryArgs,
	PreRunE: validateTokenize,
	RunE:    runTokenize,
}

func init() {
	registerFlags(TokenizeCmd)
}

func registerFlags(c *cobra.Command) {
	c.Flags().StringVarP(&tokenizeModel, "model", "m", "", "Model to tokenize with (default from visualizer.default_model)")
	c.Flags().StringVarP(&tokenizeFormat, "format", "F", export.DefaultFormat, "Output format: "+strings.Join(export.NewExporter().ListFormats(), ", "))
	c.Flags().StringVarP(&tokenizeFile, "file", "f", "", "Read text from this file (- for stdin)")
	c.Flags().StringVarP(&tokenizeOutput, "output", "o", "", "Write the result to this file instead of stdout")
	c.Flags().IntVar(&tokenizeMaxTokens, "max-tokens", 0, "Export at most this many tokens (0 = all); counts still cover the full text")
	c.Flags().BoolVarP(&tokenizeWatch, "watch", "w", false, "Tokenize again whenever --file changes")
}

func validateTokenize(cmd *cobra.Command, args []string) error {
	if tokenizeFile != "" && len(args) > 0 {
		return fmt.Errorf("text arguments cannot be combined with --file")
	}
	if tokenizeWatch && (tokenizeFile == "" || tokenizeFile == "-") {
		return fmt.Errorf("--watch requires --file with a path")
	}
	if tokenizeMaxTokens < 0 {
		return fmt.Errorf("--max-tokens must be non-negative, got %d", tokenizeMaxTokens)
	}
	if _, err := export.NewExporter().Formatter(tokenizeFormat); err != nil {
		return err
	}
	cmd.SilenceUsage = true
	return nil
}

func runTokenize(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default().With("component", "tokenize")

	model := tokenizeModel
	if model == "" {
		model = cfg.Visualizer.DefaultModel
	}

	adapter, err := cmdutil.NewAdapter(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := adapter.Catalog().Lookup(model); err != nil {
		return fmt.Errorf("%w; available models: %s", err, strings.Join(adapter.Catalog().IDs(), ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := &output{path: tokenizeOutput, w: cmd.OutOrStdout(), exporter: export.NewExporter()}
	opts := export.ExportOptions{Format: tokenizeFormat, Model: model, MaxTokens: tokenizeMaxTokens}

	if tokenizeWatch {
		return watch(ctx, adapter, cfg, model, opts, out, cmd.ErrOrStderr(), logger)
	}

	text, source, err := readText(cmd, args)
	if err != nil {
		return err
	}
	opts.Source = source

	pool, err := worker.NewPool(ctx, adapter, 1, logger)
	if err != nil {
		return fmt.Errorf("failed to start tokenizer; %w", err)
	}
	defer pool.Close()

	stream, err := pool.Tokenize(ctx, text, model)
	if err != nil {
		return fmt.Errorf("failed to tokenize; %w", err)
	}
	return out.write(stream, opts)
}

func readText(cmd *cobra.Command, args []string) (string, string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), "", nil
	case tokenizeFile != "":
		return cmdutil.ReadInput(tokenizeFile, cmd.InOrStdin())
	default:
		return cmdutil.ReadInput("-", cmd.InOrStdin())
	}
}

// watch feeds every snapshot of the file through a coordinator so that
// bursts of saves collapse into one run.
func watch(ctx context.Context, adapter *tokenizer.Adapter, cfg *config.Config, model string, opts export.ExportOptions, out *output, errOut io.Writer, logger *slog.Logger) error {
	path, err := cmdutil.ResolvePath(tokenizeFile)
	if err != nil {
		return fmt.Errorf("failed to resolve %s; %w", tokenizeFile, err)
	}
	opts.Source = path

	w, err := watcher.New(path, watcher.WithLogger(logger.With("component", "watcher")))
	if err != nil {
		return fmt.Errorf("failed to watch %s; %w", path, err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s; %w", path, err)
	}
	defer w.Stop()

	conn := worker.Start(ctx, adapter, worker.WithLogger(logger.With("component", "worker")))
	coord := coordinator.New(conn, coordinator.Options{
		Debounce: cfg.Visualizer.Debounce(),
		Model:    model,
		Logger:   logger.With("component", "coordinator"),
	})
	defer coord.Close()

	logger.Info("watching file", "path", path, "model", model)

	snapshots := w.Snapshots()
	for {
		select {
		case <-ctx.Done():
			return nil

		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			if snap.Removed {
				fmt.Fprintf(errOut, "%s was removed; waiting for it to return\n", path)
				continue
			}
			coord.SetText(string(snap.Content))

		case err := <-w.Errors():
			fmt.Fprintf(errOut, "watch error: %v\n", err)

		case u, ok := <-coord.Updates():
			if !ok {
				return nil
			}
			switch u.Kind {
			case coordinator.UpdateStream:
				if err := out.write(u.Stream, opts); err != nil {
					return err
				}
			case coordinator.UpdateError:
				fmt.Fprintf(errOut, "tokenization failed: %v\n", u.Err)
			case coordinator.UpdateDisabled:
				return u.Err
			}
		}
	}
}

type output struct {
	path     string
	w        io.Writer
	exporter *export.Exporter
}

func (o *output) write(s *tokens.Stream, opts export.ExportOptions) error {
	data, stats, err := o.exporter.Export(s, opts)
	if err != nil {
		return err
	}
	if o.path == "" {
		_, err := o.w.Write(data)
		return err
	}

	path, err := cmdutil.ResolvePath(o.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s; %w", o.path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s; %w", path, err)
	}
	slog.Debug("wrote tokens", "path", path, "format", stats.Format, "tokens", stats.TokenCount, "bytes", stats.OutputSize)
	return nil
}
