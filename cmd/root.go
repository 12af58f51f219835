package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/cmd/config"
	"github.com/leefowlercu/tokenscope/cmd/models"
	"github.com/leefowlercu/tokenscope/cmd/serve"
	"github.com/leefowlercu/tokenscope/cmd/tokenize"
	"github.com/leefowlercu/tokenscope/cmd/version"
	"github.com/leefowlercu/tokenscope/cmd/visualize"
	"github.com/leefowlercu/tokenscope/cmd/worker"
	"github.com/leefowlercu/tokenscope/internal/cmdutil"
	internalconfig "github.com/leefowlercu/tokenscope/internal/config"
	"github.com/leefowlercu/tokenscope/internal/logging"
)

// logManager is created in init() and upgraded after config loads.
var logManager *logging.Manager

var tokenscopeCmd = &cobra.Command{
	Use:   "tokenscope [text]",
	Short: "See how language models split text into tokens",
	Long: "tokenscope shows how a model's tokenizer splits text into tokens.\n\n" +
		"Run without a subcommand to open the interactive visualizer: type or paste text and " +
		"every token appears as a colored chip, with its id, bytes and code points one " +
		"keypress away. The same tokenizers back the tokenize command, the HTTP API and the " +
		"MCP server started by serve.",
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: runInitialize,
	PreRunE:           visualize.VisualizeCmd.PreRunE,
	RunE:              visualize.VisualizeCmd.RunE,
	Annotations:       visualize.VisualizeCmd.Annotations,
}

func init() {
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())

	visualize.RegisterFlags(tokenscopeCmd)

	tokenscopeCmd.AddCommand(visualize.VisualizeCmd)
	tokenscopeCmd.AddCommand(tokenize.TokenizeCmd)
	tokenscopeCmd.AddCommand(models.ModelsCmd)
	tokenscopeCmd.AddCommand(serve.ServeCmd)
	tokenscopeCmd.AddCommand(worker.WorkerCmd)
	tokenscopeCmd.AddCommand(config.ConfigCmd)
	tokenscopeCmd.AddCommand(version.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := internalconfig.Init(); err != nil {
		return err
	}

	levelStr := internalconfig.GetString("log_level")
	level, ok := logging.ParseLevel(levelStr)
	if !ok {
		level = logging.DefaultLevel
		if levelStr != "" {
			logger.Warn("invalid log level configured, using default", "configured", levelStr, "default", "info")
		}
	}

	// The worker child logs to stderr only; its parent forwards those lines.
	if cmd.Annotations[cmdutil.AnnotationLogs] == cmdutil.LogsStderr {
		logManager.SetLevel(level)
		return nil
	}

	var opts []logging.UpgradeOption
	fullscreen := cmd.Annotations[cmdutil.AnnotationLogs] == cmdutil.LogsFileOnly
	if fullscreen {
		opts = append(opts, logging.WithoutStderr())
	}

	if err := logManager.Upgrade(internalconfig.GetPath("log_file"), level, opts...); err != nil {
		if fullscreen {
			logManager.Detach()
		} else {
			logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
		}
	}

	internalconfig.SetupSignalHandler(func(prev, next *internalconfig.Config) {
		if prev.LogLevel != next.LogLevel {
			logManager.SetLevel(logging.ParseLevelOrDefault(next.LogLevel))
			logger.Info("log level reloaded", "from", prev.LogLevel, "to", next.LogLevel)
		}
		if prev.Visualizer.DefaultModel != next.Visualizer.DefaultModel {
			logger.Info("default model changes on next start", "model", next.Visualizer.DefaultModel)
		}
	})

	return nil
}

// Execute runs the root command.
func Execute() error {
	tokenscopeCmd.SilenceErrors = true
	tokenscopeCmd.SilenceUsage = true

	defer func() {
		internalconfig.StopSignalHandler()
		_ = logManager.Close()
	}()

	err := tokenscopeCmd.Execute()

	if err != nil {
		cmd, _, _ := tokenscopeCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = tokenscopeCmd
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Fprintln(os.Stderr)
			cmd.SetOut(os.Stderr)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
