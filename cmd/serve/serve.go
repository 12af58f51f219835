// Package serve implements the serve command: the HTTP API, the MCP server
// and Prometheus metrics backed by a pool of tokenizer workers.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/cmdutil"
	"github.com/leefowlercu/tokenscope/internal/config"
	"github.com/leefowlercu/tokenscope/internal/mcp"
	"github.com/leefowlercu/tokenscope/internal/metrics"
	"github.com/leefowlercu/tokenscope/internal/server"
	"github.com/leefowlercu/tokenscope/internal/version"
	"github.com/leefowlercu/tokenscope/internal/worker"
)

// Flag variables for the serve command.
var (
	serveBind    string
	servePort    int
	serveWorkers int
	serveStdio   bool
)

// ServeCmd runs the HTTP API and MCP server in the foreground.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tokenization HTTP API and MCP tools",
	Long: "Serve the tokenization HTTP API and MCP tools in the foreground.\n\n" +
		"The API exposes /v1/tokenize, /v1/count, /v1/models and /v1/formats, the MCP " +
		"streamable HTTP endpoint at /mcp, Prometheus metrics at /metrics and the /healthz " +
		"and /readyz checks. Requests are handled by a pool of tokenizer workers.\n\n" +
		"With --stdio the MCP server speaks over stdin and stdout instead and no HTTP " +
		"listener is opened, for use as a local MCP server in agent configurations.",
	Example: `  # Serve on the configured address
  tokenscope serve

  # Serve on all interfaces with 8 workers
  tokenscope serve --bind 0.0.0.0 --port 8080 --workers 8

  # Run as a stdio MCP server
  tokenscope serve --stdio`,
	Args:    cobra.NoArgs,
	PreRunE: validateServe,
	RunE:    runServe,
}

func init() {
	ServeCmd.Flags().StringVar(&serveBind, "bind", "", "Address to bind (default from server.http_bind)")
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from server.http_port)")
	ServeCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Number of tokenizer workers (default from server.workers)")
	ServeCmd.Flags().BoolVar(&serveStdio, "stdio", false, "Serve MCP over stdin and stdout instead of HTTP")
}

func validateServe(cmd *cobra.Command, args []string) error {
	if servePort < 0 || servePort > 65535 {
		return fmt.Errorf("--port must be between 0 and 65535, got %d", servePort)
	}
	if serveWorkers < 0 {
		return fmt.Errorf("--workers must be non-negative, got %d", serveWorkers)
	}
	cmd.SilenceUsage = true
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	appCfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default().With("component", "serve")

	cfg := serverConfig(appCfg)
	workers := appCfg.Server.Workers
	if serveWorkers > 0 {
		workers = serveWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, err := cmdutil.NewAdapter(appCfg, logger)
	if err != nil {
		return err
	}
	pool, err := worker.NewPool(ctx, adapter, workers, logger.With("component", "pool"))
	if err != nil {
		return fmt.Errorf("failed to start workers; %w", err)
	}
	defer pool.Close()

	mcpSrv := mcp.NewServer(pool, adapter.Catalog(), mcp.Config{
		Name:         "tokenscope",
		Version:      version.Get().Version,
		BasePath:     "/mcp",
		DefaultModel: cfg.DefaultModel,
		MaxTextBytes: int(cfg.MaxBodyBytes),
	}, logger.With("component", "mcp"))

	if serveStdio {
		logger.Info("serving MCP over stdio", "workers", pool.Size())
		return mcpSrv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	health := server.NewHealthManager()
	collector := metrics.NewCollector(time.Duration(appCfg.Server.MetricsInterval) * time.Second)
	collector.Register("worker_pool", health.Track("worker_pool", pool, true))

	srv := server.New(pool, adapter.Catalog(), health, cfg, logger.With("component", "http"))
	srv.SetMCPHandler(mcpSrv.BasePath(), mcpSrv.Handler())
	srv.SetMetricsHandler(metrics.Handler())

	if err := mcpSrv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP server; %w", err)
	}
	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics collector; %w", err)
	}
	defer collector.Stop()

	logger.Info("starting server",
		"addr", cfg.Addr(),
		"workers", pool.Size(),
		"version", version.Get().Short(),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error; %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout_seconds", appCfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(appCfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop HTTP server; %w", err))
	}
	if err := mcpSrv.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop MCP server; %w", err))
	}
	if err := <-errCh; err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func serverConfig(appCfg *config.Config) server.Config {
	cfg := server.DefaultConfig()
	cfg.Bind = appCfg.Server.HTTPBind
	cfg.Port = appCfg.Server.HTTPPort
	cfg.RateLimit = appCfg.Server.RateLimit
	cfg.RateBurst = appCfg.Server.RateBurst
	cfg.MaxBodyBytes = appCfg.Server.MaxBodyBytes
	cfg.CORSOrigins = appCfg.Server.CORSOrigins
	cfg.DefaultModel = appCfg.Visualizer.DefaultModel

	if serveBind != "" {
		cfg.Bind = serveBind
	}
	if servePort > 0 {
		cfg.Port = servePort
	}
	return cfg
}
