// Package mcp exposes tokenization as Model Context Protocol tools.
package mcp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/export"
	"github.com/leefowlercu/tokenscope/internal/tokens"
	"github.com/leefowlercu/tokenscope/internal/version"
)

// Tokenizer runs one tokenization job. *worker.Pool implements it.
type Tokenizer interface {
	Tokenize(ctx context.Context, text, modelID string) (*tokens.Stream, error)
}

// Config contains MCP server configuration.
type Config struct {
	// Name is the server name advertised to clients.
	Name string
	// Version is the server version.
	Version string
	// BasePath is the URL path of the streamable HTTP endpoint.
	BasePath string
	// DefaultModel is used when a tool call names no model.
	DefaultModel string
	// MaxTextBytes rejects larger tool inputs. Zero disables the check.
	MaxTextBytes int
}

// DefaultConfig returns default MCP server configuration.
func DefaultConfig() Config {
	return Config{
		Name:         "tokenscope",
		Version:      version.Get().Version,
		BasePath:     "/mcp",
		DefaultModel: "gpt-4o",
		MaxTextBytes: 4 << 20,
	}
}

// Server wraps the MCP server with the tokenization tools and catalog
// resources.
type Server struct {
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	tok        Tokenizer
	catalog    *catalog.Catalog
	exporter   *export.Exporter
	cfg        Config
	logger     *slog.Logger

	mu      sync.RWMutex
	running bool
}

// NewServer creates an MCP server backed by tok.
func NewServer(tok Tokenizer, cat *catalog.Catalog, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/mcp"
	}

	s := &Server{
		tok:      tok,
		catalog:  cat,
		exporter: export.NewExporter(),
		cfg:      cfg,
		logger:   logger,
	}

	s.mcpServer = server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.registerResources()
	s.registerTools()

	s.httpServer = server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
		server.WithHeartbeatInterval(30*time.Second),
		server.WithEndpointPath(cfg.BasePath),
	)

	logger.Debug("MCP server created",
		"name", cfg.Name,
		"version", cfg.Version,
		"base_path", cfg.BasePath,
	)

	return s
}

// Start marks the server as running.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.logger.Info("MCP server started", "base_path", s.cfg.BasePath)
	return nil
}

// Stop shuts down the HTTP transport.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("MCP server shutdown error", "error", err)
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// Running reports whether Start was called without a later Stop.
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Handler returns the streamable HTTP handler, mounted at Config.BasePath.
func (s *Server) Handler() http.Handler {
	return s.httpServer
}

// BasePath returns the HTTP endpoint path.
func (s *Server) BasePath() string {
	return s.cfg.BasePath
}

// ServeStdio speaks MCP over r and w until ctx is done or r is closed.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, r, w)
}
