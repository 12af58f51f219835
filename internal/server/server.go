// Package server exposes tokenization over HTTP: a JSON API, health and
// readiness checks, Prometheus metrics and the MCP endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/export"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

// Tokenizer runs one tokenization job. *worker.Pool satisfies it.
type Tokenizer interface {
	Tokenize(ctx context.Context, text, modelID string) (*tokens.Stream, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Bind string
	Port int

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	RateBurst int

	MaxBodyBytes int64
	CORSOrigins  []string
	DefaultModel string

	// RequestTimeout bounds a single tokenization job.
	RequestTimeout time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Bind:           "127.0.0.1",
		Port:           7700,
		RateLimit:      20,
		RateBurst:      40,
		MaxBodyBytes:   4 << 20,
		CORSOrigins:    []string{"*"},
		DefaultModel:   "gpt-4o",
		RequestTimeout: 30 * time.Second,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Server is the HTTP front end.
type Server struct {
	mu             sync.Mutex
	cfg            Config
	tok            Tokenizer
	catalog        *catalog.Catalog
	exporter       *export.Exporter
	health         *HealthManager
	logger         *slog.Logger
	limiter        *clientLimiter
	router         *chi.Mux
	httpServer     *http.Server
	listener       net.Listener
	mcpHandler     http.Handler
	mcpPath        string
	metricsHandler http.Handler
}

// New creates a Server. health may be nil.
func New(tok Tokenizer, cat *catalog.Catalog, health *HealthManager, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if health == nil {
		health = NewHealthManager()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{
		cfg:      cfg,
		tok:      tok,
		catalog:  cat,
		exporter: export.NewExporter(),
		health:   health,
		logger:   logger.With("component", "http-server"),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	s.setupRoutes()
	return s
}

// SetMCPHandler mounts h at path.
func (s *Server) SetMCPHandler(path string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mcpPath = path
	s.mcpHandler = h
	s.setupRoutes()
}

// SetMetricsHandler mounts h at /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsHandler = h
	s.setupRoutes()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router
}

// Health returns the health manager behind /readyz.
func (s *Server) Health() *HealthManager {
	return s.health
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(instrument(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader, "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders: []string{RequestIDHeader, HeaderTokenCount, HeaderCharCount, "Mcp-Session-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Use(limitBody(s.cfg.MaxBodyBytes))
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		r.Get("/models", s.handleListModels)
		r.Get("/models/{id}", s.handleGetModel)
		r.Get("/formats", s.handleListFormats)
		r.Post("/tokenize", s.handleTokenize)
		r.Post("/count", s.handleCount)
	})

	if s.mcpHandler != nil {
		path := s.mcpPath
		if path == "" {
			path = "/mcp"
		}
		r.Handle(path, s.mcpHandler)
		r.Handle(path+"/*", s.mcpHandler)
	}

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	s.router = r
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s; %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server already started")
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Handler().ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		// In-flight requests keep running through a graceful Shutdown.
		BaseContext: func(_ net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.health.Check(ctx)
	s.logger.Info("HTTP server listening", "addr", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed; %w", err)
	}
	return nil
}

// Addr returns the bound address once serving, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server; %w", err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	s.health.Check(r.Context())
	status := s.health.Status()
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
