// Package logging owns the process logger: a stderr text logger during
// bootstrap, upgraded to stderr plus a rotating JSON file once config is
// loaded.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the JSON log file.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Manager handles logger lifecycle including bootstrap-to-full mode transitions.
// Components should obtain a logger via Logger() and use it for all logging.
type Manager struct {
	handler *SwappableHandler
	logger  *slog.Logger
	logFile *lumberjack.Logger
	level   *slog.LevelVar
	stderr  io.Writer
	mu      sync.Mutex
}

// NewManager creates a logging manager in bootstrap mode.
// Bootstrap mode writes only to stderr using text format.
// Call Upgrade() after config is available to enable file logging.
func NewManager() *Manager {
	return newManager(os.Stderr)
}

func newManager(stderr io.Writer) *Manager {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	bootstrap := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	handler := NewSwappableHandler(bootstrap)

	return &Manager{
		handler: handler,
		logger:  slog.New(handler),
		level:   level,
		stderr:  stderr,
	}
}

// Logger returns the current logger instance.
// The returned logger is stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

type upgradeOptions struct {
	stderr     bool
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

// UpgradeOption configures Upgrade.
type UpgradeOption func(*upgradeOptions)

// WithoutStderr writes only to the log file. Full-screen commands use it so
// log lines never land on the terminal.
func WithoutStderr() UpgradeOption {
	return func(o *upgradeOptions) {
		o.stderr = false
	}
}

// WithRotation overrides the log file rotation limits.
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int) UpgradeOption {
	return func(o *upgradeOptions) {
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
	}
}

// Upgrade transitions from bootstrap mode (stderr-only) to full mode
// (stderr text + rotating file JSON). Call after config is loaded.
// Returns error if the log file cannot be opened or created.
func (m *Manager) Upgrade(logFilePath string, level slog.Level, opts ...UpgradeOption) error {
	o := upgradeOptions{
		stderr:     true,
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}

	// lumberjack opens lazily; open now so a bad path fails here.
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q; %w", logFilePath, err)
	}
	_ = f.Close()

	if m.logFile != nil {
		_ = m.logFile.Close()
	}
	m.logFile = &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    o.maxSizeMB,
		MaxBackups: o.maxBackups,
		MaxAge:     o.maxAgeDays,
	}

	m.level.Set(level)
	hopts := &slog.HandlerOptions{Level: m.level}

	fileHandler := slog.NewJSONHandler(m.logFile, hopts)
	if o.stderr {
		m.handler.Swap(slogmulti.Fanout(
			slog.NewTextHandler(m.stderr, hopts),
			fileHandler,
		))
	} else {
		m.handler.Swap(fileHandler)
	}

	return nil
}

// Detach stops writing to stderr without opening a file. Used when a
// full-screen program owns the terminal and no log file is available.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.logFile != nil {
		m.handler.Swap(slog.NewJSONHandler(m.logFile, &slog.HandlerOptions{Level: m.level}))
		return
	}
	m.handler.Swap(slog.NewTextHandler(io.Discard, nil))
}

// SetLevel changes the log level at runtime.
// Applies immediately to all future log calls.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Level returns the current log level.
func (m *Manager) Level() slog.Level {
	return m.level.Level()
}

// Close cleanly shuts down the logger, closing any open file handles.
// Should be called during application shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.logFile != nil {
		err := m.logFile.Close()
		m.logFile = nil
		return err
	}
	return nil
}
