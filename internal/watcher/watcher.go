// Package watcher follows one input file and delivers its contents each time
// it settles after a change.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leefowlercu/tokenscope/internal/fsutil"
	"github.com/leefowlercu/tokenscope/internal/metrics"
)

// Defaults for Options.
const (
	DefaultDebounce    = 100 * time.Millisecond
	DefaultGracePeriod = 500 * time.Millisecond
	DefaultMaxSize     = 8 << 20
)

// ErrTooLarge is reported when the file exceeds the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// Snapshot is the file's content after a settled change.
type Snapshot struct {
	Path    string
	Content string
	Hash    string
	ModTime time.Time

	// Removed is set when the file disappeared and did not come back within
	// the grace period. Content is empty.
	Removed bool
}

// Stats describes watcher activity.
type Stats struct {
	EventsReceived  int64
	EventsCoalesced int64
	Reloads         int64
	Unchanged       int64
	Errors          int64
	Running         bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is read.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithGracePeriod sets how long a removed file may take to reappear.
func WithGracePeriod(d time.Duration) Option {
	return func(w *Watcher) {
		w.grace = d
	}
}

// WithMaxSize sets the largest file that is read.
func WithMaxSize(n int64) Option {
	return func(w *Watcher) {
		w.maxSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// Watcher follows a single file. The parent directory is watched so editors
// that save by renaming a temporary file over the target are seen.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	coalescer *Coalescer
	logger    *slog.Logger

	debounce time.Duration
	grace    time.Duration
	maxSize  int64

	mu       sync.RWMutex
	stats    Stats
	lastHash string
	running  bool

	snapshots chan Snapshot
	errs      chan error
	stopCh    chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New creates a Watcher for path. The file must exist.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path; %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file; %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", abs)
	}

	w := &Watcher{
		path:      abs,
		logger:    slog.Default(),
		debounce:  DefaultDebounce,
		grace:     DefaultGracePeriod,
		maxSize:   DefaultMaxSize,
		snapshots: make(chan Snapshot, 4),
		errs:      make(chan error, 4),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("path", abs)
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Snapshots delivers file contents. The first snapshot is the content at
// Start. It is closed by Stop.
func (w *Watcher) Snapshots() <-chan Snapshot {
	return w.snapshots
}

// Errors delivers read and fsnotify errors. Errors are dropped when nobody
// is reading.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Start reads the file once and then follows changes until ctx is done or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.stats.Running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher; %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch directory; %w", err)
	}

	snap, err := w.read()
	if err != nil {
		_ = fsw.Close()
		w.mu.Lock()
		w.running = false
		w.stats.Running = false
		w.mu.Unlock()
		return err
	}

	w.fsWatcher = fsw
	w.coalescer = NewCoalescer(w.debounce, w.grace)
	w.mu.Lock()
	w.lastHash = snap.Hash
	w.mu.Unlock()
	metrics.WatchedFiles.Inc()
	w.snapshots <- snap

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.processChanges(ctx)

	w.logger.Debug("watching file")
	return nil
}

// Stop ends watching and closes Snapshots.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		wasRunning := w.running
		w.running = false
		w.stats.Running = false
		w.mu.Unlock()

		close(w.stopCh)
		if wasRunning && w.fsWatcher != nil {
			w.coalescer.Stop()
			err = w.fsWatcher.Close()
			w.wg.Wait()
			metrics.WatchedFiles.Dec()
		}
		close(w.snapshots)
	})
	return err
}

// Stats returns a copy of the current statistics.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.stats
	if w.coalescer != nil {
		s.EventsCoalesced = w.coalescer.Merged()
	}
	return s
}

// CollectMetrics implements metrics.MetricsProvider.
func (w *Watcher) CollectMetrics(ctx context.Context) error {
	if !w.Stats().Running {
		return fmt.Errorf("watcher for %s is not running", w.path)
	}
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)
			w.report(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	w.mu.Lock()
	w.stats.EventsReceived++
	w.mu.Unlock()

	var op Op
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		op = OpRemove
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	default:
		return
	}
	w.coalescer.Add(Change{Path: w.path, Op: op, At: time.Now()})
}

func (w *Watcher) processChanges(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ch, ok := <-w.coalescer.Changes():
			if !ok {
				return
			}
			w.publish(ch)
		}
	}
}

func (w *Watcher) publish(ch Change) {
	var snap Snapshot
	if ch.Op == OpRemove {
		if _, err := os.Stat(w.path); err == nil {
			// Came back without a create event we could see.
			ch.Op = OpWrite
		}
	}

	if ch.Op == OpRemove {
		w.mu.Lock()
		w.lastHash = ""
		w.mu.Unlock()
		snap = Snapshot{Path: w.path, Removed: true}
	} else {
		var err error
		snap, err = w.read()
		if err != nil {
			metrics.RecordFileReload(false, err)
			w.report(err)
			return
		}
		w.mu.Lock()
		unchanged := snap.Hash == w.lastHash
		if !unchanged {
			w.lastHash = snap.Hash
		}
		w.mu.Unlock()
		metrics.RecordFileReload(unchanged, nil)
		if unchanged {
			w.mu.Lock()
			w.stats.Unchanged++
			w.mu.Unlock()
			return
		}
	}

	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()
	w.logger.Debug("file changed", "op", ch.Op.String(), "bytes", len(snap.Content))

	select {
	case w.snapshots <- snap:
	case <-w.stopCh:
	}
}

// read loads the file and hashes it.
func (w *Watcher) read() (Snapshot, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open file; %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to stat file; %w", err)
	}
	if info.Size() > w.maxSize {
		return Snapshot{}, fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, info.Size(), w.maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, w.maxSize+1))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read file; %w", err)
	}
	if int64(len(data)) > w.maxSize {
		return Snapshot{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, w.maxSize)
	}

	if err := fsutil.CheckText(w.path, data); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Path:    w.path,
		Content: string(data),
		Hash:    fsutil.HashBytes(data),
		ModTime: info.ModTime(),
	}, nil
}

func (w *Watcher) report(err error) {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
	select {
	case w.errs <- err:
	default:
	}
}
