// Package coordinator turns edits and model changes into worker jobs. It
// debounces typing, numbers every dispatch and drops results that are no
// longer the latest.
package coordinator

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/leefowlercu/tokenscope/internal/metrics"
	"github.com/leefowlercu/tokenscope/internal/tokens"
	"github.com/leefowlercu/tokenscope/internal/worker"
)

// DefaultDebounce is the quiet period after the last edit.
const DefaultDebounce = 150 * time.Millisecond

// ErrDisabled is reported once the worker failed to start or went away.
var ErrDisabled = errors.New("tokenization unavailable")

// UpdateKind tags an Update.
type UpdateKind int

const (
	// UpdateStream carries a new live stream.
	UpdateStream UpdateKind = iota

	// UpdateError carries a job failure for the latest generation.
	UpdateError

	// UpdateProgress carries a vocabulary download percentage.
	UpdateProgress

	// UpdateReady reports that the worker accepted its first job slot.
	UpdateReady

	// UpdateDisabled reports that no further jobs will be dispatched.
	UpdateDisabled
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateStream:
		return "stream"
	case UpdateError:
		return "error"
	case UpdateProgress:
		return "progress"
	case UpdateReady:
		return "ready"
	case UpdateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Update is delivered to the view in the order decisions were made.
type Update struct {
	Kind       UpdateKind
	Generation uint64

	// Model is the model the job ran with.
	Model    string
	Stream   *tokens.Stream
	Err      error
	Progress float64
}

// Options configures a Coordinator.
type Options struct {
	Debounce time.Duration
	Model    string
	Logger   *slog.Logger
}

// Coordinator owns the host side of one worker connection.
type Coordinator struct {
	conn     worker.Conn
	debounce time.Duration
	logger   *slog.Logger

	mu           sync.Mutex
	text         string
	model        string
	pending      uint64
	pendingModel string
	ready        bool
	disabled     bool
	closed       bool
	held         *worker.Request
	blockedModel string
	lastEncoding string
	timer        *time.Timer
	edits        uint64

	updates   chan Update
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts listening on conn. The first job waits for the worker's ready
// message.
func New(conn worker.Conn, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Coordinator{
		conn:     conn,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		model:    opts.Model,
		updates:  make(chan Update, 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.listen()
	return c
}

// Updates delivers stream, error and status changes. It is closed by Close.
func (c *Coordinator) Updates() <-chan Update {
	return c.updates
}

// SetText records new input. Non-empty text is dispatched after the quiet
// period; empty text produces an empty stream immediately.
func (c *Coordinator) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.text = text
	c.edits++
	c.stopTimerLocked()

	if text == "" {
		c.pending++
		c.held = nil
		c.emitLocked(Update{Kind: UpdateStream, Generation: c.pending, Model: c.model, Stream: tokens.Empty(c.lastEncoding)})
		return
	}

	edit := c.edits
	c.timer = time.AfterFunc(c.debounce, func() {
		c.fire(edit)
	})
}

// SetModel switches the model and dispatches at once. With no text the job
// is an empty warm-up that makes the worker load the model.
func (c *Coordinator) SetModel(model string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if model != c.model {
		c.blockedModel = ""
	}
	c.model = model
	c.stopTimerLocked()
	req := c.prepareLocked(true)
	c.mu.Unlock()

	c.send(req)
}

// Flush dispatches pending input without waiting for the quiet period.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	req := c.prepareLocked(false)
	c.mu.Unlock()

	c.send(req)
}

// Model returns the current model.
func (c *Coordinator) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Generation returns the latest dispatched generation.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Blocked returns the model whose vocabulary failed to load, if it is the
// current model. Nothing is dispatched for it until the model changes.
func (c *Coordinator) Blocked() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blockedModel != "" && c.blockedModel == c.model {
		return c.blockedModel
	}
	return ""
}

// Disabled reports whether dispatch has stopped for good.
func (c *Coordinator) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

// Close stops the timer, closes the worker connection and closes Updates.
func (c *Coordinator) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.quit)
		c.mu.Lock()
		c.closed = true
		c.stopTimerLocked()
		c.mu.Unlock()

		err = c.conn.Close()
		<-c.done
		close(c.updates)
	})
	return err
}

func (c *Coordinator) fire(edit uint64) {
	c.mu.Lock()
	if c.closed || edit != c.edits {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	req := c.prepareLocked(false)
	c.mu.Unlock()

	c.send(req)
}

// prepareLocked allocates the next generation and returns the request to send
// now, or nil when the job is held or suppressed. Empty text is only sent
// when warmUp is set.
func (c *Coordinator) prepareLocked(warmUp bool) *worker.Request {
	if c.disabled || c.model == "" || (c.text == "" && !warmUp) {
		return nil
	}
	if c.model == c.blockedModel {
		return nil
	}

	c.pending++
	c.pendingModel = c.model
	req := &worker.Request{ID: c.pending, Text: c.text, ModelID: c.model}

	if !c.ready {
		c.held = req
		return nil
	}
	return req
}

func (c *Coordinator) send(req *worker.Request) {
	if req == nil {
		return
	}
	if err := c.conn.Send(*req); err != nil {
		c.logger.Warn("failed to dispatch tokenization job", "id", req.ID, "error", err)
		c.disable(err)
		return
	}
	c.logger.Debug("dispatched tokenization job", "id", req.ID, "model", req.ModelID, "chars", len(req.Text))
}

func (c *Coordinator) listen() {
	defer close(c.done)

	for msg := range c.conn.Messages() {
		switch msg.Status {
		case worker.StatusReady:
			c.onReady()
		case worker.StatusProgress:
			c.onProgress(msg)
		case worker.StatusComplete:
			c.onComplete(msg)
		case worker.StatusError:
			c.onError(msg)
		}
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if !closed {
		c.disable(worker.ErrTerminated)
	}
}

func (c *Coordinator) onReady() {
	c.mu.Lock()
	c.ready = true
	held := c.held
	c.held = nil
	c.emitLocked(Update{Kind: UpdateReady, Generation: c.pending})
	c.mu.Unlock()

	c.send(held)
}

func (c *Coordinator) onProgress(msg worker.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.ID != c.pending {
		return
	}
	c.emitLocked(Update{Kind: UpdateProgress, Generation: msg.ID, Model: c.pendingModel, Progress: msg.Progress})
}

func (c *Coordinator) onComplete(msg worker.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.ID != c.pending {
		metrics.RecordStaleResult()
		c.logger.Debug("dropped stale result", "id", msg.ID, "pending", c.pending)
		return
	}
	c.lastEncoding = msg.EncodingName
	c.emitLocked(Update{Kind: UpdateStream, Generation: msg.ID, Model: c.pendingModel, Stream: msg.Stream()})
}

func (c *Coordinator) onError(msg worker.Message) {
	if msg.Code == worker.CodeWorkerStartup {
		c.disable(msg.Err())
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.ID != c.pending {
		metrics.RecordStaleResult()
		return
	}
	if msg.Code == worker.CodeModelLoad {
		c.blockedModel = c.pendingModel
	}
	c.emitLocked(Update{Kind: UpdateError, Generation: msg.ID, Model: c.pendingModel, Err: msg.Err()})
}

func (c *Coordinator) disable(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return
	}
	c.disabled = true
	c.held = nil
	c.stopTimerLocked()
	c.logger.Error("tokenization disabled", "error", err)
	c.emitLocked(Update{Kind: UpdateDisabled, Generation: c.pending, Err: errors.Join(ErrDisabled, err)})
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// emitLocked must be called with mu held so updates leave in decision order.
func (c *Coordinator) emitLocked(u Update) {
	if c.closed {
		return
	}
	select {
	case c.updates <- u:
	case <-c.quit:
	}
}
