// Package worker runs tokenization off the caller's goroutine. A worker owns
// exactly one tokenizer handle at a time and answers tagged messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leefowlercu/tokenscope/internal/metrics"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

// State is the worker lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateReady
	StateBusy
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Conn is a host-side connection to a worker.
type Conn interface {
	// Send queues a request. It does not wait for the reply.
	Send(req Request) error

	// Messages delivers replies in order. The channel is closed once the
	// worker terminates.
	Messages() <-chan Message

	// Close stops the worker and releases its tokenizer handle.
	Close() error
}

// DefaultQueueSize bounds the requests a worker buffers before Send blocks.
const DefaultQueueSize = 64

// Worker is the in-process worker.
type Worker struct {
	adapter   *tokenizer.Adapter
	logger    *slog.Logger
	bootstrap func(context.Context) error

	requests chan Request
	messages chan Message
	state    atomic.Int32
	model    atomic.Value

	ready     chan struct{}
	startErr  error
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	draining  chan struct{}
	drainOnce sync.Once

	// handle is owned by the run goroutine.
	handle *tokenizer.Handle
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithBootstrap runs fn before the worker reports ready. An error makes the
// worker emit a worker_startup error and terminate.
func WithBootstrap(fn func(context.Context) error) Option {
	return func(w *Worker) {
		w.bootstrap = fn
	}
}

// WithQueueSize sets the request buffer size.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.requests = make(chan Request, n)
		}
	}
}

// Start launches an in-process worker. The first message is either ready or
// a worker_startup error.
func Start(ctx context.Context, adapter *tokenizer.Adapter, opts ...Option) *Worker {
	w := &Worker{
		adapter:  adapter,
		logger:   slog.Default(),
		requests: make(chan Request, DefaultQueueSize),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		draining: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.messages = make(chan Message, cap(w.requests)+8)
	w.model.Store("")
	w.ctx, w.cancel = context.WithCancel(ctx)

	go w.run()
	return w
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// CurrentModel returns the model of the live handle, or "" if none.
func (w *Worker) CurrentModel() string {
	return w.model.Load().(string)
}

// WaitReady blocks until the worker is ready, fails to start or ctx ends.
func (w *Worker) WaitReady(ctx context.Context) error {
	select {
	case <-w.ready:
		return w.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send implements Conn.
func (w *Worker) Send(req Request) error {
	if w.State() == StateTerminated {
		return ErrTerminated
	}
	select {
	case w.requests <- req:
		return nil
	case <-w.done:
		return ErrTerminated
	}
}

// Messages implements Conn.
func (w *Worker) Messages() <-chan Message {
	return w.messages
}

// Drain stops intake and returns once every request already sent has been
// answered, or ctx ends. The worker is closed either way.
func (w *Worker) Drain(ctx context.Context) error {
	w.drainOnce.Do(func() { close(w.draining) })
	select {
	case <-w.done:
	case <-ctx.Done():
	}
	return w.Close()
}

// Close implements Conn.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		<-w.done
	})
	return nil
}

func (w *Worker) run() {
	defer close(w.done)
	defer close(w.messages)
	defer w.state.Store(int32(StateTerminated))
	defer w.releaseHandle()

	if err := w.start(); err != nil {
		w.startErr = &WorkerStartupError{Err: err}
		close(w.ready)
		w.logger.Error("worker startup failed", "error", err)
		w.emit(errorMessage(0, w.startErr))
		return
	}

	w.state.Store(int32(StateReady))
	close(w.ready)
	w.emit(readyMessage())
	w.logger.Debug("worker ready")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("worker stopping due to context cancellation")
			return
		case <-w.draining:
			for {
				select {
				case req := <-w.requests:
					w.serve(req)
				default:
					w.logger.Debug("worker drained")
					return
				}
			}
		case req := <-w.requests:
			w.serve(req)
		}
	}
}

func (w *Worker) serve(req Request) {
	w.state.Store(int32(StateBusy))
	msg := w.process(req)
	w.state.Store(int32(StateReady))
	w.emit(msg)
}

func (w *Worker) start() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bootstrap panicked; %v", r)
		}
	}()
	if w.adapter == nil {
		return fmt.Errorf("no tokenizer adapter")
	}
	if w.bootstrap != nil {
		return w.bootstrap(w.ctx)
	}
	return nil
}

// process runs one job. Nothing raised here escapes the worker.
func (w *Worker) process(req Request) (msg Message) {
	start := time.Now()
	encoding := ""

	defer func() {
		if r := recover(); r != nil {
			msg = errorMessage(req.ID, &tokenizer.EncodingError{Op: "tokenize", Err: fmt.Errorf("%v", r)})
		}
		var err error
		if msg.Status == StatusError {
			err = msg.Err()
		}
		metrics.RecordJob(encoding, msg.TokenCount, time.Since(start), err)
	}()

	if req.ModelID == "" {
		return errorMessage(req.ID, fmt.Errorf("%w; empty model id", errInvalidRequest))
	}

	if err := w.ensureHandle(req); err != nil {
		w.logger.Warn("model resolution failed", "model", req.ModelID, "error", err)
		return errorMessage(req.ID, err)
	}
	encoding = w.handle.EncodingName()

	stream, err := tokens.Build(w.handle, req.Text)
	if err != nil {
		w.logger.Warn("tokenization failed", "model", req.ModelID, "id", req.ID, "error", err)
		return errorMessage(req.ID, err)
	}

	w.logger.Debug("tokenization complete",
		"id", req.ID,
		"model", req.ModelID,
		"tokens", stream.TokenCount,
		"duration", time.Since(start))
	return completeMessage(req.ID, stream)
}

// ensureHandle makes the live handle match req.ModelID. The previous handle
// is disposed before the new one is resolved.
func (w *Worker) ensureHandle(req Request) error {
	if w.handle != nil && w.handle.ModelID() == req.ModelID {
		return nil
	}

	if _, err := w.adapter.Catalog().Lookup(req.ModelID); err != nil {
		return err
	}

	w.releaseHandle()

	h, err := w.adapter.Resolve(w.ctx, req.ModelID, func(percent float64) {
		w.emit(progressMessage(req.ID, percent))
	})
	if err != nil {
		return err
	}
	w.handle = h
	w.model.Store(h.ModelID())
	return nil
}

func (w *Worker) releaseHandle() {
	if w.handle == nil {
		return
	}
	if err := w.handle.Dispose(); err != nil {
		w.logger.Warn("failed to dispose tokenizer handle", "model", w.handle.ModelID(), "error", err)
	}
	w.handle = nil
	w.model.Store("")
}

func (w *Worker) emit(msg Message) {
	select {
	case w.messages <- msg:
	case <-w.ctx.Done():
	}
}
