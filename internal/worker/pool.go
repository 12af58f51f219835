package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/leefowlercu/tokenscope/internal/metrics"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

// ErrPoolClosed is returned by Tokenize after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool spreads requests over several in-process workers. Replies are routed
// back to callers by request id.
type Pool struct {
	workers []*Worker
	logger  *slog.Logger

	seq  atomic.Uint64
	next atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Message
	closed  bool

	wg sync.WaitGroup
}

// NewPool starts size workers and waits for all of them to report ready.
func NewPool(ctx context.Context, adapter *tokenizer.Adapter, size int, logger *slog.Logger, opts ...Option) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		logger:  logger,
		pending: make(map[uint64]chan Message),
	}

	for i := 0; i < size; i++ {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithLogger(p.logger.With("worker_id", i)))
		w := Start(ctx, adapter, wopts...)
		p.workers = append(p.workers, w)

		p.wg.Add(1)
		go p.route(w)
	}

	for _, w := range p.workers {
		if err := w.WaitReady(ctx); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to start worker pool; %w", err)
		}
	}

	metrics.UpdateWorkerMetrics(len(p.workers), 0)
	p.logger.Info("worker pool started", "workers", len(p.workers))
	return p, nil
}

// Tokenize runs one job and waits for its result. Cancelling ctx abandons the
// job; its result is discarded when it arrives.
func (p *Pool) Tokenize(ctx context.Context, text, modelID string) (*tokens.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := p.seq.Add(1)
	replies := make(chan Message, 4)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.pending[id] = replies
	p.mu.Unlock()
	defer p.forget(id)

	w := p.pick(modelID)
	if err := w.Send(Request{ID: id, Text: text, ModelID: modelID}); err != nil {
		return nil, err
	}

	for {
		select {
		case msg, ok := <-replies:
			if !ok {
				return nil, ErrPoolClosed
			}
			switch msg.Status {
			case StatusComplete:
				return msg.Stream(), nil
			case StatusError:
				return nil, msg.Err()
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Busy returns the number of workers currently running a job.
func (p *Pool) Busy() int {
	busy := 0
	for _, w := range p.workers {
		if w.State() == StateBusy {
			busy++
		}
	}
	return busy
}

// CollectMetrics implements metrics.MetricsProvider.
func (p *Pool) CollectMetrics(ctx context.Context) error {
	metrics.UpdateWorkerMetrics(len(p.workers), p.Busy())
	for i, w := range p.workers {
		if w.State() == StateTerminated {
			return fmt.Errorf("worker %d terminated", i)
		}
	}
	return nil
}

// Close stops every worker. Waiting callers receive ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	for _, w := range p.workers {
		_ = w.Close()
	}
	p.wg.Wait()

	p.mu.Lock()
	for id, ch := range p.pending {
		close(ch)
		delete(p.pending, id)
	}
	p.mu.Unlock()

	metrics.UpdateWorkerMetrics(0, 0)
	return nil
}

// pick prefers an idle worker already holding modelID, then any idle worker,
// then round robin.
func (p *Pool) pick(modelID string) *Worker {
	var idle *Worker
	for _, w := range p.workers {
		if w.State() != StateReady {
			continue
		}
		if w.CurrentModel() == modelID {
			return w
		}
		if idle == nil {
			idle = w
		}
	}
	if idle != nil {
		return idle
	}
	n := p.next.Add(1)
	return p.workers[int(n%uint64(len(p.workers)))]
}

func (p *Pool) route(w *Worker) {
	defer p.wg.Done()
	for msg := range w.Messages() {
		if msg.Status == StatusReady {
			continue
		}
		p.mu.Lock()
		ch, ok := p.pending[msg.ID]
		p.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case ch <- msg:
		default:
			// Progress is dropped when the caller is behind. A final reply
			// evicts the oldest queued message; route is the only sender.
			if msg.Status == StatusComplete || msg.Status == StatusError {
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- msg:
				default:
				}
			}
		}
	}
}

func (p *Pool) forget(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}
