package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/leefowlercu/tokenscope/internal/tokenizer"
)

// ServeStdio runs a worker that reads JSON-lines requests from r and writes
// JSON-lines messages to w. It returns when ctx ends, or when r reaches EOF
// and every request read so far has been answered.
func ServeStdio(ctx context.Context, r io.Reader, w io.Writer, adapter *tokenizer.Adapter, opts ...Option) error {
	wk := Start(ctx, adapter, opts...)

	writeErr := make(chan error, 1)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		enc := json.NewEncoder(w)
		for msg := range wk.Messages() {
			if err := enc.Encode(msg); err != nil {
				writeErr <- fmt.Errorf("failed to write message; %w", err)
				for range wk.Messages() {
				}
				return
			}
		}
		writeErr <- nil
	}()

	readErr := make(chan error, 1)
	go func() {
		dec := json.NewDecoder(bufio.NewReader(r))
		for {
			var req Request
			if err := dec.Decode(&req); err != nil {
				if errors.Is(err, io.EOF) {
					readErr <- nil
				} else {
					readErr <- fmt.Errorf("failed to read request; %w", err)
				}
				return
			}
			if err := wk.Send(req); err != nil {
				readErr <- nil
				return
			}
		}
	}()

	var err error
	select {
	case err = <-readErr:
		if err == nil {
			// Input ended: answer what is already queued before stopping.
			_ = wk.Drain(ctx)
		}
	case err = <-writeErr:
	case <-ctx.Done():
	}

	_ = wk.Close()
	<-writerDone
	return err
}

// ProcessConn is a worker running in a child process.
type ProcessConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger

	mu       sync.Mutex
	enc      *json.Encoder
	messages chan Message
	quit     chan struct{}
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts path with args as a stdio worker. Output on the child's
// stderr is forwarded to logger.
func Spawn(ctx context.Context, logger *slog.Logger, path string, args ...string) (*ProcessConn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin; %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout; %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stderr; %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, &WorkerStartupError{Err: err}
	}

	c := &ProcessConn{
		cmd:      cmd,
		stdin:    stdin,
		logger:   logger,
		enc:      json.NewEncoder(stdin),
		messages: make(chan Message, DefaultQueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go c.forwardStderr(stderr)
	go c.readMessages(stdout)

	logger.Debug("worker process started", "pid", cmd.Process.Pid)
	return c, nil
}

// Send implements Conn.
func (c *ProcessConn) Send(req Request) error {
	select {
	case <-c.done:
		return ErrTerminated
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(req); err != nil {
		return fmt.Errorf("failed to send request; %w", err)
	}
	return nil
}

// Messages implements Conn.
func (c *ProcessConn) Messages() <-chan Message {
	return c.messages
}

// Close implements Conn. Closing stdin lets the child exit on EOF.
func (c *ProcessConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		_ = c.stdin.Close()
		<-c.done
		if err := c.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				c.closeErr = fmt.Errorf("failed to wait for worker process; %w", err)
			}
		}
	})
	return c.closeErr
}

func (c *ProcessConn) readMessages(stdout io.Reader) {
	defer close(c.done)
	defer close(c.messages)

	sawReady := false
	dec := json.NewDecoder(bufio.NewReader(stdout))
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("failed to decode worker message", "error", err)
			}
			if !sawReady {
				startErr := &WorkerStartupError{Err: fmt.Errorf("worker process exited before ready")}
				c.deliver(errorMessage(0, startErr))
			}
			return
		}
		if msg.Status == StatusReady {
			sawReady = true
		}
		if msg.Status == StatusError && msg.Code == CodeWorkerStartup {
			sawReady = true
		}
		c.deliver(msg)
	}
}

// deliver drops messages once Close has been called so the reader can drain
// the pipe to EOF.
func (c *ProcessConn) deliver(msg Message) {
	select {
	case c.messages <- msg:
	case <-c.quit:
	}
}

func (c *ProcessConn) forwardStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.logger.Debug("worker process output", "line", scanner.Text())
	}
}
