package watcher

import (
	"sync"
	"time"
)

// Op is the kind of change seen for a path.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change is one coalesced filesystem change.
type Change struct {
	Path string
	Op   Op
	At   time.Time
}

// Coalescer merges bursts of changes per path and emits one Change once the
// path has been quiet for the debounce window. Removals wait for the longer
// grace period so an editor's remove-then-create save reads as one write.
type Coalescer struct {
	debounce time.Duration
	grace    time.Duration

	mu      sync.Mutex
	pending map[string]*pendingChange
	changes chan Change
	stopCh  chan struct{}
	stopped bool
	merged  int64
	sending sync.WaitGroup
}

type pendingChange struct {
	change Change
	timer  *time.Timer
}

// NewCoalescer creates a Coalescer.
func NewCoalescer(debounce, grace time.Duration) *Coalescer {
	return &Coalescer{
		debounce: debounce,
		grace:    grace,
		pending:  make(map[string]*pendingChange),
		changes:  make(chan Change, 64),
		stopCh:   make(chan struct{}),
	}
}

// Add records a change and restarts the path's timer.
func (c *Coalescer) Add(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	path := ch.Path
	if pc, ok := c.pending[path]; ok {
		// emit checks the pending map, so a timer that already fired is harmless.
		pc.timer.Stop()
		c.merged++

		// A file created and removed inside the window never existed for us.
		if pc.change.Op == OpCreate && ch.Op == OpRemove {
			delete(c.pending, path)
			return
		}
		pc.change = merge(pc.change, ch)
		pc.timer = time.AfterFunc(c.delay(pc.change.Op), func() { c.emit(path) })
		return
	}

	pc := &pendingChange{change: ch}
	pc.timer = time.AfterFunc(c.delay(ch.Op), func() { c.emit(path) })
	c.pending[path] = pc
}

// Changes delivers coalesced changes. It is closed by Stop.
func (c *Coalescer) Changes() <-chan Change {
	return c.changes
}

// Merged returns how many changes were folded into an earlier pending one.
func (c *Coalescer) Merged() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.merged
}

// Pending returns the number of paths waiting for their quiet period.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop drops pending changes and closes Changes.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	for path, pc := range c.pending {
		pc.timer.Stop()
		delete(c.pending, path)
	}
	c.mu.Unlock()

	close(c.stopCh)
	c.sending.Wait()
	close(c.changes)
}

func (c *Coalescer) emit(path string) {
	c.mu.Lock()
	pc, ok := c.pending[path]
	if !ok || c.stopped {
		c.mu.Unlock()
		return
	}
	delete(c.pending, path)
	c.sending.Add(1)
	c.mu.Unlock()
	defer c.sending.Done()

	select {
	case c.changes <- pc.change:
	case <-c.stopCh:
	}
}

func (c *Coalescer) delay(op Op) time.Duration {
	if op == OpRemove {
		return c.grace
	}
	return c.debounce
}

func merge(old, next Change) Change {
	switch {
	case old.Op == OpCreate && next.Op == OpWrite:
		return Change{Path: next.Path, Op: OpCreate, At: next.At}
	case old.Op == OpRemove && next.Op == OpCreate:
		// Replaced by an atomic save.
		return Change{Path: next.Path, Op: OpWrite, At: next.At}
	default:
		return next
	}
}
