package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// swapRoot is the shared slot every derived handler resolves through.
type swapRoot struct {
	handler atomic.Pointer[slog.Handler]
	gen     atomic.Uint64
}

type resolved struct {
	gen     uint64
	handler slog.Handler
}

// SwappableHandler wraps a slog.Handler that can be atomically replaced at
// runtime. Handlers derived with WithAttrs or WithGroup follow later swaps, so
// component loggers created during bootstrap keep working after Upgrade.
type SwappableHandler struct {
	root  *swapRoot
	ops   []func(slog.Handler) slog.Handler
	cache atomic.Pointer[resolved]
}

// NewSwappableHandler creates a handler with an initial handler.
func NewSwappableHandler(initial slog.Handler) *SwappableHandler {
	root := &swapRoot{}
	root.handler.Store(&initial)
	return &SwappableHandler{root: root}
}

// Swap atomically replaces the underlying handler for this handler and every
// handler derived from it.
func (sh *SwappableHandler) Swap(newHandler slog.Handler) {
	sh.root.handler.Store(&newHandler)
	sh.root.gen.Add(1)
}

// current returns the underlying handler with this handler's attrs and groups
// applied.
func (sh *SwappableHandler) current() slog.Handler {
	gen := sh.root.gen.Load()
	if r := sh.cache.Load(); r != nil && r.gen == gen {
		return r.handler
	}

	h := *sh.root.handler.Load()
	for _, op := range sh.ops {
		h = op(h)
	}
	sh.cache.Store(&resolved{gen: gen, handler: h})
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (sh *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return sh.current().Enabled(ctx, level)
}

// Handle handles the Record.
func (sh *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	return sh.current().Handle(ctx, r)
}

// WithAttrs returns a handler that adds attrs to every record.
func (sh *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return sh.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup returns a handler that nests later attrs under name.
func (sh *SwappableHandler) WithGroup(name string) slog.Handler {
	return sh.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (sh *SwappableHandler) derive(op func(slog.Handler) slog.Handler) *SwappableHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(sh.ops), len(sh.ops)+1)
	copy(ops, sh.ops)
	return &SwappableHandler{root: sh.root, ops: append(ops, op)}
}
