// Package tokenizer wraps the external BPE library behind owned handles with
// explicit disposal.
package tokenizer

import (
	"context"
	"log/slog"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/metrics"
)

// DefaultDecodeCacheSize is the per-handle decoded token cache size.
const DefaultDecodeCacheSize = 4096

// Adapter resolves catalog models into handles.
type Adapter struct {
	catalog   *catalog.Catalog
	backend   Backend
	cacheSize int
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithDecodeCacheSize sets the per-handle decode cache size. Zero disables it.
func WithDecodeCacheSize(size int) Option {
	return func(a *Adapter) {
		if size >= 0 {
			a.cacheSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates an adapter over the given catalog and backend.
func NewAdapter(cat *catalog.Catalog, backend Backend, opts ...Option) *Adapter {
	a := &Adapter{
		catalog:   cat,
		backend:   backend,
		cacheSize: DefaultDecodeCacheSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Catalog returns the model catalog.
func (a *Adapter) Catalog() *catalog.Catalog {
	return a.catalog
}

// Resolve loads the vocabulary for modelID and returns a new handle owned by
// the caller. Unknown ids fail with ErrUnsupportedModel; vocabulary failures
// with *ModelLoadError.
func (a *Adapter) Resolve(ctx context.Context, modelID string, onProgress ProgressFunc) (*Handle, error) {
	model, err := a.catalog.Lookup(modelID)
	if err != nil {
		return nil, err
	}

	enc, err := a.backend.Open(ctx, model, onProgress)
	if err != nil {
		a.logger.Warn("model load failed", "model", modelID, "error", err)
		return nil, &ModelLoadError{ModelID: modelID, Err: err}
	}

	metrics.RecordHandleCreated(model.Encoding)
	a.logger.Debug("tokenizer handle created", "model", modelID, "encoding", model.Encoding, "kind", model.Kind)

	return newHandle(model, enc, a.cacheSize, a.logger), nil
}
