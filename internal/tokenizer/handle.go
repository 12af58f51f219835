package tokenizer

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/metrics"
)

// Handle is an owned, loaded vocabulary for one model.
// A Handle is not safe for concurrent use; exactly one worker owns it.
type Handle struct {
	model    catalog.Model
	enc      Encoder
	cache    *lru.Cache
	disposed bool
	logger   *slog.Logger
}

func newHandle(model catalog.Model, enc Encoder, cacheSize int, logger *slog.Logger) *Handle {
	h := &Handle{
		model:  model,
		enc:    enc,
		logger: logger,
	}
	if cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		h.cache, _ = lru.New(cacheSize)
	}
	return h
}

// ModelID returns the catalog id the handle was resolved from.
func (h *Handle) ModelID() string {
	return h.model.ID
}

// EncodingName returns the vocabulary actually used.
func (h *Handle) EncodingName() string {
	return h.model.Encoding
}

// Disposed reports whether Dispose has been called.
func (h *Handle) Disposed() bool {
	return h.disposed
}

// Encode returns the token ids for text.
func (h *Handle) Encode(text string) (ids []int, err error) {
	if h.disposed {
		return nil, ErrDisposed
	}

	defer func() {
		if r := recover(); r != nil {
			ids = nil
			err = &EncodingError{Op: "encode", Err: fmt.Errorf("%v", r)}
		}
	}()

	return h.enc.Encode(text), nil
}

// DecodeSingle returns the raw bytes of one token id. The returned slice
// must not be modified.
func (h *Handle) DecodeSingle(id int) (b []byte, err error) {
	if h.disposed {
		return nil, ErrDisposed
	}

	if h.cache != nil {
		if v, ok := h.cache.Get(id); ok {
			metrics.RecordCacheAccess(true)
			return v.([]byte), nil
		}
		metrics.RecordCacheAccess(false)
	}

	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = &EncodingError{Op: "decode", Err: fmt.Errorf("token %d: %v", id, r)}
		}
	}()

	b = h.enc.DecodeToken(id)
	if h.cache != nil {
		h.cache.Add(id, b)
	}
	return b, nil
}

// Dispose releases the encoder. It must be called exactly once; later calls
// return ErrDisposed.
func (h *Handle) Dispose() error {
	if h.disposed {
		return ErrDisposed
	}
	h.disposed = true

	h.enc.Close()
	h.enc = nil
	if h.cache != nil {
		h.cache.Purge()
	}

	metrics.RecordHandleDisposed(h.model.Encoding)
	h.logger.Debug("tokenizer handle disposed", "model", h.model.ID, "encoding", h.model.Encoding)
	return nil
}
