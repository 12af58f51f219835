package tokenizer

import (
	"context"

	"github.com/leefowlercu/tokenscope/internal/catalog"
)

// ProgressFunc receives download progress as a percentage in [0, 100].
type ProgressFunc func(percent float64)

// Encoder is a loaded vocabulary. Implementations may panic on malformed
// input; Handle converts panics into EncodingError.
type Encoder interface {
	// Encode returns the token ids for text.
	Encode(text string) []int

	// DecodeToken returns the raw bytes of a single token id.
	DecodeToken(id int) []byte

	// Close releases resources held by the encoder.
	Close()
}

// Backend creates encoders for catalog models.
type Backend interface {
	// Open loads the vocabulary for model. Remote vocabularies report
	// progress through onProgress, which may be nil.
	Open(ctx context.Context, model catalog.Model, onProgress ProgressFunc) (Encoder, error)
}
