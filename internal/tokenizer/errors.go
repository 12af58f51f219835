package tokenizer

import (
	"errors"
	"fmt"

	"github.com/leefowlercu/tokenscope/internal/catalog"
)

var (
	// ErrUnsupportedModel is returned when the requested model is not in the catalog.
	ErrUnsupportedModel = catalog.ErrUnsupportedModel

	// ErrDisposed is returned when a handle is used or disposed after disposal.
	ErrDisposed = errors.New("tokenizer handle already disposed")

	// ErrModelLoad is matched by every ModelLoadError.
	ErrModelLoad = errors.New("model load failed")

	// ErrEncoding is matched by every EncodingError.
	ErrEncoding = errors.New("encoding failed")
)

// ModelLoadError reports a vocabulary that could not be fetched or parsed.
type ModelLoadError struct {
	ModelID string
	Err     error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %q; %v", e.ModelID, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *ModelLoadError) Unwrap() []error {
	return []error{ErrModelLoad, e.Err}
}

// EncodingError reports a failure raised by the underlying library during
// encode or decode.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s failed; %v", e.Op, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *EncodingError) Unwrap() []error {
	return []error{ErrEncoding, e.Err}
}
