// Package tokenizertest provides an in-memory tokenizer backend for tests.
package tokenizertest

import (
	"context"
	"errors"
	"sync"
	"unicode"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
)

// ErrLoad is returned by Open for models listed in FailModels.
var ErrLoad = errors.New("fake vocabulary unavailable")

// Backend splits text into letter runs, space-prefixed letter runs and single
// other runes, assigning ids in first-seen order. Each model gets its own
// vocabulary, so ids differ between models.
type Backend struct {
	mu sync.Mutex

	// FailModels lists model ids whose Open fails with ErrLoad.
	FailModels map[string]bool

	// PanicOn makes Encode panic when the input equals this string.
	PanicOn string

	// Progress is reported through onProgress for remote models.
	Progress []float64

	opens   map[string]int
	closes  map[string]int
	encoded map[string]int
	live    []*Encoder
}

// NewBackend returns an empty fake backend.
func NewBackend() *Backend {
	return &Backend{
		FailModels: map[string]bool{},
		opens:      map[string]int{},
		closes:     map[string]int{},
		encoded:    map[string]int{},
	}
}

// Open implements tokenizer.Backend.
func (b *Backend) Open(ctx context.Context, model catalog.Model, onProgress tokenizer.ProgressFunc) (tokenizer.Encoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailModels[model.ID] {
		return nil, ErrLoad
	}
	if model.Kind == catalog.KindRemote && onProgress != nil {
		for _, p := range b.Progress {
			onProgress(p)
		}
	}

	b.opens[model.ID]++
	enc := &Encoder{backend: b, model: model.ID, panicOn: b.PanicOn, byText: map[string]int{}}
	b.live = append(b.live, enc)
	return enc, nil
}

// Opens returns how many encoders were created for model.
func (b *Backend) Opens(model string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens[model]
}

// Closes returns how many encoders were closed for model.
func (b *Backend) Closes(model string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes[model]
}

// Encodes returns how many Encode calls reached model's encoders.
func (b *Backend) Encodes(model string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.encoded[model]
}

// Encoder is the fake encoder.
type Encoder struct {
	backend *Backend
	model   string
	panicOn string
	closed  bool

	byText map[string]int
	byID   []string
}

// Encode implements tokenizer.Encoder. It panics if called after Close.
func (e *Encoder) Encode(text string) []int {
	if e.closed {
		panic("encode on closed encoder")
	}
	if e.panicOn != "" && text == e.panicOn {
		panic("fake encoder rejected input")
	}

	e.backend.mu.Lock()
	e.backend.encoded[e.model]++
	e.backend.mu.Unlock()

	var ids []int
	for _, piece := range Split(text) {
		id, ok := e.byText[piece]
		if !ok {
			id = len(e.byID)
			e.byText[piece] = id
			e.byID = append(e.byID, piece)
		}
		ids = append(ids, id)
	}
	return ids
}

// DecodeToken implements tokenizer.Encoder.
func (e *Encoder) DecodeToken(id int) []byte {
	if e.closed {
		panic("decode on closed encoder")
	}
	if id < 0 || id >= len(e.byID) {
		return nil
	}
	return []byte(e.byID[id])
}

// Close implements tokenizer.Encoder.
func (e *Encoder) Close() {
	e.closed = true
	e.backend.mu.Lock()
	e.backend.closes[e.model]++
	e.backend.mu.Unlock()
}

// Split returns the pieces the fake encoder produces for text.
// "Hello, world!" splits into "Hello", ",", " world", "!".
func Split(text string) []string {
	var pieces []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		start := i
		if runes[i] == ' ' && i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
			i++
		}
		if unicode.IsLetter(runes[i]) {
			for i < len(runes) && unicode.IsLetter(runes[i]) {
				i++
			}
		} else {
			i++
		}
		pieces = append(pieces, string(runes[start:i]))
	}
	return pieces
}

// Catalog returns a small catalog with two builtin models and one remote model.
func Catalog() *catalog.Catalog {
	return catalog.NewWithModels([]catalog.Model{
		{ID: "alpha", DisplayName: "Alpha", Kind: catalog.KindBuiltin, Encoding: "alpha_base"},
		{ID: "beta", DisplayName: "Beta", Kind: catalog.KindBuiltin, Encoding: "beta_base"},
		{ID: "remote", DisplayName: "Remote", Kind: catalog.KindRemote, Encoding: "remote_base", VocabURL: "http://vocab.invalid/remote.tiktoken"},
	})
}
