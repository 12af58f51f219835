// Package catalog holds the static table of selectable models and the
// vocabulary each one resolves to.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnsupportedModel is returned when a model id is not in the catalog.
var ErrUnsupportedModel = errors.New("unsupported model")

// Kind identifies how a model's vocabulary is obtained.
type Kind string

const (
	// KindBuiltin vocabularies ship with the tokenizer library.
	KindBuiltin Kind = "builtin"

	// KindRemote vocabularies are downloaded before first use.
	KindRemote Kind = "remote"
)

// Built-in encoding names.
const (
	EncodingO200K    = "o200k_base"
	EncodingCL100K   = "cl100k_base"
	EncodingP50K     = "p50k_base"
	EncodingP50KEdit = "p50k_edit"
	EncodingR50K     = "r50k_base"
)

// Model describes one selectable model.
type Model struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Kind        Kind   `json:"kind" yaml:"kind"`

	// Encoding is the vocabulary name reported back to callers.
	Encoding string `json:"encoding" yaml:"encoding"`

	// VocabURL, Pattern and SpecialTokens are only used by remote models.
	VocabURL      string         `json:"vocab_url,omitempty" yaml:"vocab_url,omitempty"`
	Pattern       string         `json:"-" yaml:"-"`
	SpecialTokens map[string]int `json:"-" yaml:"-"`
}

// UnsupportedModelError carries the id that failed lookup.
type UnsupportedModelError struct {
	ModelID string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q", e.ModelID)
}

// Unwrap allows errors.Is(err, ErrUnsupportedModel).
func (e *UnsupportedModelError) Unwrap() error {
	return ErrUnsupportedModel
}

// llama3Pattern is the pre-tokenization split used by the Llama 3 vocabulary.
const llama3Pattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

// llama3BaseVocab is the number of mergeable ranks before special tokens start.
const llama3BaseVocab = 128000

func llama3Specials() map[string]int {
	specials := map[string]int{
		"<|begin_of_text|>":   llama3BaseVocab,
		"<|end_of_text|>":     llama3BaseVocab + 1,
		"<|start_header_id|>": llama3BaseVocab + 6,
		"<|end_header_id|>":   llama3BaseVocab + 7,
		"<|eot_id|>":          llama3BaseVocab + 9,
	}
	return specials
}

var defaultModels = []Model{
	{ID: "gpt-4o", DisplayName: "GPT-4o", Kind: KindBuiltin, Encoding: EncodingO200K},
	{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", Kind: KindBuiltin, Encoding: EncodingO200K},
	{ID: "gpt-4.1", DisplayName: "GPT-4.1", Kind: KindBuiltin, Encoding: EncodingO200K},
	{ID: "o1", DisplayName: "o1", Kind: KindBuiltin, Encoding: EncodingO200K},
	{ID: "o3-mini", DisplayName: "o3-mini", Kind: KindBuiltin, Encoding: EncodingO200K},
	{ID: "gpt-4", DisplayName: "GPT-4", Kind: KindBuiltin, Encoding: EncodingCL100K},
	{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", Kind: KindBuiltin, Encoding: EncodingCL100K},
	{ID: "text-embedding-3-small", DisplayName: "text-embedding-3-small", Kind: KindBuiltin, Encoding: EncodingCL100K},
	{ID: "text-embedding-3-large", DisplayName: "text-embedding-3-large", Kind: KindBuiltin, Encoding: EncodingCL100K},
	{ID: "text-embedding-ada-002", DisplayName: "text-embedding-ada-002", Kind: KindBuiltin, Encoding: EncodingCL100K},
	{ID: "text-davinci-003", DisplayName: "text-davinci-003", Kind: KindBuiltin, Encoding: EncodingP50K},
	{ID: "code-davinci-002", DisplayName: "code-davinci-002", Kind: KindBuiltin, Encoding: EncodingP50K},
	{ID: "text-davinci-edit-001", DisplayName: "text-davinci-edit-001", Kind: KindBuiltin, Encoding: EncodingP50KEdit},
	{ID: "davinci", DisplayName: "davinci (GPT-3)", Kind: KindBuiltin, Encoding: EncodingR50K},
	{ID: "gpt2", DisplayName: "GPT-2", Kind: KindBuiltin, Encoding: EncodingR50K},
	{
		ID:          "llama-3",
		DisplayName: "Llama 3",
		Kind:        KindRemote,
		Encoding:    "llama3",
		VocabURL:    "https://huggingface.co/meta-llama/Meta-Llama-3-8B/resolve/main/original/tokenizer.model",
		Pattern:     llama3Pattern,
	},
	{
		ID:          "llama-3.1",
		DisplayName: "Llama 3.1",
		Kind:        KindRemote,
		Encoding:    "llama3",
		VocabURL:    "https://huggingface.co/meta-llama/Llama-3.1-8B/resolve/main/original/tokenizer.model",
		Pattern:     llama3Pattern,
	},
}

// Catalog is a read-only model table. Only vocabulary URLs may be overridden,
// and only before the catalog is shared.
type Catalog struct {
	mu     sync.RWMutex
	models []Model
	byID   map[string]int
}

// New returns a catalog holding the default model table.
func New() *Catalog {
	return NewWithModels(defaultModels)
}

// NewWithModels returns a catalog holding the given models in order.
func NewWithModels(models []Model) *Catalog {
	c := &Catalog{
		models: make([]Model, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for i, m := range models {
		if m.Kind == KindRemote && m.SpecialTokens == nil && m.Pattern == llama3Pattern {
			m.SpecialTokens = llama3Specials()
		}
		c.models[i] = m
		c.byID[m.ID] = i
	}
	return c
}

// Lookup returns the model with the given id.
func (c *Catalog) Lookup(id string) (Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return Model{}, &UnsupportedModelError{ModelID: id}
	}
	return c.models[i], nil
}

// List returns all models in display order.
func (c *Catalog) List() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// IDs returns the sorted model ids.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.models))
	for _, m := range c.models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

// WithVocabURL overrides the download URL of a remote model.
func (c *Catalog) WithVocabURL(id, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.byID[id]
	if !ok {
		return &UnsupportedModelError{ModelID: id}
	}
	if c.models[i].Kind != KindRemote {
		return fmt.Errorf("model %q does not use a downloadable vocabulary", id)
	}
	c.models[i].VocabURL = url
	return nil
}
