package tokenizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/leefowlercu/tokenscope/internal/catalog"
)

// offlineLoaderOnce installs the embedded BPE loader process-wide.
var offlineLoaderOnce sync.Once

// TiktokenOptions configures the tiktoken backend.
type TiktokenOptions struct {
	// Offline uses the vocabularies embedded in tiktoken-go-loader instead of
	// downloading built-in encodings on first use.
	Offline bool

	// Vocab loads downloadable vocabularies. Required for remote models.
	Vocab *VocabLoader
}

// TiktokenBackend opens encoders backed by github.com/pkoukk/tiktoken-go.
type TiktokenBackend struct {
	offline bool
	vocab   *VocabLoader
}

// NewTiktokenBackend creates a tiktoken backend.
func NewTiktokenBackend(opts TiktokenOptions) *TiktokenBackend {
	return &TiktokenBackend{
		offline: opts.Offline,
		vocab:   opts.Vocab,
	}
}

// Open implements Backend.
func (b *TiktokenBackend) Open(ctx context.Context, model catalog.Model, onProgress ProgressFunc) (Encoder, error) {
	switch model.Kind {
	case catalog.KindBuiltin:
		return b.openBuiltin(model)
	case catalog.KindRemote:
		return b.openRemote(ctx, model, onProgress)
	default:
		return nil, fmt.Errorf("unknown vocabulary kind %q", model.Kind)
	}
}

func (b *TiktokenBackend) openBuiltin(model catalog.Model) (Encoder, error) {
	if b.offline {
		offlineLoaderOnce.Do(func() {
			tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		})
	}

	enc, err := tiktoken.GetEncoding(model.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %q; %w", model.Encoding, err)
	}
	return &tiktokenEncoder{enc: enc}, nil
}

func (b *TiktokenBackend) openRemote(ctx context.Context, model catalog.Model, onProgress ProgressFunc) (Encoder, error) {
	if b.vocab == nil {
		return nil, fmt.Errorf("no vocabulary loader configured for remote model %q", model.ID)
	}
	if model.VocabURL == "" {
		return nil, fmt.Errorf("remote model %q has no vocabulary url", model.ID)
	}

	ranks, err := b.vocab.Load(ctx, model.VocabURL, onProgress)
	if err != nil {
		return nil, err
	}

	specials := model.SpecialTokens
	if specials == nil {
		specials = map[string]int{}
	}

	bpe, err := tiktoken.NewCoreBPE(ranks, specials, model.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to build bpe for %q; %w", model.ID, err)
	}

	specialSet := make(map[string]any, len(specials))
	for k := range specials {
		specialSet[k] = true
	}

	enc := tiktoken.NewTiktoken(bpe, &tiktoken.Encoding{
		Name:           model.Encoding,
		PatStr:         model.Pattern,
		MergeableRanks: ranks,
		SpecialTokens:  specials,
	}, specialSet)

	return &tiktokenEncoder{enc: enc}, nil
}

// tiktokenEncoder adapts *tiktoken.Tiktoken to Encoder.
type tiktokenEncoder struct {
	enc *tiktoken.Tiktoken
}

// Encode treats special-token text as ordinary text so arbitrary input
// round-trips.
func (e *tiktokenEncoder) Encode(text string) []int {
	return e.enc.Encode(text, nil, nil)
}

func (e *tiktokenEncoder) DecodeToken(id int) []byte {
	return []byte(e.enc.Decode([]int{id}))
}

// Close drops the encoder reference. Built-in encodings are shared by
// tiktoken-go's own registry and are released there.
func (e *tiktokenEncoder) Close() {
	e.enc = nil
}
