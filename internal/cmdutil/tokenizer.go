package cmdutil

import (
	"fmt"
	"log/slog"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/config"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
)

// NewCatalog returns the default catalog with configured vocabulary URL
// overrides applied.
func NewCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat := catalog.New()
	for id, url := range cfg.Tokenizer.VocabURLs {
		if err := cat.WithVocabURL(id, url); err != nil {
			return nil, fmt.Errorf("failed to apply vocab url for %s; %w", id, err)
		}
	}
	return cat, nil
}

// NewAdapter builds the tiktoken-backed adapter described by cfg.
func NewAdapter(cfg *config.Config, logger *slog.Logger) (*tokenizer.Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := NewCatalog(cfg)
	if err != nil {
		return nil, err
	}

	vocab, err := NewVocabLoader(cfg, logger)
	if err != nil {
		return nil, err
	}

	backend := tokenizer.NewTiktokenBackend(tokenizer.TiktokenOptions{
		Offline: cfg.Tokenizer.Offline,
		Vocab:   vocab,
	})

	return tokenizer.NewAdapter(cat, backend,
		tokenizer.WithDecodeCacheSize(cfg.Tokenizer.DecodeCacheSize),
		tokenizer.WithLogger(logger.With("component", "tokenizer")),
	), nil
}

// NewVocabLoader returns the loader for downloadable vocabularies, caching
// into the configured vocab dir.
func NewVocabLoader(cfg *config.Config, logger *slog.Logger) (*tokenizer.VocabLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := ResolvePath(cfg.Tokenizer.VocabDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vocab dir; %w", err)
	}

	opts := []tokenizer.VocabOption{tokenizer.WithVocabLogger(logger.With("component", "vocab"))}
	if cfg.Tokenizer.AuthToken != "" {
		opts = append(opts, tokenizer.WithAuthToken(cfg.Tokenizer.AuthToken))
	}
	return tokenizer.NewVocabLoader(dir, opts...), nil
}
