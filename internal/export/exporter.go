// Package export renders tokenization results through a registry of named
// formatters.
package export

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/leefowlercu/tokenscope/internal/export/formatters"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

// ErrUnknownFormat is returned for a format name with no formatter.
var ErrUnknownFormat = errors.New("unknown format")

// DefaultFormat is used when no format is requested.
const DefaultFormat = "text"

// ExportStats describes one export.
type ExportStats struct {
	Format      string        `json:"format"`
	ContentType string        `json:"content_type"`
	TokenCount  int           `json:"token_count"`
	OutputSize  int           `json:"output_size"`
	Duration    time.Duration `json:"duration"`
}

// ExportOptions configures an export.
type ExportOptions struct {
	// Format names a registered formatter.
	Format string

	// Model and Source are carried into the document header.
	Model  string
	Source string

	// MaxTokens truncates the exported stream (0 = unlimited). Counts in the
	// header still describe the full stream.
	MaxTokens int
}

// DefaultExportOptions returns the text format with no limit.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{Format: DefaultFormat}
}

// Exporter renders streams with registered formatters.
type Exporter struct {
	formatters map[string]formatters.Formatter
}

// NewExporter creates an exporter with every built-in format registered.
func NewExporter() *Exporter {
	e := &Exporter{formatters: make(map[string]formatters.Formatter)}

	e.RegisterFormatter(formatters.NewTextFormatter())
	e.RegisterFormatter(formatters.NewJSONFormatter())
	e.RegisterFormatter(formatters.NewYAMLFormatter())
	e.RegisterFormatter(formatters.NewTOMLFormatter())
	e.RegisterFormatter(formatters.NewXMLFormatter())
	e.RegisterFormatter(formatters.NewIDsFormatter())
	e.RegisterFormatter(formatters.NewRawFormatter())

	return e
}

// RegisterFormatter registers f under its name, replacing any previous one.
func (e *Exporter) RegisterFormatter(f formatters.Formatter) {
	e.formatters[f.Name()] = f
}

// Formatter looks up a formatter by name.
func (e *Exporter) Formatter(name string) (formatters.Formatter, error) {
	if name == "" {
		name = DefaultFormat
	}
	f, ok := e.formatters[name]
	if !ok {
		return nil, fmt.Errorf("%w %q; available: %v", ErrUnknownFormat, name, e.ListFormats())
	}
	return f, nil
}

// Export renders s with the requested format.
func (e *Exporter) Export(s *tokens.Stream, opts ExportOptions) ([]byte, *ExportStats, error) {
	start := time.Now()

	f, err := e.Formatter(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	doc := &formatters.Document{
		Model:  opts.Model,
		Source: opts.Source,
		Stream: truncate(s, opts.MaxTokens),
	}
	out, err := f.Format(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to format stream; %w", err)
	}

	stats := &ExportStats{
		Format:      f.Name(),
		ContentType: f.ContentType(),
		TokenCount:  doc.Stream.Len(),
		OutputSize:  len(out),
		Duration:    time.Since(start),
	}
	return out, stats, nil
}

// ListFormats returns the registered format names in sorted order.
func (e *Exporter) ListFormats() []string {
	names := make([]string, 0, len(e.formatters))
	for name := range e.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func truncate(s *tokens.Stream, max int) *tokens.Stream {
	if s == nil {
		return tokens.Empty("")
	}
	if max <= 0 || len(s.Tokens) <= max {
		return s
	}
	cut := *s
	cut.Tokens = s.Tokens[:max]
	return &cut
}
