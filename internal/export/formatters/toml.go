package formatters

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// TOMLFormatter renders the document as TOML with one [[tokens]] table per
// token.
type TOMLFormatter struct{}

// NewTOMLFormatter creates a TOML formatter.
func NewTOMLFormatter() *TOMLFormatter {
	return &TOMLFormatter{}
}

func (f *TOMLFormatter) Name() string          { return "toml" }
func (f *TOMLFormatter) ContentType() string   { return "application/toml" }
func (f *TOMLFormatter) FileExtension() string { return ".toml" }

// Format renders the document as TOML.
func (f *TOMLFormatter) Format(doc *Document) ([]byte, error) {
	data, err := toml.Marshal(flatten(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to encode TOML; %w", err)
	}
	return data, nil
}
