package formatters

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders the document as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) Name() string          { return "yaml" }
func (f *YAMLFormatter) ContentType() string   { return "application/yaml" }
func (f *YAMLFormatter) FileExtension() string { return ".yaml" }

// Format renders the document as YAML.
func (f *YAMLFormatter) Format(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(flatten(doc)); err != nil {
		return nil, fmt.Errorf("failed to encode YAML; %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML; %w", err)
	}
	return buf.Bytes(), nil
}
