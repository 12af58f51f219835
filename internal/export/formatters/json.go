package formatters

import (
	"encoding/json"
	"fmt"

	"github.com/leefowlercu/tokenscope/internal/tokens"
)

// JSONFormatter renders the stream in the worker wire shape, so the output
// round-trips through tokens.Stream.
type JSONFormatter struct {
	pretty bool
}

// NewJSONFormatter creates an indented JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{pretty: true}
}

// NewCompactJSONFormatter creates a JSON formatter without indentation.
func NewCompactJSONFormatter() *JSONFormatter {
	return &JSONFormatter{pretty: false}
}

func (f *JSONFormatter) Name() string          { return "json" }
func (f *JSONFormatter) ContentType() string   { return "application/json" }
func (f *JSONFormatter) FileExtension() string { return ".json" }

type jsonDocument struct {
	Model  string `json:"model,omitempty"`
	Source string `json:"source,omitempty"`
	*tokens.Stream
}

// Format renders the document as JSON.
func (f *JSONFormatter) Format(doc *Document) ([]byte, error) {
	jd := jsonDocument{Stream: stream(doc)}
	if doc != nil {
		jd.Model = doc.Model
		jd.Source = doc.Source
	}

	var data []byte
	var err error
	if f.pretty {
		data, err = json.MarshalIndent(jd, "", "  ")
	} else {
		data, err = json.Marshal(jd)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON; %w", err)
	}
	return append(data, '\n'), nil
}
