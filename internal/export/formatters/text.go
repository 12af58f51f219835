package formatters

import (
	"bytes"
	"fmt"
	"strings"
)

// TextFormatter renders a compact, line-oriented listing:
//
//	@tokens model=gpt-4o encoding=o200k_base tokens=4 chars=13
//	index|id|text
//	0|13225|Hello
//	1|11|,
type TextFormatter struct{}

// NewTextFormatter creates a text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

func (f *TextFormatter) Name() string          { return "text" }
func (f *TextFormatter) ContentType() string   { return "text/plain; charset=utf-8" }
func (f *TextFormatter) FileExtension() string { return ".txt" }

// Format renders the document as text.
func (f *TextFormatter) Format(doc *Document) ([]byte, error) {
	s := stream(doc)
	var buf bytes.Buffer

	buf.WriteString("@tokens")
	if doc != nil && doc.Model != "" {
		fmt.Fprintf(&buf, " model=%s", doc.Model)
	}
	if doc != nil && doc.Source != "" {
		fmt.Fprintf(&buf, " source=%s", doc.Source)
	}
	fmt.Fprintf(&buf, " encoding=%s tokens=%d chars=%d\n", s.EncodingName, s.TokenCount, s.CharCount)

	if len(s.Tokens) == 0 {
		return buf.Bytes(), nil
	}
	buf.WriteString("index|id|text\n")
	for _, t := range s.Tokens {
		fmt.Fprintf(&buf, "%d|%d|%s\n", t.Index, t.ID, escapeText(t.Display()))
	}
	return buf.Bytes(), nil
}

// escapeText escapes the column delimiter.
func escapeText(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
