// Package formatters renders a tokenization result in the output formats
// offered by the tokenize command and the HTTP API.
package formatters

import (
	"strings"
	"unicode/utf8"

	"github.com/leefowlercu/tokenscope/internal/tokens"
)

// Document is one tokenization result plus where it came from.
type Document struct {
	Model  string
	Source string
	Stream *tokens.Stream
}

// Formatter renders a document in one output format.
type Formatter interface {
	// Format renders the document.
	Format(doc *Document) ([]byte, error)

	// Name returns the format name used on the command line.
	Name() string

	// ContentType returns the MIME content type.
	ContentType() string

	// FileExtension returns the typical file extension.
	FileExtension() string
}

// flatToken is the per-token row used by formats that cannot carry raw
// bytes in strings.
type flatToken struct {
	Index int    `yaml:"index" toml:"index" xml:"index,attr"`
	ID    int    `yaml:"id" toml:"id" xml:"id,attr"`
	Text  string `yaml:"text" toml:"text" xml:",chardata"`
	Hex   string `yaml:"hex" toml:"hex" xml:"hex,attr"`
}

type flatDocument struct {
	Model        string      `yaml:"model,omitempty" toml:"model,omitempty"`
	Source       string      `yaml:"source,omitempty" toml:"source,omitempty"`
	EncodingName string      `yaml:"encoding" toml:"encoding"`
	TokenCount   int         `yaml:"token_count" toml:"token_count"`
	CharCount    int         `yaml:"char_count" toml:"char_count"`
	Tokens       []flatToken `yaml:"tokens" toml:"tokens"`
}

func flatten(doc *Document) flatDocument {
	s := stream(doc)
	fd := flatDocument{
		Model:        doc.Model,
		Source:       doc.Source,
		EncodingName: s.EncodingName,
		TokenCount:   s.TokenCount,
		CharCount:    s.CharCount,
		Tokens:       make([]flatToken, 0, len(s.Tokens)),
	}
	for _, t := range s.Tokens {
		fd.Tokens = append(fd.Tokens, flatToken{
			Index: t.Index,
			ID:    t.ID,
			Text:  validText(t.Text),
			Hex:   t.HexBytes(),
		})
	}
	return fd
}

func stream(doc *Document) *tokens.Stream {
	if doc == nil || doc.Stream == nil {
		return tokens.Empty("")
	}
	return doc.Stream
}

// validText replaces bytes that are not UTF-8 with U+FFFD; Hex keeps the
// exact bytes.
func validText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
