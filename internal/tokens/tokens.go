// Package tokens defines the token stream produced by one tokenization run.
package tokens

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/leefowlercu/tokenscope/internal/palette"
)

// Token is one vocabulary entry in encoding order. Text holds the raw decoded
// bytes, which may be an incomplete UTF-8 sequence when a character spans
// several tokens.
type Token struct {
	ID          int    `json:"id" yaml:"id" toml:"id"`
	Text        string `json:"text" yaml:"text" toml:"text"`
	Index       int    `json:"sequenceIndex" yaml:"sequence_index" toml:"sequence_index"`
	Color       string `json:"displayColor" yaml:"display_color" toml:"display_color"`
	BorderColor string `json:"borderColor" yaml:"border_color" toml:"border_color"`
}

// NewToken builds a token with colors derived from its index.
func NewToken(id int, raw []byte, index int) Token {
	p := palette.For(index)
	return Token{
		ID:          id,
		Text:        string(raw),
		Index:       index,
		Color:       p.Background,
		BorderColor: p.Border,
	}
}

// tokenWire carries Bytes only when Text is not valid UTF-8, since JSON
// strings cannot hold arbitrary bytes.
type tokenWire struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	Bytes       []byte `json:"bytes,omitempty"`
	Index       int    `json:"sequenceIndex"`
	Color       string `json:"displayColor"`
	BorderColor string `json:"borderColor"`
}

// MarshalJSON implements json.Marshaler.
func (t Token) MarshalJSON() ([]byte, error) {
	w := tokenWire{
		ID:          t.ID,
		Text:        t.Text,
		Index:       t.Index,
		Color:       t.Color,
		BorderColor: t.BorderColor,
	}
	if !utf8.ValidString(t.Text) {
		w.Bytes = []byte(t.Text)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Token) UnmarshalJSON(data []byte) error {
	var w tokenWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Token{
		ID:          w.ID,
		Text:        w.Text,
		Index:       w.Index,
		Color:       w.Color,
		BorderColor: w.BorderColor,
	}
	if w.Bytes != nil {
		t.Text = string(w.Bytes)
	}
	return nil
}

// Bytes returns the raw token bytes.
func (t Token) Bytes() []byte {
	return []byte(t.Text)
}

// HexBytes formats the raw bytes as space separated hex pairs.
func (t Token) HexBytes() string {
	parts := make([]string, 0, len(t.Text))
	for i := 0; i < len(t.Text); i++ {
		parts = append(parts, fmt.Sprintf("%02X", t.Text[i]))
	}
	return strings.Join(parts, " ")
}

// CodePoints returns U+XXXX notation for every code point in the token.
// Bytes that are not valid UTF-8 are reported as U+FFFD.
func (t Token) CodePoints() []string {
	points := make([]string, 0, utf8.RuneCountInString(t.Text))
	for _, r := range t.Text {
		points = append(points, fmt.Sprintf("U+%04X", r))
	}
	return points
}

// Display returns the token text with whitespace and invalid bytes made
// visible for a single-line chip.
func (t Token) Display() string {
	if t.Text == "" {
		return "∅"
	}

	var b strings.Builder
	for i := 0; i < len(t.Text); {
		r, size := utf8.DecodeRuneInString(t.Text[i:])
		if r == utf8.RuneError && size <= 1 {
			fmt.Fprintf(&b, "\\x%02X", t.Text[i])
			i++
			continue
		}
		switch r {
		case ' ':
			b.WriteString("·")
		case '\n':
			b.WriteString("↵")
		case '\r':
			b.WriteString("␍")
		case '\t':
			b.WriteString("→")
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

// Stream is the ordered result of one tokenization run.
type Stream struct {
	Tokens       []Token `json:"tokens" yaml:"tokens" toml:"tokens"`
	TokenCount   int     `json:"tokenCount" yaml:"token_count" toml:"token_count"`
	CharCount    int     `json:"charCount" yaml:"char_count" toml:"char_count"`
	EncodingName string  `json:"encodingName" yaml:"encoding_name" toml:"encoding_name"`
}

// Empty returns a stream with no tokens.
func Empty(encodingName string) *Stream {
	return &Stream{
		Tokens:       []Token{},
		EncodingName: encodingName,
	}
}

// CharCount counts the characters of input text as code points.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// Len returns the number of tokens.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Tokens)
}

// At returns the token at index.
func (s *Stream) At(index int) (Token, bool) {
	if s == nil || index < 0 || index >= len(s.Tokens) {
		return Token{}, false
	}
	return s.Tokens[index], true
}

// Text concatenates the token text in sequence order.
func (s *Stream) Text() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, t := range s.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// IDList returns the token ids joined with commas.
func (s *Stream) IDList() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		parts[i] = strconv.Itoa(t.ID)
	}
	return strings.Join(parts, ",")
}

// IDs returns the token ids.
func (s *Stream) IDs() []int {
	if s == nil {
		return nil
	}
	ids := make([]int, len(s.Tokens))
	for i, t := range s.Tokens {
		ids[i] = t.ID
	}
	return ids
}

// Validate checks the stream invariants: counts match and indices are
// contiguous from zero.
func (s *Stream) Validate() error {
	if s.TokenCount != len(s.Tokens) {
		return fmt.Errorf("token count %d does not match %d tokens", s.TokenCount, len(s.Tokens))
	}
	for i, t := range s.Tokens {
		if t.Index != i {
			return fmt.Errorf("token %d has sequence index %d", i, t.Index)
		}
	}
	return nil
}
