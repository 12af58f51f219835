package tokens_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokenizer/tokenizertest"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

func cl100k(t *testing.T) *tokenizer.Handle {
	t.Helper()
	a := tokenizer.NewAdapter(catalog.New(), tokenizer.NewTiktokenBackend(tokenizer.TiktokenOptions{Offline: true}))
	h, err := a.Resolve(context.Background(), "gpt-4", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Dispose() })
	return h
}

func TestBuild_RoundTrip(t *testing.T) {
	h := cl100k(t)

	inputs := []string{
		"Hello, world!",
		"  leading and trailing  \n",
		"naïve café — 東京 🚀🚀",
		"tabs\tand\r\nnewlines\n\n",
		strings.Repeat("token ", 500),
	}

	for _, in := range inputs {
		s, err := tokens.Build(h, in)
		require.NoError(t, err)
		require.NoError(t, s.Validate())

		assert.Equal(t, in, s.Text(), "concatenated tokens must reproduce input")
		assert.Equal(t, len(s.Tokens), s.TokenCount)
		assert.Equal(t, tokens.CharCount(in), s.CharCount)
		assert.Equal(t, catalog.EncodingCL100K, s.EncodingName)
	}
}

func TestBuild_HelloWorldScenario(t *testing.T) {
	s, err := tokens.Build(cl100k(t), "Hello, world!")
	require.NoError(t, err)

	assert.Equal(t, 4, s.TokenCount)
	assert.Equal(t, 13, s.CharCount)

	second, ok := s.At(1)
	require.True(t, ok)
	assert.Equal(t, 11, second.ID)
	assert.Equal(t, ",", second.Text)
	assert.Equal(t, []string{"U+002C"}, second.CodePoints())
	assert.Equal(t, "9906,11,1917,0", s.IDList())
}

func TestBuild_Empty(t *testing.T) {
	s, err := tokens.Build(cl100k(t), "")
	require.NoError(t, err)
	assert.Equal(t, 0, s.TokenCount)
	assert.Empty(t, s.Tokens)
	_, ok := s.At(0)
	assert.False(t, ok)
}

func TestBuild_PropagatesEncodeError(t *testing.T) {
	b := tokenizertest.NewBackend()
	b.PanicOn = "bad"
	a := tokenizer.NewAdapter(tokenizertest.Catalog(), b)
	h, err := a.Resolve(context.Background(), "alpha", nil)
	require.NoError(t, err)
	defer h.Dispose()

	_, err = tokens.Build(h, "bad")
	assert.True(t, errors.Is(err, tokenizer.ErrEncoding))
}

func TestToken_Display(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" world", "·world"},
		{"\n", "↵"},
		{"\t", "→"},
		{"", "∅"},
		{"\xe6", "\\xE6"},
		{"東", "東"},
	}
	for _, tt := range tests {
		got := tokens.NewToken(0, []byte(tt.in), 0).Display()
		if got != tt.want {
			t.Errorf("Display(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToken_Colors(t *testing.T) {
	a := tokens.NewToken(1, []byte("a"), 0)
	b := tokens.NewToken(1, []byte("a"), 1)
	assert.NotEqual(t, a.Color, b.Color)
	assert.Equal(t, a.Color, tokens.NewToken(99, []byte("z"), 0).Color, "color depends only on index")
	assert.Equal(t, "61", tokens.NewToken(0, []byte("a"), 0).HexBytes())
}

func TestStream_Validate(t *testing.T) {
	s := &tokens.Stream{Tokens: []tokens.Token{{Index: 0}, {Index: 2}}, TokenCount: 2}
	assert.Error(t, s.Validate())

	s = &tokens.Stream{Tokens: []tokens.Token{{Index: 0}}, TokenCount: 3}
	assert.Error(t, s.Validate())
}

func TestToken_JSONKeepsPartialUTF8(t *testing.T) {
	tests := []struct {
		name      string
		raw       []byte
		wantBytes bool
	}{
		{"ascii", []byte(" world"), false},
		{"complete rune", []byte("東"), false},
		{"partial rune", []byte{0xF0, 0x9F}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tokens.NewToken(7, tt.raw, 3)
			data, err := json.Marshal(in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBytes, strings.Contains(string(data), `"bytes"`))

			var out tokens.Token
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}
