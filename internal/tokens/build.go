package tokens

import (
	"fmt"
)

// Codec is the subset of a tokenizer handle needed to build a stream.
type Codec interface {
	Encode(text string) ([]int, error)
	DecodeSingle(id int) ([]byte, error)
	EncodingName() string
}

// Build encodes text and decodes every token id into a Stream.
func Build(codec Codec, text string) (*Stream, error) {
	if text == "" {
		return Empty(codec.EncodingName()), nil
	}

	ids, err := codec.Encode(text)
	if err != nil {
		return nil, err
	}

	toks := make([]Token, len(ids))
	for i, id := range ids {
		raw, err := codec.DecodeSingle(id)
		if err != nil {
			return nil, fmt.Errorf("failed to decode token %d at position %d; %w", id, i, err)
		}
		toks[i] = NewToken(id, raw, i)
	}

	return &Stream{
		Tokens:       toks,
		TokenCount:   len(toks),
		CharCount:    CharCount(text),
		EncodingName: codec.EncodingName(),
	}, nil
}
