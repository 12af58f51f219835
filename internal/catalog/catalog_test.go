package catalog

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		id       string
		wantKind Kind
		wantEnc  string
		wantErr  bool
	}{
		{"gpt-4o uses o200k", "gpt-4o", KindBuiltin, EncodingO200K, false},
		{"gpt-4 uses cl100k", "gpt-4", KindBuiltin, EncodingCL100K, false},
		{"davinci uses r50k", "davinci", KindBuiltin, EncodingR50K, false},
		{"llama is remote", "llama-3", KindRemote, "llama3", false},
		{"unknown model", "gpt-99", "", "", true},
		{"empty id", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := c.Lookup(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedModel) {
					t.Fatalf("Lookup(%q) error = %v, want ErrUnsupportedModel", tt.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.id, err)
			}
			if m.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", m.Kind, tt.wantKind)
			}
			if m.Encoding != tt.wantEnc {
				t.Errorf("Encoding = %q, want %q", m.Encoding, tt.wantEnc)
			}
		})
	}
}

func TestRemoteModelsCarrySpecialTokens(t *testing.T) {
	m, err := New().Lookup("llama-3")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if m.Pattern == "" {
		t.Error("remote model has no split pattern")
	}
	if got := m.SpecialTokens["<|begin_of_text|>"]; got != 128000 {
		t.Errorf("begin_of_text = %d, want 128000", got)
	}
}

func TestWithVocabURL(t *testing.T) {
	c := New()

	if err := c.WithVocabURL("llama-3", "http://mirror.local/tokenizer.model"); err != nil {
		t.Fatalf("WithVocabURL() error = %v", err)
	}
	m, _ := c.Lookup("llama-3")
	if m.VocabURL != "http://mirror.local/tokenizer.model" {
		t.Errorf("VocabURL = %q", m.VocabURL)
	}

	if err := c.WithVocabURL("gpt-4", "http://x"); err == nil {
		t.Error("WithVocabURL on builtin model should fail")
	}
	if err := c.WithVocabURL("nope", "http://x"); !errors.Is(err, ErrUnsupportedModel) {
		t.Errorf("WithVocabURL unknown error = %v", err)
	}
}

func TestListIsACopy(t *testing.T) {
	c := New()
	list := c.List()
	list[0].ID = "mutated"

	if _, err := c.Lookup("gpt-4o"); err != nil {
		t.Errorf("mutating List() result changed catalog: %v", err)
	}
	if len(c.IDs()) != len(list) {
		t.Errorf("IDs() len = %d, want %d", len(c.IDs()), len(list))
	}
}
