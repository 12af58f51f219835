package fsutil

import (
	"errors"
	"strings"
	"testing"
)

func TestHashBytes(t *testing.T) {
	hash1 := HashBytes([]byte("hello"))
	hash2 := HashBytes([]byte("world"))

	if hash1 == hash2 {
		t.Error("different content should produce different hashes")
	}
	if !strings.HasPrefix(hash1, "sha256:") {
		t.Errorf("hash %q missing algorithm prefix", hash1)
	}
	// prefix plus 64 hex characters
	if len(hash1) != len("sha256:")+64 {
		t.Errorf("hash length = %d", len(hash1))
	}
	if HashBytes([]byte("hello")) != hash1 {
		t.Error("hash is not stable")
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		path     string
		content  []byte
		expected []string
	}{
		{"/test/file.go", nil, []string{"text/x-go"}},
		{"/test/file.md", nil, []string{"text/markdown"}},
		{"/test/file.json", nil, []string{"application/json"}},
		{"/test/file.yaml", []byte("a: 1\n"), []string{"text/yaml"}},
		{"/test/file.unknown", nil, []string{"application/octet-stream"}},
		{"/test/file.unknown", []byte("plain words"), []string{"text/plain"}},
		{"/test/file.bin", []byte("\x89PNG\r\n\x1a\n\x00\x00"), []string{"image/png"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := DetectMIME(tt.path, tt.content)
			for _, want := range tt.expected {
				if got == want {
					return
				}
			}
			t.Errorf("DetectMIME(%q) = %q, want one of %v", tt.path, got, tt.expected)
		})
	}
}

func TestCheckText(t *testing.T) {
	longCut := []byte(strings.Repeat("a", sniffLen-1) + "日本")

	tests := []struct {
		name    string
		path    string
		content []byte
		binary  bool
	}{
		{"empty", "notes.txt", nil, false},
		{"prose", "notes.txt", []byte("Hello, world!\n"), false},
		{"unicode without extension", "prompt", []byte("こんにちは 👋"), false},
		{"json", "data.json", []byte(`{"k": "v"}`), false},
		{"rune cut at sniff boundary", "big.txt", longCut, false},
		{"nul bytes", "notes.txt", []byte("abc\x00def"), true},
		{"png", "image.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), true},
		{"invalid utf8", "blob", []byte{'a', 0xff, 0x01, 0x02}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckText(tt.path, tt.content)
			if tt.binary {
				if !errors.Is(err, ErrBinary) {
					t.Errorf("CheckText() = %v, want ErrBinary", err)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckText() = %v, want nil", err)
			}
		})
	}
}
