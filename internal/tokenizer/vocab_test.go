package tokenizer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func vocabBody(tokens ...string) string {
	var b strings.Builder
	for i, tok := range tokens {
		fmt.Fprintf(&b, "%s %d\n", base64.StdEncoding.EncodeToString([]byte(tok)), i)
	}
	return b.String()
}

func TestParseVocab(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]int
		wantErr bool
	}{
		{"valid", vocabBody("a", "b", "ab"), map[string]int{"a": 0, "b": 1, "ab": 2}, false},
		{"blank lines ignored", "\n" + vocabBody("x") + "\n\n", map[string]int{"x": 0}, false},
		{"bad base64", "!!! 0\n", nil, true},
		{"bad rank", base64.StdEncoding.EncodeToString([]byte("a")) + " one\n", nil, true},
		{"wrong field count", "YQ==\n", nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVocab(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVocab() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVocab() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseVocab() len = %d, want %d", len(got), len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("rank[%q] = %d, want %d", k, got[k], v)
				}
			}
		})
	}
}

func TestVocabLoader_DownloadsWithProgressAndCaches(t *testing.T) {
	body := vocabBody("h", "e", "l", "o", "he", "ll")
	var hits atomic.Int32
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	l := NewVocabLoader(t.TempDir(), WithAuthToken("secret"))
	if l.Cached(srv.URL + "/v.tiktoken") {
		t.Fatal("Cached() before the first download")
	}

	var progress []float64
	ranks, err := l.Load(context.Background(), srv.URL+"/v.tiktoken", func(p float64) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(ranks) != 6 {
		t.Errorf("ranks len = %d, want 6", len(ranks))
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(progress) == 0 || progress[0] != 0 || progress[len(progress)-1] != 100 {
		t.Errorf("progress = %v, want to start at 0 and end at 100", progress)
	}

	if !l.Cached(srv.URL + "/v.tiktoken") {
		t.Error("Cached() = false after download")
	}

	// Second load is served from disk.
	if _, err := l.Load(context.Background(), srv.URL+"/v.tiktoken", nil); err != nil {
		t.Fatalf("cached Load() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestVocabLoader_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gated", http.StatusForbidden)
	}))
	defer srv.Close()

	l := NewVocabLoader("")
	if _, err := l.Load(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("Load() error = nil, want error for 403")
	}
}
