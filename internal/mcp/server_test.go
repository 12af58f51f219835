package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokenizer/tokenizertest"
	"github.com/leefowlercu/tokenscope/internal/worker"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat := tokenizertest.Catalog()
	adapter := tokenizer.NewAdapter(cat, tokenizertest.NewBackend())
	pool, err := worker.NewPool(context.Background(), adapter, 2, nil)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	cfg := DefaultConfig()
	cfg.DefaultModel = "alpha"
	cfg.MaxTextBytes = 64
	return NewServer(pool, cat, cfg, nil)
}

func callTool(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	}
}

func resultText(t *testing.T, r *mcplib.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := r.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", r.Content[0])
	}
	return tc.Text
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := newTestServer(t)

	tools := s.mcpServer.ListTools()
	for _, name := range []string{toolTokenize, toolCountTokens} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
	if s.BasePath() != "/mcp" || s.Handler() == nil {
		t.Errorf("BasePath() = %q", s.BasePath())
	}
}

func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() before Start = %v", err)
	}
	if err := s.Start(ctx); err != nil || !s.Running() {
		t.Fatalf("Start() = %v, Running = %v", err, s.Running())
	}
	if err := s.Stop(ctx); err != nil || s.Running() {
		t.Errorf("Stop() = %v, Running = %v", err, s.Running())
	}
}

func TestTokenizeTool(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleTokenize(context.Background(), callTool(toolTokenize, map[string]any{
		"text":   "Hello, world!",
		"format": "ids",
	}))
	if err != nil {
		t.Fatalf("handleTokenize() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	got, ok := res.StructuredContent.(tokenizeResult)
	if !ok {
		t.Fatalf("structured content is %T", res.StructuredContent)
	}
	if got.Model != "alpha" || got.TokenCount != 4 || got.CharCount != 13 || got.EncodingName != "alpha_base" {
		t.Errorf("result = %+v", got)
	}
	if text := resultText(t, res); strings.Count(text, ",") != 3 {
		t.Errorf("ids text = %q", text)
	}
}

func TestTokenizeTool_JSONTextRoundTrips(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleTokenize(context.Background(), callTool(toolTokenize, map[string]any{
		"text":  "Hi there",
		"model": "beta",
	}))
	if err != nil || res.IsError {
		t.Fatalf("handleTokenize() = %v, %v", res, err)
	}

	var doc struct {
		Model  string `json:"model"`
		Tokens []struct {
			Text string `json:"text"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &doc); err != nil {
		t.Fatalf("text is not JSON: %v", err)
	}
	var joined strings.Builder
	for _, tok := range doc.Tokens {
		joined.WriteString(tok.Text)
	}
	if doc.Model != "beta" || joined.String() != "Hi there" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestTokenizeTool_MaxTokens(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleTokenize(context.Background(), callTool(toolTokenize, map[string]any{
		"text":       "Hello, world!",
		"max_tokens": 2,
	}))
	if err != nil || res.IsError {
		t.Fatalf("handleTokenize() = %v, %v", res, err)
	}
	got := res.StructuredContent.(tokenizeResult)
	if !got.Truncated || len(got.IDs) != 2 || got.TokenCount != 4 {
		t.Errorf("result = %+v", got)
	}
}

func TestTokenizeTool_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantMsg string
	}{
		{"missing text", map[string]any{}, "text is required"},
		{"unsupported model", map[string]any{"text": "x", "model": "nope"}, "available: alpha, beta, remote"},
		{"too large", map[string]any{"text": strings.Repeat("x", 65)}, "limit is 64"},
		{"unknown format", map[string]any{"text": "x", "format": "csv"}, "unknown format"},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleTokenize(context.Background(), callTool(toolTokenize, tt.args))
			if err != nil {
				t.Fatalf("handleTokenize() error = %v", err)
			}
			if !res.IsError {
				t.Fatal("expected tool error")
			}
			if msg := resultText(t, res); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestTokenizeTool_EmptyText(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleTokenize(context.Background(), callTool(toolTokenize, map[string]any{"text": ""}))
	if err != nil || res.IsError {
		t.Fatalf("handleTokenize() = %v, %v", res, err)
	}
	if got := res.StructuredContent.(tokenizeResult); got.TokenCount != 0 || got.CharCount != 0 {
		t.Errorf("result = %+v", got)
	}
}

func TestCountTokensTool(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleCountTokens(context.Background(), callTool(toolCountTokens, map[string]any{
		"text":   "Hello, world!",
		"models": []any{"alpha", "beta", "nope"},
	}))
	if err != nil || res.IsError {
		t.Fatalf("handleCountTokens() = %v, %v", res, err)
	}

	got := res.StructuredContent.(countTokensResult)
	if got.CharCount != 13 || len(got.Counts) != 3 {
		t.Fatalf("result = %+v", got)
	}
	if got.Counts[0].TokenCount != 4 || got.Counts[1].EncodingName != "beta_base" || got.Counts[2].Error == "" {
		t.Errorf("counts = %+v", got.Counts)
	}
	if text := resultText(t, res); !strings.Contains(text, "alpha (alpha_base): 4 tokens") {
		t.Errorf("text = %q", text)
	}
}

func TestCountTokensTool_DefaultModelAndAllFailing(t *testing.T) {
	s := newTestServer(t)

	res, _ := s.handleCountTokens(context.Background(), callTool(toolCountTokens, map[string]any{"text": "a b"}))
	if res.IsError || res.StructuredContent.(countTokensResult).Counts[0].Model != "alpha" {
		t.Errorf("default model result = %+v", res)
	}

	res, _ = s.handleCountTokens(context.Background(), callTool(toolCountTokens, map[string]any{
		"text":   "a b",
		"models": []any{"nope"},
	}))
	if !res.IsError {
		t.Error("all models failing should be a tool error")
	}
}

func TestReadResource(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	read := func(uri string) ([]mcplib.ResourceContents, error) {
		var req mcplib.ReadResourceRequest
		req.Params.URI = uri
		return s.handleReadResource(ctx, req)
	}

	contents, err := read(ResourceURIModels)
	if err != nil {
		t.Fatalf("read models: %v", err)
	}
	text := contents[0].(mcplib.TextResourceContents).Text
	var models []map[string]any
	if err := json.Unmarshal([]byte(text), &models); err != nil || len(models) != 3 {
		t.Errorf("models = %s (%v)", text, err)
	}

	contents, err = read(ResourceURIModelPrefix + "beta")
	if err != nil {
		t.Fatalf("read beta: %v", err)
	}
	if text := contents[0].(mcplib.TextResourceContents).Text; !strings.Contains(text, `"encoding": "beta_base"`) {
		t.Errorf("beta = %s", text)
	}

	for _, uri := range []string{ResourceURIModelPrefix + "nope", "tokenscope://other"} {
		var nf *ResourceNotFoundError
		if _, err := read(uri); !errors.As(err, &nf) {
			t.Errorf("read(%q) error = %v, want ResourceNotFoundError", uri, err)
		}
	}
}
