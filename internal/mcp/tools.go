package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/export"
	"github.com/leefowlercu/tokenscope/internal/metrics"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

const (
	toolTokenize    = "tokenize"
	toolCountTokens = "count_tokens"

	maxCompareModels = 16
)

type tokenizeResult struct {
	Model        string `json:"model"`
	EncodingName string `json:"encoding_name"`
	TokenCount   int    `json:"token_count"`
	CharCount    int    `json:"char_count"`
	IDs          []int  `json:"ids"`
	Truncated    bool   `json:"truncated,omitempty"`
}

type modelCount struct {
	Model        string `json:"model"`
	EncodingName string `json:"encoding_name,omitempty"`
	TokenCount   int    `json:"token_count"`
	Error        string `json:"error,omitempty"`
}

type countTokensResult struct {
	CharCount int          `json:"char_count"`
	Counts    []modelCount `json:"counts"`
}

func (s *Server) registerTools() {
	tokenize := mcp.NewTool(
		toolTokenize,
		mcp.WithTitleAnnotation("Tokenize Text"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDescription("Split text into the tokens a model sees, with ids and decoded bytes."),
		mcp.WithString(
			"text",
			mcp.Required(),
			mcp.Description("Text to tokenize."),
		),
		mcp.WithString(
			"model",
			mcp.DefaultString(s.cfg.DefaultModel),
			mcp.Description("Model id; see the tokenscope://models resource."),
		),
		mcp.WithString(
			"format",
			mcp.Enum(s.exporter.ListFormats()...),
			mcp.DefaultString("json"),
			mcp.Description("Rendering of the token list in the text result."),
		),
		mcp.WithNumber(
			"max_tokens",
			mcp.Min(0),
			mcp.DefaultNumber(0),
			mcp.Description("Render at most this many tokens (0 = all). Counts always cover the full text."),
		),
	)
	s.mcpServer.AddTool(tokenize, s.handleTokenize)

	count := mcp.NewTool(
		toolCountTokens,
		mcp.WithTitleAnnotation("Count Tokens"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDescription("Count tokens in text for one or more models."),
		mcp.WithString(
			"text",
			mcp.Required(),
			mcp.Description("Text to count."),
		),
		mcp.WithArray(
			"models",
			mcp.WithStringItems(),
			mcp.MaxItems(maxCompareModels),
			mcp.Description("Model ids to compare. Defaults to the server's default model."),
		),
	)
	s.mcpServer.AddTool(count, s.handleCountTokens)
}

func (s *Server) handleTokenize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics.RecordMCPRequest(toolTokenize)

	text, errResult := s.requireText(request)
	if errResult != nil {
		return errResult, nil
	}
	model := strings.TrimSpace(request.GetString("model", s.cfg.DefaultModel))
	format := request.GetString("format", "json")
	maxTokens := max(0, request.GetInt("max_tokens", 0))

	stream, err := s.tok.Tokenize(ctx, text, model)
	if err != nil {
		return mcp.NewToolResultError(s.describeError(model, err)), nil
	}

	out, _, err := s.exporter.Export(stream, export.ExportOptions{
		Format:    format,
		Model:     model,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := tokenizeResult{
		Model:        model,
		EncodingName: stream.EncodingName,
		TokenCount:   stream.TokenCount,
		CharCount:    stream.CharCount,
		IDs:          stream.IDs(),
		Truncated:    maxTokens > 0 && stream.TokenCount > maxTokens,
	}
	if result.Truncated {
		result.IDs = result.IDs[:maxTokens]
	}
	return mcp.NewToolResultStructured(result, string(out)), nil
}

func (s *Server) handleCountTokens(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics.RecordMCPRequest(toolCountTokens)

	text, errResult := s.requireText(request)
	if errResult != nil {
		return errResult, nil
	}

	models := request.GetStringSlice("models", nil)
	if len(models) == 0 {
		models = []string{s.cfg.DefaultModel}
	}
	if len(models) > maxCompareModels {
		return mcp.NewToolResultError(fmt.Sprintf("at most %d models may be compared", maxCompareModels)), nil
	}

	result := countTokensResult{
		CharCount: tokens.CharCount(text),
		Counts:    make([]modelCount, 0, len(models)),
	}
	failed := 0
	for _, model := range models {
		model = strings.TrimSpace(model)
		stream, err := s.tok.Tokenize(ctx, text, model)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			result.Counts = append(result.Counts, modelCount{Model: model, Error: s.describeError(model, err)})
			continue
		}
		result.Counts = append(result.Counts, modelCount{
			Model:        model,
			EncodingName: stream.EncodingName,
			TokenCount:   stream.TokenCount,
		})
	}

	if failed == len(models) {
		return mcp.NewToolResultError(renderCounts(result)), nil
	}
	return mcp.NewToolResultStructured(result, renderCounts(result)), nil
}

// requireText returns the text argument, or an error result when it is
// missing or too large. Empty text is valid.
func (s *Server) requireText(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	text, err := request.RequireString("text")
	if err != nil {
		return "", mcp.NewToolResultError("text is required")
	}
	if s.cfg.MaxTextBytes > 0 && len(text) > s.cfg.MaxTextBytes {
		return "", mcp.NewToolResultError(fmt.Sprintf("text is %d bytes; limit is %d", len(text), s.cfg.MaxTextBytes))
	}
	return text, nil
}

func (s *Server) describeError(model string, err error) string {
	if errors.Is(err, catalog.ErrUnsupportedModel) {
		return fmt.Sprintf("unsupported model %q; available: %s", model, strings.Join(s.catalog.IDs(), ", "))
	}
	return err.Error()
}

func renderCounts(r countTokensResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d characters\n", r.CharCount)
	for _, c := range r.Counts {
		if c.Error != "" {
			fmt.Fprintf(&b, "%s: error: %s\n", c.Model, c.Error)
			continue
		}
		fmt.Fprintf(&b, "%s (%s): %d tokens\n", c.Model, c.EncodingName, c.TokenCount)
	}
	return b.String()
}
