package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	// ResourceURIModels lists every catalog model.
	ResourceURIModels = "tokenscope://models"

	// ResourceURIModelTemplate addresses one model (RFC 6570).
	ResourceURIModelTemplate = "tokenscope://models/{id}"

	// ResourceURIModelPrefix is the prefix of single-model URIs.
	ResourceURIModelPrefix = "tokenscope://models/"
)

// ResourceNotFoundError is returned when a requested resource doesn't exist.
type ResourceNotFoundError struct {
	URI string
}

func (e *ResourceNotFoundError) Error() string {
	return "resource not found: " + e.URI
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.NewResource(
			ResourceURIModels,
			"Models",
			mcp.WithResourceDescription("Every model the tokenizer accepts, with its vocabulary encoding"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleReadResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			ResourceURIModelTemplate,
			"Model",
			mcp.WithTemplateDescription("One catalog model by id"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReadResource,
	)
}

// handleReadResource serves both the list and single-model URIs.
func (s *Server) handleReadResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI

	var payload any
	switch {
	case uri == ResourceURIModels:
		payload = s.catalog.List()
	case strings.HasPrefix(uri, ResourceURIModelPrefix):
		m, err := s.catalog.Lookup(strings.TrimPrefix(uri, ResourceURIModelPrefix))
		if err != nil {
			return nil, &ResourceNotFoundError{URI: uri}
		}
		payload = m
	default:
		return nil, &ResourceNotFoundError{URI: uri}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource; %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
