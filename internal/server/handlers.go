package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/export"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokens"
	"github.com/leefowlercu/tokenscope/internal/version"
	"github.com/leefowlercu/tokenscope/internal/worker"
)

// Response headers set by /v1/tokenize regardless of format.
const (
	HeaderTokenCount = "X-Token-Count"
	HeaderCharCount  = "X-Char-Count"
)

const maxCountModels = 16

// Error codes in JSON error bodies. Job failures reuse the worker codes.
const (
	codeInvalidRequest  = string(worker.CodeInvalidRequest)
	codeNotFound        = "not_found"
	codeTooLarge        = "request_too_large"
	codeRateLimited     = "rate_limited"
	codeUnavailable     = "unavailable"
	codeTimeout         = "timeout"
	codeUnsupported     = string(worker.CodeUnsupportedModel)
	codeModelLoad       = string(worker.CodeModelLoad)
	codeEncodingFailure = string(worker.CodeEncoding)
)

type errorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code"`
	RequestID string   `json:"request_id,omitempty"`
	Available []string `json:"available,omitempty"`
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code, RequestID: RequestID(r.Context())})
}

// writeJobError maps a tokenization failure onto a status and code.
func (s *Server) writeJobError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: RequestID(r.Context())}
	status := http.StatusInternalServerError

	var je *worker.JobError
	switch {
	case errors.As(err, &je) && je.Code == worker.CodeInvalidRequest:
		status, resp.Code = http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, tokenizer.ErrUnsupportedModel):
		status, resp.Code = http.StatusBadRequest, codeUnsupported
		resp.Available = s.catalog.IDs()
	case errors.Is(err, export.ErrUnknownFormat):
		status, resp.Code = http.StatusBadRequest, codeInvalidRequest
		resp.Available = s.exporter.ListFormats()
	case errors.Is(err, tokenizer.ErrModelLoad):
		status, resp.Code = http.StatusBadGateway, codeModelLoad
	case errors.Is(err, worker.ErrPoolClosed),
		errors.Is(err, worker.ErrTerminated),
		errors.Is(err, worker.ErrWorkerStartup):
		status, resp.Code = http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status, resp.Code = http.StatusGatewayTimeout, codeTimeout
	case errors.Is(err, context.Canceled):
		status, resp.Code = http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, tokenizer.ErrEncoding):
		status, resp.Code = http.StatusUnprocessableEntity, codeEncodingFailure
	default:
		resp.Code = codeEncodingFailure
	}

	if status >= 500 {
		s.logger.Warn("tokenization request failed", "status", status, "error", err, "request_id", resp.RequestID)
	}
	writeJSON(w, status, resp)
}

// decodeBody reads a single JSON object into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			writeJSONError(w, r, http.StatusBadRequest, codeInvalidRequest, "request body is empty")
		default:
			writeJSONError(w, r, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body: "+err.Error())
		}
		return false
	}
	if dec.More() {
		writeJSONError(w, r, http.StatusBadRequest, codeInvalidRequest, "request body must hold a single JSON object")
		return false
	}
	return true
}

type tokenizeRequest struct {
	Text      *string `json:"text"`
	Model     string  `json:"model"`
	Format    string  `json:"format"`
	MaxTokens int     `json:"max_tokens"`
	Source    string  `json:"source"`
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSONError(w, r, http.StatusBadRequest, codeInvalidRequest, "text is required")
		return
	}
	if req.MaxTokens < 0 {
		writeJSONError(w, r, http.StatusBadRequest, codeInvalidRequest, "max_tokens must be non-negative")
		return
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.cfg.DefaultModel
	}
	format := req.Format
	if q := r.URL.Query().Get("format"); q != "" {
		format = q
	}
	if format == "" {
		format = "json"
	}
	if _, err := s.exporter.Formatter(format); err != nil {
		s.writeJobError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	stream, err := s.tok.Tokenize(ctx, *req.Text, model)
	if err != nil {
		s.writeJobError(w, r, err)
		return
	}

	out, stats, err := s.exporter.Export(stream, export.ExportOptions{
		Format:    format,
		Model:     model,
		Source:    req.Source,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		s.writeJobError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", stats.ContentType)
	w.Header().Set(HeaderTokenCount, strconv.Itoa(stream.TokenCount))
	w.Header().Set(HeaderCharCount, strconv.Itoa(stream.CharCount))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

type countRequest struct {
	Text   *string  `json:"text"`
	Models []string `json:"models"`
}

type modelCount struct {
	Model        string `json:"model"`
	EncodingName string `json:"encoding_name,omitempty"`
	TokenCount   int    `json:"token_count"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
}

type countResponse struct {
	CharCount int          `json:"char_count"`
	Counts    []modelCount `json:"counts"`
}

// handleCount tokenizes the same text with several models. Per-model
// failures are reported inline.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSONError(w, r, http.StatusBadRequest, codeInvalidRequest, "text is required")
		return
	}
	models := req.Models
	if len(models) == 0 {
		models = []string{s.cfg.DefaultModel}
	}
	if len(models) > maxCountModels {
		writeJSONError(w, r, http.StatusBadRequest, codeInvalidRequest,
			fmt.Sprintf("at most %d models per request", maxCountModels))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	resp := countResponse{CharCount: tokens.CharCount(*req.Text), Counts: make([]modelCount, 0, len(models))}
	for _, m := range models {
		stream, err := s.tok.Tokenize(ctx, *req.Text, m)
		if err != nil {
			if ctx.Err() != nil {
				s.writeJobError(w, r, ctx.Err())
				return
			}
			var je *worker.JobError
			code := codeEncodingFailure
			if errors.As(err, &je) {
				code = string(je.Code)
			} else if errors.Is(err, tokenizer.ErrUnsupportedModel) {
				code = codeUnsupported
			}
			resp.Counts = append(resp.Counts, modelCount{Model: m, Error: err.Error(), Code: code})
			continue
		}
		resp.Counts = append(resp.Counts, modelCount{
			Model:        m,
			EncodingName: stream.EncodingName,
			TokenCount:   stream.TokenCount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type modelsResponse struct {
	Models  []catalog.Model `json:"models"`
	Default string          `json:"default"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelsResponse{Models: s.catalog.List(), Default: s.cfg.DefaultModel})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.catalog.Lookup(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:     err.Error(),
			Code:      codeNotFound,
			RequestID: RequestID(r.Context()),
			Available: s.catalog.IDs(),
		})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats": s.exporter.ListFormats(),
		"default": "json",
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}
