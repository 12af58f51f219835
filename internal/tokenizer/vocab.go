package tokenizer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leefowlercu/tokenscope/internal/metrics"
)

// VocabLoader downloads tiktoken-format BPE vocabularies and caches them on disk.
type VocabLoader struct {
	dir       string
	client    *http.Client
	authToken string
	logger    *slog.Logger
}

// VocabOption configures a VocabLoader.
type VocabOption func(*VocabLoader)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(client *http.Client) VocabOption {
	return func(l *VocabLoader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithAuthToken sets a bearer token sent with every download.
func WithAuthToken(token string) VocabOption {
	return func(l *VocabLoader) {
		l.authToken = token
	}
}

// WithVocabLogger sets the logger.
func WithVocabLogger(logger *slog.Logger) VocabOption {
	return func(l *VocabLoader) {
		l.logger = logger
	}
}

// NewVocabLoader creates a loader caching into dir. An empty dir disables
// the disk cache.
func NewVocabLoader(dir string, opts ...VocabOption) *VocabLoader {
	l := &VocabLoader{
		dir:    dir,
		client: &http.Client{Timeout: 10 * time.Minute},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the mergeable ranks stored at url, downloading when the disk
// cache has no copy.
func (l *VocabLoader) Load(ctx context.Context, url string, onProgress ProgressFunc) (map[string]int, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	if path := l.cachePath(url); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			l.logger.Debug("vocabulary cache hit", "url", url, "path", path)
			onProgress(100)
			return ParseVocab(bytes.NewReader(data))
		}
	}

	data, err := l.download(ctx, url, onProgress)
	metrics.RecordVocabDownload(err)
	if err != nil {
		return nil, err
	}

	ranks, err := ParseVocab(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if path := l.cachePath(url); path != "" {
		if err := writeFileAtomic(path, data); err != nil {
			l.logger.Warn("failed to cache vocabulary", "path", path, "error", err)
		}
	}

	return ranks, nil
}

func (l *VocabLoader) download(ctx context.Context, url string, onProgress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build vocabulary request; %w", err)
	}
	if l.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+l.authToken)
	}

	l.logger.Info("downloading vocabulary", "url", url)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download vocabulary; %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download vocabulary; unexpected status %s", resp.Status)
	}

	pr := &progressReader{
		r:          resp.Body,
		total:      resp.ContentLength,
		onProgress: onProgress,
		last:       -1,
	}
	onProgress(0)

	data, err := io.ReadAll(pr)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary body; %w", err)
	}
	onProgress(100)

	return data, nil
}

// Cached reports whether the vocabulary at url is already on disk.
func (l *VocabLoader) Cached(url string) bool {
	path := l.cachePath(url)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// cachePath maps a url to a file under dir.
func (l *VocabLoader) cachePath(url string) string {
	if l.dir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(l.dir, name[:2], name+".tiktoken")
}

// ParseVocab reads "<base64 token> <rank>" lines.
func ParseVocab(r io.Reader) (map[string]int, error) {
	ranks := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("vocabulary line %d: expected 2 fields, got %d", line, len(fields))
		}

		token, err := base64.StdEncoding.DecodeString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("vocabulary line %d: invalid base64; %w", line, err)
		}
		rank, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("vocabulary line %d: invalid rank; %w", line, err)
		}
		ranks[string(token)] = rank
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary; %w", err)
	}
	if len(ranks) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	return ranks, nil
}

// progressReader reports whole-percent progress while reading.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	last       int
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.last {
			p.last = pct
			p.onProgress(float64(pct))
		}
	}
	return n, err
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vocab-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
