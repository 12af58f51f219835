// Package fsutil holds content helpers shared by the file inputs.
package fsutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrBinary is returned for content that is not text.
var ErrBinary = errors.New("binary content")

// sniffLen is how much content http.DetectContentType looks at.
const sniffLen = 512

// HashBytes returns the prefixed SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// DetectMIME determines the MIME type of content, preferring the extension
// when sniffing is inconclusive.
func DetectMIME(path string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	extMime := extensionToMIME(ext)
	if extMime == "" {
		extMime = stripParams(mime.TypeByExtension(ext))
	}

	var sniffed string
	if len(content) > 0 {
		sniffed = stripParams(http.DetectContentType(content))
	}

	switch {
	case extMime != "" && (sniffed == "" || sniffed == "application/octet-stream" || sniffed == "text/plain"):
		return extMime
	case sniffed != "":
		return sniffed
	case extMime != "":
		return extMime
	}
	return "application/octet-stream"
}

// CheckText returns ErrBinary when content looks like a binary file. Text
// that merely has an unknown extension passes.
func CheckText(path string, content []byte) error {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return fmt.Errorf("%w: %s contains NUL bytes", ErrBinary, filepath.Base(path))
	}
	if isTextMIME(DetectMIME(path, head)) {
		return nil
	}
	if validText(head, len(content) > len(head)) {
		return nil
	}
	return fmt.Errorf("%w: %s looks like %s", ErrBinary, filepath.Base(path), DetectMIME(path, head))
}

// validText reports whether head is UTF-8, allowing a rune cut off at the end
// when the content was truncated.
func validText(head []byte, truncated bool) bool {
	if utf8.Valid(head) {
		return true
	}
	if !truncated {
		return false
	}
	for cut := 1; cut < utf8.UTFMax && cut < len(head); cut++ {
		if utf8.Valid(head[:len(head)-cut]) {
			return true
		}
	}
	return false
}

func isTextMIME(m string) bool {
	if strings.HasPrefix(m, "text/") {
		return true
	}
	switch m {
	case "application/json", "application/x-ndjson", "application/xml", "image/svg+xml", "application/javascript":
		return true
	}
	return false
}

func stripParams(m string) string {
	if idx := strings.Index(m, ";"); idx != -1 {
		m = m[:idx]
	}
	return strings.TrimSpace(m)
}

func extensionToMIME(ext string) string {
	mimeMap := map[string]string{
		".go":   "text/x-go",
		".py":   "text/x-python",
		".js":   "text/javascript",
		".ts":   "text/typescript",
		".rs":   "text/x-rust",
		".rb":   "text/x-ruby",
		".java": "text/x-java",
		".c":    "text/x-c",
		".cpp":  "text/x-c++",
		".h":    "text/x-c-header",
		".sh":   "text/x-shellscript",
		".sql":  "text/x-sql",

		".md":   "text/markdown",
		".txt":  "text/plain",
		".rst":  "text/x-rst",
		".tex":  "text/x-tex",
		".yaml": "text/yaml",
		".yml":  "text/yaml",
		".toml": "text/toml",
		".ini":  "text/ini",

		".json":  "application/json",
		".jsonl": "application/x-ndjson",
		".csv":   "text/csv",
		".tsv":   "text/tab-separated-values",
		".xml":   "application/xml",
		".html":  "text/html",

		".pdf":  "application/pdf",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".zip":  "application/zip",
		".gz":   "application/gzip",
		".exe":  "application/x-executable",
		".so":   "application/x-sharedlib",
		".wasm": "application/wasm",
	}

	return mimeMap[ext]
}
