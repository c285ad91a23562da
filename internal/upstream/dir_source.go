package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"unchained/internal/transform"
)

// DirSource serves files from a local directory, the common local-dev
// setup. All paths are resolved inside the root; anything escaping it is
// treated as not found. The change token is derived from file size and
// modification time, which changes whenever the bytes do.
type DirSource struct {
	absRoot string
}

func NewDirSource(root string) (*DirSource, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	return &DirSource{absRoot: abs}, nil
}

func (s *DirSource) Fetch(_ context.Context, path string) (*transform.SourceFile, error) {
	if s == nil {
		return nil, fmt.Errorf("source is nil")
	}
	full, err := s.contained(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, ErrNotFound
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ctype := contentTypeFor(full)
	etag := dirETag(info.Size(), info.ModTime().UnixNano())
	return &transform.SourceFile{
		URL:      path,
		MIMEType: ctype,
		Content:  content,
		Headers: map[string]string{
			"Content-Type": ctype,
			"Etag":         etag,
		},
	}, nil
}

func (s *DirSource) Probe(_ context.Context, path string) (ProbeResult, error) {
	if s == nil {
		return ProbeResult{}, fmt.Errorf("source is nil")
	}
	full, err := s.contained(path)
	if err != nil {
		return ProbeResult{}, nil
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return ProbeResult{}, nil
	}
	return ProbeResult{
		OK:          true,
		ContentType: contentTypeFor(full),
		ETag:        dirETag(info.Size(), info.ModTime().UnixNano()),
	}, nil
}

// contained resolves path under the root and rejects escapes.
func (s *DirSource) contained(path string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(path))
	full := filepath.Join(s.absRoot, clean)
	if full != s.absRoot && !strings.HasPrefix(full, s.absRoot+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	return full, nil
}

var extTypes = map[string]string{
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".jsx":  "application/javascript",
	".json": "application/json",
	".css":  "text/css",
	".txt":  "text/plain",
	".html": "text/html",
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func dirETag(size, mtime int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d-%d", size, mtime)))
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}
