package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"unchained/internal/transform"
)

// HTTPSource serves files from an origin HTTP server. Probes are HEAD
// requests with cache-bypass headers so the change token always reflects
// the origin, never an intermediary.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

func NewHTTPSource(baseURL string) (*HTTPSource, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream base url must be http(s), got %q", u.Scheme)
	}
	return &HTTPSource{
		base:   u,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, path string) (*transform.SourceFile, error) {
	if s == nil {
		return nil, fmt.Errorf("source is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.resolve(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[http.CanonicalHeaderKey(name)] = resp.Header.Get(name)
	}
	return &transform.SourceFile{
		URL:      path,
		MIMEType: resp.Header.Get("Content-Type"),
		Content:  body,
		Headers:  headers,
	}, nil
}

func (s *HTTPSource) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if s == nil {
		return ProbeResult{}, fmt.Errorf("source is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.resolve(path), nil)
	if err != nil {
		return ProbeResult{}, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	resp, err := s.client.Do(req)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ProbeResult{}, nil
	}
	return ProbeResult{
		OK:          true,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("Etag"),
	}, nil
}

func (s *HTTPSource) resolve(path string) string {
	ref := &url.URL{Path: "/" + strings.TrimLeft(strings.TrimSpace(path), "/")}
	return s.base.ResolveReference(ref).String()
}
