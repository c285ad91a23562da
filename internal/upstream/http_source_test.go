package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOriginServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Etag", `"origin-v1"`)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte("export default 1;"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetch(t *testing.T) {
	srv := newOriginServer(t)
	src, err := NewHTTPSource(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	file, err := src.Fetch(context.Background(), "/app.js")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(file.Content) != "export default 1;" {
		t.Fatalf("content = %q", file.Content)
	}
	if file.MIMEType != "application/javascript" {
		t.Fatalf("mime = %q", file.MIMEType)
	}
	if file.Header("Etag") != `"origin-v1"` {
		t.Fatalf("etag = %q", file.Header("Etag"))
	}
}

func TestHTTPFetchNotFound(t *testing.T) {
	srv := newOriginServer(t)
	src, err := NewHTTPSource(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	if _, err := src.Fetch(context.Background(), "/nope.js"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHTTPProbe(t *testing.T) {
	srv := newOriginServer(t)
	src, err := NewHTTPSource(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	res, err := src.Probe(context.Background(), "/app.js")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !res.OK || res.ETag != `"origin-v1"` || res.ContentType != "application/javascript" {
		t.Fatalf("probe = %+v", res)
	}

	res, err = src.Probe(context.Background(), "/nope.js")
	if err != nil {
		t.Fatalf("Probe missing: %v", err)
	}
	if res.OK {
		t.Fatal("probe of missing path reported OK")
	}
}

func TestHTTPSourceRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "   "} {
		if _, err := NewHTTPSource(raw); err == nil {
			t.Fatalf("NewHTTPSource(%q) accepted a bad base url", raw)
		}
	}
}
