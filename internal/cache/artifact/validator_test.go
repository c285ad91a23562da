package artifact

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"unchained/internal/pipeline"
	"unchained/internal/transform"
	"unchained/internal/upstream"
)

type fakeSource struct {
	mu sync.Mutex

	etag       string
	content    string
	failProbe  bool
	failFetch  bool
	probeCalls int
	fetchCalls int
}

func (s *fakeSource) Fetch(_ context.Context, path string) (*transform.SourceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.failFetch {
		return nil, upstream.ErrNotFound
	}
	return &transform.SourceFile{
		URL:      path,
		MIMEType: "application/javascript",
		Content:  []byte(s.content),
		Headers:  map[string]string{"Etag": s.etag, "Content-Type": "application/javascript"},
	}, nil
}

func (s *fakeSource) Probe(_ context.Context, _ string) (upstream.ProbeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeCalls++
	if s.failProbe {
		return upstream.ProbeResult{}, fmt.Errorf("network down")
	}
	return upstream.ProbeResult{OK: true, ContentType: "application/javascript", ETag: s.etag}, nil
}

type fakeRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *fakeRunner) Run(_ context.Context, file *transform.SourceFile) (pipeline.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return pipeline.Artifact{
		Body: []byte("transformed:" + string(file.Content)),
		Headers: map[string]string{
			"Content-Type": "application/javascript",
			"Etag":         file.Header("Etag"),
		},
	}, nil
}

func (r *fakeRunner) runCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestValidator(t *testing.T, source *fakeSource) (*Validator, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	v, err := NewValidator(NewMemoryStore(MemoryConfig{}), source, runner)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v, runner
}

func TestServeMissThenHit(t *testing.T) {
	source := &fakeSource{etag: `"v1"`, content: "code()"}
	v, runner := newTestValidator(t, source)

	entry, state, err := v.Serve(context.Background(), "/app.js", "/app.js")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if state != StateMiss {
		t.Fatalf("first serve state = %s, want miss", state)
	}
	if string(entry.Body) != "transformed:code()" {
		t.Fatalf("body = %q", entry.Body)
	}
	if runner.runCalls() != 1 {
		t.Fatalf("runs = %d, want 1", runner.runCalls())
	}

	entry, state, err = v.Serve(context.Background(), "/app.js", "/app.js")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if state != StateHit {
		t.Fatalf("second serve state = %s, want hit", state)
	}
	if runner.runCalls() != 1 {
		t.Fatalf("hit must not re-run the pipeline, runs = %d", runner.runCalls())
	}
	if entry.ETag != `"v1"` {
		t.Fatalf("etag = %q", entry.ETag)
	}
}

func TestServeTokenChangeForcesRerun(t *testing.T) {
	source := &fakeSource{etag: `"v1"`, content: "one()"}
	v, runner := newTestValidator(t, source)

	if _, _, err := v.Serve(context.Background(), "/app.js", "/app.js"); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	source.mu.Lock()
	source.etag = `"v2"`
	source.content = "two()"
	source.mu.Unlock()

	entry, state, err := v.Serve(context.Background(), "/app.js", "/app.js")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if state != StateStale {
		t.Fatalf("state = %s, want stale", state)
	}
	if runner.runCalls() != 2 {
		t.Fatalf("runs = %d, want 2", runner.runCalls())
	}
	if entry.ETag != `"v2"` {
		t.Fatalf("stored token not replaced: %q", entry.ETag)
	}
	if string(entry.Body) != "transformed:two()" {
		t.Fatalf("body = %q", entry.Body)
	}
}

func TestServeProbeFailureAssumesStale(t *testing.T) {
	source := &fakeSource{etag: `"v1"`, content: "one()"}
	v, runner := newTestValidator(t, source)

	if _, _, err := v.Serve(context.Background(), "/app.js", "/app.js"); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	source.mu.Lock()
	source.failProbe = true
	source.mu.Unlock()

	_, state, err := v.Serve(context.Background(), "/app.js", "/app.js")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if state == StateHit {
		t.Fatalf("cached artifact served without a successful token comparison")
	}
	if runner.runCalls() != 2 {
		t.Fatalf("runs = %d, want 2 (assume stale)", runner.runCalls())
	}
	if got := v.Metrics().ProbeFailures; got != 1 {
		t.Fatalf("probe failures = %d, want 1", got)
	}
}

func TestServeFetchFailureIsPropagated(t *testing.T) {
	source := &fakeSource{failFetch: true}
	v, runner := newTestValidator(t, source)

	if _, _, err := v.Serve(context.Background(), "/app.js", "/app.js"); err == nil {
		t.Fatalf("expected fetch failure")
	}
	if runner.runCalls() != 0 {
		t.Fatalf("pipeline ran despite fetch failure")
	}
}

func TestServeOnReplaceFiresOnlyOnReplacement(t *testing.T) {
	source := &fakeSource{etag: `"v1"`, content: "one()"}
	v, _ := newTestValidator(t, source)

	var replaced []string
	v.OnReplace = func(key string) { replaced = append(replaced, key) }

	if _, _, err := v.Serve(context.Background(), "/app.js", "/app.js"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(replaced) != 0 {
		t.Fatalf("OnReplace fired on first miss")
	}

	source.mu.Lock()
	source.etag = `"v2"`
	source.mu.Unlock()

	if _, _, err := v.Serve(context.Background(), "/app.js", "/app.js"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(replaced) != 1 || replaced[0] != "/app.js" {
		t.Fatalf("OnReplace calls = %v, want [/app.js]", replaced)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	entry := &Entry{ETag: `"v1"`, Body: []byte("body"), Headers: map[string]string{"Content-Type": "application/javascript"}}
	if err := store.Put(context.Background(), "/k.js", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(context.Background(), "/k.js")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Key != "/k.js" || string(got.Body) != "body" {
		t.Fatalf("entry = %+v", got)
	}

	// Mutating the returned copy must not affect the stored entry.
	got.Body[0] = 'X'
	again, err := store.Get(context.Background(), "/k.js")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(again.Body) != "body" {
		t.Fatalf("stored entry was mutated through a returned copy")
	}

	if _, err := store.Get(context.Background(), "/missing.js"); err != ErrNotFound {
		t.Fatalf("missing key error = %v, want ErrNotFound", err)
	}
}
