package artifact

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"unchained/internal/pipeline"
	"unchained/internal/transform"
	"unchained/internal/upstream"
)

// State is the phase an incoming request ended in.
type State string

const (
	StateMiss       State = "miss"
	StateFetching   State = "fetching"
	StateValidating State = "validating"
	StateHit        State = "hit"
	StateStale      State = "stale"
)

// MetricsSnapshot is a point-in-time copy of the validator counters.
type MetricsSnapshot struct {
	Hits          uint64
	Misses        uint64
	Stale         uint64
	ProbeFailures uint64
	RunFailures   uint64
}

type metrics struct {
	hits          atomic.Uint64
	misses        atomic.Uint64
	stale         atomic.Uint64
	probeFailures atomic.Uint64
	runFailures   atomic.Uint64
}

func (m *metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Stale:         m.stale.Load(),
		ProbeFailures: m.probeFailures.Load(),
		RunFailures:   m.runFailures.Load(),
	}
}

// Runner executes the transform pipeline for one fetched file.
type Runner interface {
	Run(ctx context.Context, file *transform.SourceFile) (pipeline.Artifact, error)
}

// Validator decides whether a stored artifact may be reused. A cached
// artifact is served only after a successful change-token comparison
// against the original upstream resource; a failed probe means "assume
// stale" and falls through to a full re-run.
type Validator struct {
	store  Store
	source upstream.Source
	runner Runner

	// OnReplace is called after a previously cached artifact was
	// overwritten with a fresh one. Used for client invalidation.
	OnReplace func(key string)

	metrics metrics
}

func NewValidator(store Store, source upstream.Source, runner Runner) (*Validator, error) {
	if store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if source == nil {
		return nil, fmt.Errorf("upstream source is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner is required")
	}
	return &Validator{store: store, source: source, runner: runner}, nil
}

// Serve returns the artifact for one request: the cached entry on a token
// match, otherwise the result of a full fetch + pipeline run, stored under
// key before returning. path is the upstream location of the original
// resource; key is the request identity.
func (v *Validator) Serve(ctx context.Context, key, path string) (*Entry, State, error) {
	if v == nil {
		return nil, StateMiss, fmt.Errorf("validator is nil")
	}

	cached, err := v.store.Get(ctx, key)
	hadEntry := err == nil && cached != nil

	if hadEntry {
		probe, perr := v.source.Probe(ctx, path)
		if perr != nil || !probe.OK {
			v.metrics.probeFailures.Add(1)
		} else if probe.ETag != "" && probe.ETag == cached.ETag {
			v.metrics.hits.Add(1)
			return cached, StateHit, nil
		}
		// Token mismatch or failed probe: assume stale.
	}

	file, err := v.source.Fetch(ctx, path)
	if err != nil {
		return nil, StateMiss, fmt.Errorf("fetch upstream %s: %w", path, err)
	}
	art, err := v.runner.Run(ctx, file)
	if err != nil {
		v.metrics.runFailures.Add(1)
		return nil, StateMiss, fmt.Errorf("transform %s: %w", path, err)
	}

	entry := &Entry{
		Key:     key,
		ETag:    file.Header("Etag"),
		Body:    art.Body,
		Headers: art.Headers,
	}
	if err := v.store.Put(ctx, key, entry); err != nil {
		// The artifact is still valid; losing the cache write only costs a
		// re-run on the next request.
		log.Printf("artifact cache write failed for %s: %v", key, err)
	}

	if hadEntry {
		v.metrics.stale.Add(1)
		if v.OnReplace != nil {
			v.OnReplace(key)
		}
		return entry.clone(), StateStale, nil
	}
	v.metrics.misses.Add(1)
	return entry.clone(), StateMiss, nil
}

func (v *Validator) Metrics() MetricsSnapshot {
	if v == nil {
		return MetricsSnapshot{}
	}
	return v.metrics.snapshot()
}
