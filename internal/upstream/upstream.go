// Package upstream abstracts access to the original, untransformed
// resources the pipeline works on. A Source can fetch a file's bytes and
// probe a path for existence without downloading the body; the probe also
// reports the resource's change token (entity tag) used for cache
// validation.
package upstream

import (
	"context"
	"errors"

	"unchained/internal/transform"
)

var ErrNotFound = errors.New("upstream: not found")

// ProbeResult is the outcome of a header-only existence check.
type ProbeResult struct {
	OK          bool
	ContentType string
	ETag        string
}

type Source interface {
	// Fetch downloads the resource at path and returns it as a SourceFile.
	// Returns ErrNotFound when the path does not exist.
	Fetch(ctx context.Context, path string) (*transform.SourceFile, error)
	// Probe checks whether path exists, bypassing intermediate caches.
	// A missing resource yields {OK: false}, not an error; errors are
	// reserved for transport failures.
	Probe(ctx context.Context, path string) (ProbeResult, error)
}
