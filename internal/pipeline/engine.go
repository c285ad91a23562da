// Package pipeline orchestrates, for one file, the ordered transform
// plugins, the dependency-discovery and specifier-rewrite phase, and
// finalization into a servable artifact.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"unchained/internal/plugin"
	"unchained/internal/transform"
)

// DefaultMarker is the query key that routes a request through the
// pipeline and marks rewritten specifiers as already resolved.
const DefaultMarker = "unchained"

// Artifact is the finalized output of one pipeline run.
type Artifact struct {
	Body    []byte
	Headers map[string]string
}

type Config struct {
	// Plugins is the ordered plugin list. Order is part of the contract:
	// transform plugins run in this order, and the first resolve-capable
	// plugin to answer wins.
	Plugins []plugin.Spec
	// Registry resolves named plugin specs; Default() when nil.
	Registry *plugin.Registry
	// Marker is the cache-bust query key appended to rewritten
	// specifiers; DefaultMarker when empty.
	Marker string
	// Version, when set, is appended as the marker's value so artifacts
	// produced by older pipeline configurations stop matching.
	Version string
}

// Engine runs the three phases for one file at a time. It holds no
// per-file state and is safe for concurrent use.
type Engine struct {
	plugins []plugin.Plugin
	marker  string
	version string
}

// New resolves the configured plugin specs once, failing fast on any
// configuration error before a single file is processed.
func New(cfg Config) (*Engine, error) {
	reg := cfg.Registry
	if reg == nil {
		reg = plugin.Default()
	}
	plugins, err := plugin.Build(reg, cfg.Plugins)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	marker := cfg.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	return &Engine{plugins: plugins, marker: marker, version: cfg.Version}, nil
}

// Marker returns the configured cache-bust query key.
func (e *Engine) Marker() string { return e.marker }

// Run executes the transform, resolve and finalize phases for file.
func (e *Engine) Run(ctx context.Context, file *transform.SourceFile) (Artifact, error) {
	if e == nil {
		return Artifact{}, fmt.Errorf("engine is nil")
	}
	if file == nil {
		return Artifact{}, fmt.Errorf("file is nil")
	}

	analysis := transform.Analysis{Code: string(file.Content)}

	analysis, err := e.transformPhase(ctx, file, analysis)
	if err != nil {
		return Artifact{}, err
	}
	analysis = e.resolvePhase(ctx, file, analysis)
	return e.finalize(file, analysis), nil
}

// transformPhase applies transform-capable applicable plugins in their
// configured order, each consuming the previous analysis.
func (e *Engine) transformPhase(ctx context.Context, file *transform.SourceFile, in transform.Analysis) (transform.Analysis, error) {
	out := in
	for _, p := range e.plugins {
		tp, ok := p.(plugin.Transformer)
		if !ok || !p.AppliesTo(file) {
			continue
		}
		next, err := tp.Transform(ctx, file, out)
		if err != nil {
			return transform.Analysis{}, fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		out = next
	}
	return out, nil
}

// resolvePhase discovers the file's module specifiers, resolves them
// concurrently, and rewrites the resolved ones. Resolution is best effort:
// an unresolved specifier stays exactly as authored.
func (e *Engine) resolvePhase(ctx context.Context, file *transform.SourceFile, in transform.Analysis) transform.Analysis {
	prog := in.AST
	if prog == nil {
		// No plugin produced a tree; the file may still carry module
		// declarations, so scan the current text directly.
		prog = transform.Parse(in.Code)
	}
	specifiers := prog.Specifiers()
	if len(specifiers) == 0 {
		return in
	}

	resolvers := e.resolversFor(file)
	if len(resolvers) == 0 {
		return in
	}

	// One attempt per distinct specifier, all in flight at once. The
	// rewrite below must not start until every attempt has settled.
	resolved := make(map[string]string, len(specifiers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, spec := range specifiers {
		wg.Add(1)
		go func(spec string) {
			defer wg.Done()
			if target := e.resolveOne(ctx, resolvers, file.URL, spec); target != "" {
				mu.Lock()
				resolved[spec] = target + "?" + e.markerParam()
				mu.Unlock()
			}
		}(spec)
	}
	wg.Wait()

	if len(resolved) == 0 {
		return in
	}
	code, n := transform.RewriteSpecifiers(in.Code, resolved)
	if n == 0 {
		return in
	}
	return transform.Analysis{
		Code:      code,
		AST:       transform.Parse(code),
		SourceMap: in.SourceMap,
	}
}

// resolveOne tries each resolve-capable plugin in configured order; the
// first non-empty answer wins. A resolver error is logged and treated as
// "unresolved", never as a failure of the run.
func (e *Engine) resolveOne(ctx context.Context, resolvers []plugin.Resolver, referrer, specifier string) string {
	for _, r := range resolvers {
		target, err := r.Resolve(ctx, referrer, specifier)
		if err != nil {
			log.Printf("resolve %q via %s: %v", specifier, r.Name(), err)
			continue
		}
		if target != "" {
			return target
		}
	}
	return ""
}

func (e *Engine) resolversFor(file *transform.SourceFile) []plugin.Resolver {
	var out []plugin.Resolver
	for _, p := range e.plugins {
		if r, ok := p.(plugin.Resolver); ok && p.AppliesTo(file) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) markerParam() string {
	if e.version != "" {
		return e.marker + "=" + e.version
	}
	return e.marker
}

// finalize renders the artifact: the transformed code with the response
// content type forced to a script-executable type and the upstream change
// token preserved verbatim for the next validation.
func (e *Engine) finalize(file *transform.SourceFile, analysis transform.Analysis) Artifact {
	headers := map[string]string{
		"Content-Type": "application/javascript",
	}
	if etag := file.Header("Etag"); etag != "" {
		headers["Etag"] = etag
	}
	return Artifact{Body: []byte(analysis.Code), Headers: headers}
}
