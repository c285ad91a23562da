// Package resolver implements browser-side emulation of Node-style module
// resolution: relative specifiers resolve lexically against the referrer,
// bare specifiers resolve through the package's manifest under the modules
// directory, and every candidate is confirmed with a header-only existence
// probe before it is accepted.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"unchained/internal/upstream"
)

const (
	defaultModulesDir = "/node_modules"
	defaultExtension  = ".js"
	defaultEntryFile  = "index.js"
	manifestFile      = "package.json"
	manifestCacheSize = 512
)

// packageManifest is the slice of package.json this resolver reads.
type packageManifest struct {
	Module string `json:"module"`
	Main   string `json:"main"`
}

// NodeResolver resolves specifiers against an upstream source.
//
// Successful resolutions are memoized per specifier text for the lifetime
// of the process, with no per-referrer dimension: the same specifier always
// resolves the same way no matter which file imported it. That is a
// deliberate simplification carried over from the origin behavior, not an
// oversight; see DESIGN.md.
type NodeResolver struct {
	source     upstream.Source
	modulesDir string

	mu   sync.RWMutex
	memo map[string]string

	manifests *lru.Cache[string, packageManifest]
}

func New(source upstream.Source) (*NodeResolver, error) {
	if source == nil {
		return nil, fmt.Errorf("upstream source is required")
	}
	manifests, err := lru.New[string, packageManifest](manifestCacheSize)
	if err != nil {
		return nil, err
	}
	return &NodeResolver{
		source:     source,
		modulesDir: defaultModulesDir,
		memo:       make(map[string]string),
		manifests:  manifests,
	}, nil
}

// Resolve maps (referrer, specifier) to a resolvable path, or "" when the
// specifier cannot be resolved. It never returns an error for a missing
// resource; errors are reserved for internal misuse.
func (r *NodeResolver) Resolve(ctx context.Context, referrer, specifier string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("resolver is nil")
	}
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return "", nil
	}

	r.mu.RLock()
	cached, ok := r.memo[specifier]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var resolved string
	if strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		resolved = r.resolveRelative(ctx, referrer, specifier)
	} else {
		resolved = r.resolvePackage(ctx, specifier)
	}
	if resolved == "" {
		return "", nil
	}

	// Concurrent writes for the same key are idempotent: resolution is a
	// pure function of the specifier here, so any writer may win.
	r.mu.Lock()
	r.memo[specifier] = resolved
	r.mu.Unlock()
	return resolved, nil
}

func (r *NodeResolver) resolveRelative(ctx context.Context, referrer, specifier string) string {
	var candidate string
	if strings.HasPrefix(specifier, "/") {
		candidate = path.Clean(specifier)
	} else {
		candidate = path.Clean(path.Join(path.Dir(referrer), specifier))
	}
	return r.confirm(ctx, candidate)
}

func (r *NodeResolver) resolvePackage(ctx context.Context, specifier string) string {
	pkg, inner := SplitPackage(specifier)
	if pkg == "" {
		return ""
	}
	if inner != "" {
		return r.confirm(ctx, path.Join(r.modulesDir, pkg, inner))
	}
	entry := r.packageEntry(ctx, pkg)
	return r.confirm(ctx, path.Join(r.modulesDir, pkg, entry))
}

// packageEntry reads the package manifest and picks its declared entry,
// preferring the module field over main, falling back to the conventional
// default.
func (r *NodeResolver) packageEntry(ctx context.Context, pkg string) string {
	if m, ok := r.manifests.Get(pkg); ok {
		return manifestEntry(m)
	}
	file, err := r.source.Fetch(ctx, path.Join(r.modulesDir, pkg, manifestFile))
	if err != nil {
		return defaultEntryFile
	}
	var m packageManifest
	if err := json.Unmarshal(file.Content, &m); err != nil {
		return defaultEntryFile
	}
	r.manifests.Add(pkg, m)
	return manifestEntry(m)
}

func manifestEntry(m packageManifest) string {
	if e := strings.TrimSpace(m.Module); e != "" {
		return e
	}
	if e := strings.TrimSpace(m.Main); e != "" {
		return e
	}
	return defaultEntryFile
}

// confirm runs the existence probe, inferring the default extension first
// and falling back to the bare candidate. Two states, no recursion.
func (r *NodeResolver) confirm(ctx context.Context, candidate string) string {
	withExt := candidate
	inferred := false
	if path.Ext(candidate) == "" {
		withExt = candidate + defaultExtension
		inferred = true
	}
	if r.exists(ctx, withExt) {
		return withExt
	}
	if inferred && r.exists(ctx, candidate) {
		return candidate
	}
	return ""
}

// exists accepts a probe only when it reports both success and a content
// type, matching the header-only check contract.
func (r *NodeResolver) exists(ctx context.Context, candidate string) bool {
	res, err := r.source.Probe(ctx, candidate)
	if err != nil {
		return false
	}
	return res.OK && res.ContentType != ""
}

// SplitPackage splits a bare specifier into package name and inner path.
// A leading @scope/ segment belongs to the package name.
func SplitPackage(specifier string) (pkg, inner string) {
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 {
			return "", ""
		}
		pkg = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			inner = parts[2]
		}
		return pkg, inner
	}
	pkg = parts[0]
	if len(parts) > 1 {
		inner = strings.Join(parts[1:], "/")
	}
	return pkg, inner
}
