package plugins

import (
	"context"

	"unchained/internal/plugin"
	"unchained/internal/resolver"
	"unchained/internal/transform"
)

// Resolve exposes the node_modules-emulating resolver as a pipeline plugin.
type Resolve struct {
	matcher plugin.TypeMatcher
	r       *resolver.NodeResolver
}

func NewResolve(r *resolver.NodeResolver) *Resolve {
	return &Resolve{r: r}
}

func (p *Resolve) Name() string { return "resolve" }

func (p *Resolve) AppliesTo(file *transform.SourceFile) bool { return p.matcher.Matches(file) }

func (p *Resolve) Resolve(ctx context.Context, referrer, specifier string) (string, error) {
	return p.r.Resolve(ctx, referrer, specifier)
}
