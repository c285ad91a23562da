// Package plugin defines the contract pipeline plugins implement and the
// process-wide registry they are constructed from.
package plugin

import (
	"context"
	"strings"

	"unchained/internal/transform"
)

// Plugin is a named unit selected per file by MIME-type applicability.
// Capabilities are optional and discovered by interface assertion: a plugin
// may implement Transformer, Resolver, or both.
type Plugin interface {
	Name() string
	AppliesTo(file *transform.SourceFile) bool
}

// Transformer is the transform capability: map one Analysis to the next.
// Implementations must treat the input as read-only.
type Transformer interface {
	Plugin
	Transform(ctx context.Context, file *transform.SourceFile, in transform.Analysis) (transform.Analysis, error)
}

// Resolver is the resolve capability: map (referrer, specifier) to a
// resolvable path. An empty result means "unresolved"; an error is treated
// the same way by the engine (resolution is best effort, never fatal).
type Resolver interface {
	Plugin
	Resolve(ctx context.Context, referrer, specifier string) (string, error)
}

// JavaScriptTypes are the MIME-type prefixes a plugin applies to unless it
// declares its own.
var JavaScriptTypes = []string{"application/javascript", "text/javascript", "application/x-javascript"}

// TypeMatcher implements the applicability rule: at least one declared
// prefix must prefix the file's MIME type, and the optional content
// predicate must agree.
type TypeMatcher struct {
	Prefixes []string
	Content  func(file *transform.SourceFile) bool
}

func (m TypeMatcher) Matches(file *transform.SourceFile) bool {
	if file == nil {
		return false
	}
	prefixes := m.Prefixes
	if len(prefixes) == 0 {
		prefixes = JavaScriptTypes
	}
	mime := strings.TrimSpace(file.MIMEType)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	matched := false
	for _, p := range prefixes {
		if strings.HasPrefix(mime, p) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if m.Content != nil {
		return m.Content(file)
	}
	return true
}
