package plugins

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"unchained/internal/plugin"
	"unchained/internal/transform"
)

var envRefPattern = regexp.MustCompile(`\bprocess\.env\.([A-Za-z_$][A-Za-z0-9_$]*)`)

// Env inlines process.env.NAME references as string literals so code written
// for a bundler runs in the browser. Unknown names become undefined.
type Env struct {
	matcher plugin.TypeMatcher
	vars    map[string]string
}

// NewEnv builds the plugin; when vars is nil the process environment is
// captured once at construction.
func NewEnv(vars map[string]string) *Env {
	if vars == nil {
		vars = map[string]string{}
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i > 0 {
				vars[kv[:i]] = kv[i+1:]
			}
		}
	}
	return &Env{
		matcher: plugin.TypeMatcher{
			Content: func(file *transform.SourceFile) bool {
				return strings.Contains(string(file.Content), "process.env")
			},
		},
		vars: vars,
	}
}

func (p *Env) Name() string { return "env" }

func (p *Env) AppliesTo(file *transform.SourceFile) bool { return p.matcher.Matches(file) }

func (p *Env) Transform(_ context.Context, _ *transform.SourceFile, in transform.Analysis) (transform.Analysis, error) {
	code := envRefPattern.ReplaceAllStringFunc(in.Code, func(ref string) string {
		name := strings.TrimPrefix(ref, "process.env.")
		value, ok := p.vars[name]
		if !ok {
			return "undefined"
		}
		quoted, err := json.Marshal(value)
		if err != nil {
			return "undefined"
		}
		return string(quoted)
	})
	if code == in.Code {
		return in, nil
	}
	// The text changed under any tree a previous stage built; drop it so a
	// later stage re-derives the structure.
	return transform.Analysis{Code: code, SourceMap: in.SourceMap}, nil
}
