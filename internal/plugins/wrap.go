package plugins

import (
	"context"
	"encoding/json"
	"strings"

	"unchained/internal/plugin"
	"unchained/internal/transform"
)

// JSONModule wraps a JSON document as an ES module exporting it as the
// default binding. First transform wins: once some earlier plugin has
// produced a tree, the payload is no longer the raw document and the
// analysis passes through unchanged.
type JSONModule struct {
	matcher plugin.TypeMatcher
}

func NewJSON() *JSONModule {
	return &JSONModule{matcher: plugin.TypeMatcher{Prefixes: []string{"application/json"}}}
}

func (p *JSONModule) Name() string { return "json" }

func (p *JSONModule) AppliesTo(file *transform.SourceFile) bool { return p.matcher.Matches(file) }

func (p *JSONModule) Transform(_ context.Context, _ *transform.SourceFile, in transform.Analysis) (transform.Analysis, error) {
	if in.AST != nil {
		return in, nil
	}
	code := "export default " + strings.TrimSpace(in.Code) + ";\n"
	return transform.Analysis{Code: code, AST: transform.Parse(code)}, nil
}

// TextModule wraps plain text as an ES module exporting the text as a
// string. Same first-transform-wins rule as JSONModule.
type TextModule struct {
	matcher plugin.TypeMatcher
}

func NewText() *TextModule {
	return &TextModule{matcher: plugin.TypeMatcher{Prefixes: []string{"text/plain", "text/css"}}}
}

func (p *TextModule) Name() string { return "text" }

func (p *TextModule) AppliesTo(file *transform.SourceFile) bool { return p.matcher.Matches(file) }

func (p *TextModule) Transform(_ context.Context, _ *transform.SourceFile, in transform.Analysis) (transform.Analysis, error) {
	if in.AST != nil {
		return in, nil
	}
	quoted, err := json.Marshal(in.Code)
	if err != nil {
		return transform.Analysis{}, err
	}
	code := "export default " + string(quoted) + ";\n"
	return transform.Analysis{Code: code, AST: transform.Parse(code)}, nil
}
