package plugins

import (
	"context"
	"strings"

	"unchained/internal/plugin"
	"unchained/internal/transform"
)

// Babel is the general code-transformer plugin: it hands the current code
// to the external transformer and adopts its output wholesale, including
// the module tree later phases scan.
type Babel struct {
	matcher plugin.TypeMatcher
	tx      transform.Transformer
	presets []string
}

func NewBabel(tx transform.Transformer, presets []string) *Babel {
	return &Babel{tx: tx, presets: presets}
}

func (p *Babel) Name() string { return "babel" }

func (p *Babel) AppliesTo(file *transform.SourceFile) bool { return p.matcher.Matches(file) }

func (p *Babel) Transform(ctx context.Context, file *transform.SourceFile, in transform.Analysis) (transform.Analysis, error) {
	res, err := p.tx.Transform(ctx, in.Code, transform.Options{
		Filename: file.URL,
		Presets:  p.presets,
	})
	if err != nil {
		return transform.Analysis{}, err
	}
	return transform.Analysis{Code: res.Code, AST: res.AST, SourceMap: res.SourceMap}, nil
}

// JSX lowers extension syntax ahead of the general transformer so that
// plugin sees extension-free code. Its position before babel in the
// configured order is part of the contract.
type JSX struct {
	matcher plugin.TypeMatcher
	tx      transform.Transformer
}

func NewJSX(tx transform.Transformer) *JSX {
	return &JSX{
		matcher: plugin.TypeMatcher{
			Content: func(file *transform.SourceFile) bool {
				return strings.HasSuffix(file.URL, ".jsx") || looksLikeJSX(string(file.Content))
			},
		},
		tx: tx,
	}
}

func (p *JSX) Name() string { return "jsx" }

func (p *JSX) AppliesTo(file *transform.SourceFile) bool { return p.matcher.Matches(file) }

func (p *JSX) Transform(ctx context.Context, file *transform.SourceFile, in transform.Analysis) (transform.Analysis, error) {
	res, err := p.tx.Transform(ctx, in.Code, transform.Options{
		Filename: file.URL,
		Presets:  []string{"jsx"},
	})
	if err != nil {
		return transform.Analysis{}, err
	}
	return transform.Analysis{Code: res.Code, AST: res.AST, SourceMap: res.SourceMap}, nil
}

// looksLikeJSX is a cheap tag-shaped heuristic, the applicability test for
// files served with a generic script type.
func looksLikeJSX(code string) bool {
	for i := 0; i+1 < len(code); i++ {
		if code[i] != '<' {
			continue
		}
		c := code[i+1]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			return true
		}
	}
	return false
}
