// Package transform defines the data model of a pipeline run and the
// contract of the external code transformer. The transformer itself (a real
// parser/compiler) is a collaborator behind the Transformer interface; this
// package ships only a passthrough implementation that recognizes top-level
// module declarations, which is all the resolve phase needs.
package transform

import (
	"context"

	"unchained/internal/transform/ast"
)

// SourceFile is the untransformed input to one pipeline run. It is built
// once from the upstream response and not modified afterwards.
type SourceFile struct {
	URL      string
	MIMEType string
	Content  []byte
	Headers  map[string]string
}

// Header returns a header value, or "" when absent.
func (f *SourceFile) Header(name string) string {
	if f == nil || f.Headers == nil {
		return ""
	}
	return f.Headers[name]
}

// Analysis is the running result threaded through the pipeline stages. Each
// stage consumes the previous Analysis and returns a new one; stages must
// not mutate the one they were handed.
type Analysis struct {
	Code      string
	AST       *ast.Program
	SourceMap []byte
}

// Options configures one Transform call.
type Options struct {
	Filename string
	Presets  []string
}

// Result is the output of one Transform call.
type Result struct {
	Code      string
	AST       *ast.Program
	SourceMap []byte
}

// Transformer turns source text into transformed source text plus a module
// tree. Implementations are pure with respect to files and network: they see
// only the text they are given.
type Transformer interface {
	Transform(ctx context.Context, source string, opts Options) (Result, error)
}

// Passthrough is a Transformer that leaves the code unchanged and attaches
// the module tree recognized by Parse. It stands in for a real compiler in
// setups where no syntax needs lowering.
type Passthrough struct{}

func (Passthrough) Transform(_ context.Context, source string, _ Options) (Result, error) {
	return Result{Code: source, AST: Parse(source)}, nil
}
