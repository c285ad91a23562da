// Package ast holds the module-level syntax tree threaded through the
// transform pipeline. It models only what the pipeline needs: the ordered
// top-level statements of a file and, for import/export declarations, the
// literal module specifier and where it sits in the source text. Anything
// below the top level is opaque.
package ast

type Kind string

const (
	KindImport      Kind = "ImportDeclaration"
	KindExportNamed Kind = "ExportNamedDeclaration"
	KindExportAll   Kind = "ExportAllDeclaration"
)

// Stmt is one top-level statement. Source is the literal specifier text for
// declarations of the form `import ... from "x"` / `export ... from "x"`;
// it is empty for everything else. SourceStart/SourceEnd are byte offsets of
// the specifier contents (inside the quotes) in the code the tree was built
// from.
type Stmt struct {
	Kind        Kind
	Source      string
	SourceStart int
	SourceEnd   int
}

// HasSource reports whether the statement references another module.
func (s Stmt) HasSource() bool {
	return s.Source != "" && (s.Kind == KindImport || s.Kind == KindExportNamed || s.Kind == KindExportAll)
}

// Program is the top-level statement list of one file.
type Program struct {
	Body []Stmt
}

// ImportsOrExports reports whether the program has any top-level declaration
// that references another module.
func (p *Program) ImportsOrExports() bool {
	if p == nil {
		return false
	}
	for _, s := range p.Body {
		if s.HasSource() {
			return true
		}
	}
	return false
}

// Specifiers returns the distinct module specifiers in declaration order.
func (p *Program) Specifiers() []string {
	if p == nil {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(p.Body))
	for _, s := range p.Body {
		if !s.HasSource() {
			continue
		}
		if _, ok := seen[s.Source]; ok {
			continue
		}
		seen[s.Source] = struct{}{}
		out = append(out, s.Source)
	}
	return out
}
