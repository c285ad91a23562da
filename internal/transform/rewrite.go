package transform

import "sort"

// RewriteSpecifiers returns code with every top-level declaration whose
// specifier has an entry in repl replaced by that entry. Specifiers without
// an entry are left byte-for-byte untouched. The returned program reflects
// the rewritten text.
func RewriteSpecifiers(code string, repl map[string]string) (string, int) {
	if len(repl) == 0 {
		return code, 0
	}
	prog := Parse(code)
	type splice struct {
		start, end int
		text       string
	}
	var splices []splice
	for _, stmt := range prog.Body {
		if !stmt.HasSource() {
			continue
		}
		next, ok := repl[stmt.Source]
		if !ok || next == stmt.Source {
			continue
		}
		splices = append(splices, splice{start: stmt.SourceStart, end: stmt.SourceEnd, text: next})
	}
	if len(splices) == 0 {
		return code, 0
	}
	// Apply back to front so earlier offsets stay valid.
	sort.Slice(splices, func(i, j int) bool { return splices[i].start > splices[j].start })
	out := code
	for _, sp := range splices {
		out = out[:sp.start] + sp.text + out[sp.end:]
	}
	return out, len(splices)
}
