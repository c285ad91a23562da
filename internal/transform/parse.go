package transform

import (
	"strings"

	"unchained/internal/transform/ast"
)

// Parse scans source text for top-level import/export declarations and
// returns them as a Program. Only declarations that reference another module
// (or a bare `import "x"`) are materialized; other statements are skipped.
// The scanner understands comments, string literals, template literals and
// bracket nesting, so declarations inside function bodies or strings are not
// picked up. It is not a JavaScript parser and does not validate syntax.
func Parse(code string) *ast.Program {
	s := &scanner{src: code}
	prog := &ast.Program{}
	for !s.done() {
		s.skipTrivia()
		if s.done() {
			break
		}
		if s.depth == 0 {
			if word, at := s.peekWord(); at {
				switch word {
				case "import":
					if stmt, ok := s.readImport(); ok {
						prog.Body = append(prog.Body, stmt)
						continue
					}
				case "export":
					if stmt, ok := s.readExport(); ok {
						prog.Body = append(prog.Body, stmt)
						continue
					}
				}
			}
		}
		s.advance()
	}
	return prog
}

type scanner struct {
	src   string
	pos   int
	depth int

	// lastSig is the final byte of the last significant token and
	// lastWord the token itself when it was a word; together they decide
	// whether a slash starts a regex literal or a division.
	lastSig  byte
	lastWord string
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

// advance consumes one token-ish unit: a string, a comment, a regex
// literal, a bracket (adjusting depth), or a single byte.
func (s *scanner) advance() {
	c := s.src[s.pos]
	switch c {
	case '\'', '"':
		s.skipString(c)
		s.noteValue()
	case '`':
		s.skipTemplate()
		s.noteValue()
	case '/':
		switch {
		case s.skipComment():
		case s.regexAllowed():
			s.skipRegex()
			s.noteValue()
		default:
			s.pos++
			s.note('/')
		}
	case '{', '(', '[':
		s.depth++
		s.pos++
		s.note(c)
	case '}', ')', ']':
		if s.depth > 0 {
			s.depth--
		}
		s.pos++
		s.note(c)
	default:
		if isWordByte(c) {
			start := s.pos
			for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
				s.pos++
			}
			s.lastWord = s.src[start:s.pos]
			s.lastSig = s.src[s.pos-1]
			return
		}
		s.pos++
		s.note(c)
	}
}

func (s *scanner) note(c byte) {
	s.lastSig = c
	s.lastWord = ""
}

// noteValue records that the last token was a complete value, after which
// a slash is division.
func (s *scanner) noteValue() {
	s.note('"')
}

// Keywords after which a slash starts a regex literal even though the
// preceding byte is a word byte.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "case": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "do": true, "else": true,
	"yield": true, "await": true, "instanceof": true,
}

// regexAllowed reports whether a slash at the current position starts a
// regex literal, judged by the preceding significant token: after a value
// (identifier, literal, closing paren or bracket) it is division,
// everywhere else a regex.
func (s *scanner) regexAllowed() bool {
	if s.lastSig == 0 {
		return true
	}
	if isWordByte(s.lastSig) {
		return regexKeywords[s.lastWord]
	}
	switch s.lastSig {
	case ')', ']', '"':
		return false
	}
	return true
}

// skipRegex consumes a regex literal: the body with escapes and character
// classes, then the flag letters. A newline before the closing slash means
// the slash was not a regex after all; scanning resumes just past it.
func (s *scanner) skipRegex() {
	start := s.pos
	s.pos++
	inClass := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
		case c == '\n':
			s.pos = start + 1
			return
		case c == '[':
			inClass = true
			s.pos++
		case c == ']':
			inClass = false
			s.pos++
		case c == '/' && !inClass:
			s.pos++
			for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
				s.pos++
			}
			return
		default:
			s.pos++
		}
	}
}

func (s *scanner) skipTrivia() {
	for !s.done() {
		c := s.src[s.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			s.pos++
			continue
		}
		if c == ';' {
			s.pos++
			s.note(';')
			continue
		}
		if c == '/' && s.skipComment() {
			continue
		}
		return
	}
}

// skipSpacesAndComments is skipTrivia without the semicolon: used when a
// semicolon must remain visible as a statement terminator.
func (s *scanner) skipSpacesAndComments() {
	for !s.done() {
		c := s.src[s.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			s.pos++
			continue
		}
		if c == '/' && s.skipComment() {
			continue
		}
		return
	}
}

func (s *scanner) skipComment() bool {
	if s.pos+1 >= len(s.src) {
		return false
	}
	switch s.src[s.pos+1] {
	case '/':
		end := strings.IndexByte(s.src[s.pos:], '\n')
		if end < 0 {
			s.pos = len(s.src)
		} else {
			s.pos += end + 1
		}
		return true
	case '*':
		end := strings.Index(s.src[s.pos+2:], "*/")
		if end < 0 {
			s.pos = len(s.src)
		} else {
			s.pos += end + 4
		}
		return true
	}
	return false
}

func (s *scanner) skipString(quote byte) {
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.pos += 2
			continue
		}
		s.pos++
		if c == quote {
			return
		}
	}
}

// skipTemplate consumes a template literal including nested ${} expressions.
func (s *scanner) skipTemplate() {
	s.pos++
	braces := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
		case c == '`' && braces == 0:
			s.pos++
			return
		case c == '$' && braces == 0 && s.pos+1 < len(s.src) && s.src[s.pos+1] == '{':
			braces++
			s.pos += 2
		case c == '{' && braces > 0:
			braces++
			s.pos++
		case c == '}' && braces > 0:
			braces--
			s.pos++
		default:
			s.pos++
		}
	}
}

func (s *scanner) peekWord() (string, bool) {
	if s.done() || !isWordStart(s.src[s.pos]) {
		return "", false
	}
	if s.pos > 0 && (isWordByte(s.src[s.pos-1]) || s.src[s.pos-1] == '.') {
		return "", false
	}
	end := s.pos
	for end < len(s.src) && isWordByte(s.src[end]) {
		end++
	}
	return s.src[s.pos:end], true
}

// readImport consumes an import declaration starting at "import" and returns
// it when it carries a module specifier. Dynamic `import(...)` and
// `import.meta` are expressions, not declarations, and are skipped.
func (s *scanner) readImport() (ast.Stmt, bool) {
	start := s.pos
	s.pos += len("import")
	s.skipTrivia()
	if s.done() {
		return ast.Stmt{}, false
	}
	switch s.src[s.pos] {
	case '(', '.':
		s.pos = start + len("import")
		return ast.Stmt{}, false
	case '\'', '"':
		// bare import "x"
		lit, ok := s.readStringLiteral()
		if !ok {
			return ast.Stmt{}, false
		}
		lit.Kind = ast.KindImport
		return lit, true
	}
	if lit, ok := s.scanForFromClause(); ok {
		lit.Kind = ast.KindImport
		return lit, true
	}
	return ast.Stmt{}, false
}

// readExport consumes an export declaration starting at "export"; only
// re-export forms (`export ... from "x"`) produce a statement with a source.
func (s *scanner) readExport() (ast.Stmt, bool) {
	s.pos += len("export")
	s.skipTrivia()
	if s.done() {
		return ast.Stmt{}, false
	}
	switch s.src[s.pos] {
	case '*':
		s.pos++
		if lit, ok := s.scanForFromClause(); ok {
			lit.Kind = ast.KindExportAll
			return lit, true
		}
		return ast.Stmt{}, false
	case '{':
		s.skipBalanced('{', '}')
		if lit, ok := s.scanForFromClause(); ok {
			lit.Kind = ast.KindExportNamed
			return lit, true
		}
		return ast.Stmt{}, false
	}
	return ast.Stmt{}, false
}

// scanForFromClause looks ahead for `from "x"` before the statement ends.
// A semicolon terminates the declaration; a clause-less statement yields
// no source.
func (s *scanner) scanForFromClause() (ast.Stmt, bool) {
	for !s.done() {
		s.skipSpacesAndComments()
		if s.done() {
			return ast.Stmt{}, false
		}
		c := s.src[s.pos]
		if c == ';' {
			return ast.Stmt{}, false
		}
		if word, at := s.peekWord(); at {
			s.pos += len(word)
			if word == "from" {
				s.skipSpacesAndComments()
				return s.readStringLiteral()
			}
			continue
		}
		switch c {
		case '{':
			s.skipBalanced('{', '}')
		case ',', '*':
			s.pos++
		default:
			return ast.Stmt{}, false
		}
	}
	return ast.Stmt{}, false
}

func (s *scanner) readStringLiteral() (ast.Stmt, bool) {
	if s.done() {
		return ast.Stmt{}, false
	}
	quote := s.src[s.pos]
	if quote != '\'' && quote != '"' {
		return ast.Stmt{}, false
	}
	contentStart := s.pos + 1
	s.skipString(quote)
	contentEnd := s.pos - 1
	if contentEnd < contentStart {
		return ast.Stmt{}, false
	}
	return ast.Stmt{
		Source:      s.src[contentStart:contentEnd],
		SourceStart: contentStart,
		SourceEnd:   contentEnd,
	}, true
}

func (s *scanner) skipBalanced(open, close byte) {
	if s.done() || s.src[s.pos] != open {
		return
	}
	depth := 0
	for !s.done() {
		c := s.src[s.pos]
		switch c {
		case '\'', '"':
			s.skipString(c)
			continue
		case '`':
			s.skipTemplate()
			continue
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				s.pos++
				return
			}
		case '/':
			if s.skipComment() {
				continue
			}
		}
		s.pos++
	}
}

func isWordStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}
