package transform

import (
	"context"
	"reflect"
	"testing"

	"unchained/internal/transform/ast"
)

func TestParseCollectsTopLevelDeclarations(t *testing.T) {
	code := `import React from "react";
import { useState } from 'react';
import "./side-effect.js";
export { helper } from "./helpers";
export * from "../lib/all";
export default function main() {
  // import "not-real" inside a comment
  const s = "import 'also-not-real'";
}
`
	prog := Parse(code)
	got := prog.Specifiers()
	want := []string{"react", "./side-effect.js", "./helpers", "../lib/all"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("specifiers = %v, want %v", got, want)
	}
	if !prog.ImportsOrExports() {
		t.Fatalf("ImportsOrExports = false, want true")
	}
}

func TestParseDeduplicatesSpecifiers(t *testing.T) {
	code := `import a from "dep";
import { b } from "dep";
export { c } from "dep";
`
	got := Parse(code).Specifiers()
	if len(got) != 1 || got[0] != "dep" {
		t.Fatalf("specifiers = %v, want [dep]", got)
	}
}

func TestParseIgnoresNonDeclarations(t *testing.T) {
	cases := map[string]string{
		"dynamic import":  `const m = import("./lazy.js");`,
		"import meta":     `console.log(import.meta.url);`,
		"nested import":   `function f() { return import("./x"); }`,
		"template string": "const s = `import x from \"y\"`;",
		"export default":  `export default { a: 1 };`,
		"export const":    `export const x = 1;`,
	}
	for name, code := range cases {
		if specs := Parse(code).Specifiers(); len(specs) != 0 {
			t.Errorf("%s: specifiers = %v, want none", name, specs)
		}
	}
}

func TestParseSkipsRegexLiterals(t *testing.T) {
	cases := map[string]string{
		"quote in regex": `const re = /"/;
import a from "x";`,
		"regex after return": `function f(s) { return /["')]/.test(s); }
import a from "x";`,
		"regex with flags": `const re = /"]/gi;
import a from "x";`,
		"division stays division": `const half = total / 2;
import a from "x";`,
		"division after paren": `const r = (a + b) / c;
import a from "x";`,
	}
	for name, code := range cases {
		got := Parse(code).Specifiers()
		if len(got) != 1 || got[0] != "x" {
			t.Errorf("%s: specifiers = %v, want [x]", name, got)
		}
	}
}

func TestParseLocalExportDoesNotStealNextClause(t *testing.T) {
	code := `export { x };
import a from "y";
`
	prog := Parse(code)
	got := prog.Specifiers()
	if len(got) != 1 || got[0] != "y" {
		t.Fatalf("specifiers = %v, want [y]", got)
	}
	if len(prog.Body) != 1 || prog.Body[0].Kind != ast.KindImport {
		t.Fatalf("body = %+v, want a single import declaration", prog.Body)
	}
}

func TestParseStatementKinds(t *testing.T) {
	code := `import a from "x";
export { b } from "y";
export * from "z";
`
	prog := Parse(code)
	if len(prog.Body) != 3 {
		t.Fatalf("body length = %d, want 3", len(prog.Body))
	}
	wantKinds := []ast.Kind{ast.KindImport, ast.KindExportNamed, ast.KindExportAll}
	for i, stmt := range prog.Body {
		if stmt.Kind != wantKinds[i] {
			t.Errorf("body[%d].Kind = %s, want %s", i, stmt.Kind, wantKinds[i])
		}
	}
}

func TestParseRecordsSpecifierOffsets(t *testing.T) {
	code := `import a from "dep";`
	prog := Parse(code)
	if len(prog.Body) != 1 {
		t.Fatalf("body length = %d, want 1", len(prog.Body))
	}
	stmt := prog.Body[0]
	if code[stmt.SourceStart:stmt.SourceEnd] != "dep" {
		t.Fatalf("offsets select %q, want %q", code[stmt.SourceStart:stmt.SourceEnd], "dep")
	}
}

func TestParseMultilineImport(t *testing.T) {
	code := `import {
  one,
  two,
} from "./many";
`
	got := Parse(code).Specifiers()
	if len(got) != 1 || got[0] != "./many" {
		t.Fatalf("specifiers = %v, want [./many]", got)
	}
}

func TestRewriteSpecifiers(t *testing.T) {
	code := `import a from "dep";
import b from "./local";
import c from "untouched";
`
	out, n := RewriteSpecifiers(code, map[string]string{
		"dep":     "/node_modules/dep/index.js?unchained",
		"./local": "/src/local.js?unchained",
	})
	if n != 2 {
		t.Fatalf("rewrites = %d, want 2", n)
	}
	want := `import a from "/node_modules/dep/index.js?unchained";
import b from "/src/local.js?unchained";
import c from "untouched";
`
	if out != want {
		t.Fatalf("rewritten code:\n%s\nwant:\n%s", out, want)
	}
}

func TestRewriteSpecifiersNoMatches(t *testing.T) {
	code := `import a from "dep";`
	out, n := RewriteSpecifiers(code, map[string]string{"other": "/x.js"})
	if n != 0 || out != code {
		t.Fatalf("expected untouched code, got %d rewrites: %s", n, out)
	}
}

func TestPassthroughTransformer(t *testing.T) {
	code := `import a from "dep";`
	res, err := Passthrough{}.Transform(context.Background(), code, Options{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if res.Code != code {
		t.Fatalf("code changed: %q", res.Code)
	}
	if res.AST == nil || !res.AST.ImportsOrExports() {
		t.Fatalf("expected module tree with declarations")
	}
}
