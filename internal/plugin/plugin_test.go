package plugin

import (
	"strings"
	"testing"

	"unchained/internal/transform"
)

type namedPlugin struct{ name string }

func (p *namedPlugin) Name() string                         { return p.name }
func (p *namedPlugin) AppliesTo(*transform.SourceFile) bool { return true }

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", func(Options) (Plugin, error) { return &namedPlugin{name: "a"}, nil })

	ctor, ok := reg.Lookup("a")
	if !ok {
		t.Fatalf("lookup a failed")
	}
	p, err := ctor(nil)
	if err != nil || p.Name() != "a" {
		t.Fatalf("constructed %v, %v", p, err)
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatalf("lookup missing succeeded")
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register("p", func(Options) (Plugin, error) { return &namedPlugin{name: "first"}, nil })
	reg.Register("p", func(Options) (Plugin, error) { return &namedPlugin{name: "second"}, nil })

	ctor, _ := reg.Lookup("p")
	p, _ := ctor(nil)
	if p.Name() != "second" {
		t.Fatalf("got %s, want second", p.Name())
	}
}

func TestBuildResolvesAllSpecForms(t *testing.T) {
	reg := NewRegistry()
	var gotOpts Options
	reg.Register("named", func(opts Options) (Plugin, error) {
		gotOpts = opts
		return &namedPlugin{name: "named"}, nil
	})

	instance := &namedPlugin{name: "instance"}
	specs := []Spec{
		ByName("named"),
		WithOptions("named", Options{"k": "v"}),
		FromInstance(instance),
		FromConstructor(func(Options) (Plugin, error) { return &namedPlugin{name: "ctor"}, nil }),
	}
	plugins, err := Build(reg, specs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plugins) != 4 {
		t.Fatalf("built %d plugins, want 4", len(plugins))
	}
	if plugins[2] != Plugin(instance) {
		t.Fatalf("instance spec did not pass the instance through")
	}
	if gotOpts["k"] != "v" {
		t.Fatalf("options not delivered: %v", gotOpts)
	}
}

func TestBuildFailsOnUnknownName(t *testing.T) {
	_, err := Build(NewRegistry(), []Spec{ByName("nope")})
	if err == nil {
		t.Fatalf("expected configuration error")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("error does not name the plugin: %v", err)
	}
}

func TestBuildFailsOnEmptySpec(t *testing.T) {
	if _, err := Build(NewRegistry(), []Spec{{}}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestTypeMatcherDefaultsToJavaScript(t *testing.T) {
	m := TypeMatcher{}
	js := &transform.SourceFile{MIMEType: "application/javascript; charset=utf-8"}
	if !m.Matches(js) {
		t.Fatalf("javascript file did not match")
	}
	css := &transform.SourceFile{MIMEType: "text/css"}
	if m.Matches(css) {
		t.Fatalf("css matched javascript matcher")
	}
}

func TestTypeMatcherContentPredicate(t *testing.T) {
	m := TypeMatcher{
		Content: func(f *transform.SourceFile) bool {
			return strings.Contains(string(f.Content), "require(")
		},
	}
	with := &transform.SourceFile{MIMEType: "text/javascript", Content: []byte(`const x = require("x");`)}
	without := &transform.SourceFile{MIMEType: "text/javascript", Content: []byte(`const x = 1;`)}
	if !m.Matches(with) || m.Matches(without) {
		t.Fatalf("content predicate not applied")
	}
}
