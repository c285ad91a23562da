package plugin

import "fmt"

// Spec is one entry of the configured plugin list. Exactly one of the four
// forms is set: a registered name (optionally with options), a live
// instance, or a constructor. Specs are resolved into instances once, at
// pipeline construction; nothing inspects types after that.
type Spec struct {
	name        string
	options     Options
	instance    Plugin
	constructor Constructor
}

// ByName references a plugin registered under name.
func ByName(name string) Spec { return Spec{name: name} }

// WithOptions references a registered plugin with constructor options
// (the `[name, options]` configuration form).
func WithOptions(name string, opts Options) Spec { return Spec{name: name, options: opts} }

// FromInstance wraps an already-constructed plugin.
func FromInstance(p Plugin) Spec { return Spec{instance: p} }

// FromConstructor wraps a constructor called with no options.
func FromConstructor(ctor Constructor) Spec { return Spec{constructor: ctor} }

// Build resolves the configured specs into plugin instances, preserving
// order. An unknown registered name or a failing constructor is a
// configuration error: the whole pipeline construction fails before any
// file is processed.
func Build(reg *Registry, specs []Spec) ([]Plugin, error) {
	out := make([]Plugin, 0, len(specs))
	for i, spec := range specs {
		p, err := spec.resolve(reg)
		if err != nil {
			return nil, fmt.Errorf("plugin config entry %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s Spec) resolve(reg *Registry) (Plugin, error) {
	switch {
	case s.instance != nil:
		return s.instance, nil
	case s.constructor != nil:
		return s.constructor(s.options)
	case s.name != "":
		ctor, ok := reg.Lookup(s.name)
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q", s.name)
		}
		p, err := ctor(s.options)
		if err != nil {
			return nil, fmt.Errorf("construct plugin %q: %w", s.name, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("empty plugin descriptor")
	}
}
