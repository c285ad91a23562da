// Package plugins ships the default plugin set and registers it under
// well-known names. The default pipeline order is: env, jsx, babel, json,
// text, resolve — syntax extensions before the general transformer, raw
// wrappers after it, resolution last.
package plugins

import (
	"fmt"

	"unchained/internal/plugin"
	"unchained/internal/resolver"
	"unchained/internal/transform"
	"unchained/internal/upstream"
)

// Deps carries the collaborators the default constructors close over.
type Deps struct {
	Transformer transform.Transformer
	Source      upstream.Source
}

// Register installs the default constructors into reg.
func Register(reg *plugin.Registry, deps Deps) error {
	if reg == nil {
		reg = plugin.Default()
	}
	tx := deps.Transformer
	if tx == nil {
		tx = transform.Passthrough{}
	}

	reg.Register("env", func(opts plugin.Options) (plugin.Plugin, error) {
		return NewEnv(stringMap(opts["vars"])), nil
	})
	reg.Register("jsx", func(opts plugin.Options) (plugin.Plugin, error) {
		return NewJSX(tx), nil
	})
	reg.Register("babel", func(opts plugin.Options) (plugin.Plugin, error) {
		return NewBabel(tx, stringSlice(opts["presets"])), nil
	})
	reg.Register("json", func(plugin.Options) (plugin.Plugin, error) {
		return NewJSON(), nil
	})
	reg.Register("text", func(plugin.Options) (plugin.Plugin, error) {
		return NewText(), nil
	})
	reg.Register("resolve", func(plugin.Options) (plugin.Plugin, error) {
		if deps.Source == nil {
			return nil, fmt.Errorf("resolve plugin requires an upstream source")
		}
		r, err := resolver.New(deps.Source)
		if err != nil {
			return nil, err
		}
		return NewResolve(r), nil
	})
	return nil
}

// DefaultSpecs is the stock plugin order.
func DefaultSpecs() []plugin.Spec {
	return []plugin.Spec{
		plugin.ByName("env"),
		plugin.ByName("jsx"),
		plugin.ByName("babel"),
		plugin.ByName("json"),
		plugin.ByName("text"),
		plugin.ByName("resolve"),
	}
}

func stringMap(v any) map[string]string {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, val := range raw {
		if s, ok := val.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
