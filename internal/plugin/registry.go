package plugin

import "sync"

// Options is the free-form configuration handed to a plugin constructor.
type Options map[string]any

// Constructor builds a configured plugin instance.
type Constructor func(opts Options) (Plugin, error)

// Registry maps plugin names to constructors. It is populated once at
// startup before any pipeline is built; lookups never mutate it. The last
// registration for a name wins.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

func (r *Registry) Register(name string, ctor Constructor) {
	if r == nil || name == "" || ctor == nil {
		return
	}
	r.mu.Lock()
	r.ctors[name] = ctor
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (Constructor, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[name]
	return ctor, ok
}

// Names returns the registered names, for diagnostics.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		out = append(out, name)
	}
	return out
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry. Packages that register here
// must do so during startup, before pipeline construction.
func Default() *Registry {
	return defaultRegistry
}
