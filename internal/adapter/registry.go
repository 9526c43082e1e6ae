package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds an adapter instance for one sync run. Adapter instances
// are not shared across sources or runs; they may hold mutable session
// state (cookies, token expiry, request counters).
type Factory func() (Adapter, error)

// Registry maps source identifiers to adapter factories. OpenAPI sources
// can be registered dynamically at runtime.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a source identifier to a factory. Re-registration
// replaces the previous factory.
func (r *Registry) Register(source string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[source] = factory
}

// New builds a fresh adapter for the source.
func (r *Registry) New(source string) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	return factory()
}

// Sources lists registered source identifiers in sorted order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for source := range r.factories {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// Has reports whether a source is registered.
func (r *Registry) Has(source string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[source]
	return ok
}
