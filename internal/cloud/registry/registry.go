// Package registry holds the ordered set of enabled cloud providers.
// Registration order is significant: it defines the tie-break priority the
// optimizer uses when two offers cost the same.
package registry

import (
	"sync"

	"skylift/internal/cloud/provider"
	"skylift/internal/errdefs"
)

// Registry is an ordered collection of providers. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers []provider.Provider
	byName    map[string]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]int),
	}
}

// Register adds a provider. Registering the same name twice is a
// configuration error, not a replace.
func (r *Registry) Register(p provider.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.byName[name]; exists {
		return errdefs.Configurationf("provider already registered: %s", name)
	}

	r.byName[name] = len(r.providers)
	r.providers = append(r.providers, p)
	return nil
}

// List returns the providers in registration order.
func (r *Registry) List() []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]provider.Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.byName[name]
	if !exists {
		return nil, errdefs.NotFoundf("provider not found: %s", name)
	}
	return r.providers[idx], nil
}

// Priority returns the registration index for name, used as the optimizer's
// deterministic tie-break. Unknown names sort last.
func (r *Registry) Priority(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.byName[name]
	if !exists {
		return len(r.providers)
	}
	return idx
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
