package processor

import (
	"fmt"
	"sort"
	"sync"
)

// Module is implemented by every processor package compiled into the binary.
type Module interface {
	Register(r *Registry)
}

// Registry maps processor names, as used in pipeline files, to implementations.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Processor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]Processor)}
}

// Register adds a processor under name. Registering the same name twice is a
// programmer error.
func (r *Registry) Register(name string, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[name]; exists {
		panic(fmt.Sprintf("processor: %q registered twice", name))
	}
	r.procs[name] = p
}

// Lookup returns the processor registered under name.
func (r *Registry) Lookup(name string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %q", name)
	}
	return p, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
