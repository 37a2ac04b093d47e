package scheduler

import (
	"slices"
	"sync"
)

// Registry is the set of job names with a live supervisor.
// A name can be held by one supervisor at a time.
type Registry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Acquire claims name. It returns false if the name is already held.
func (r *Registry) Acquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[name]; ok {
		return false
	}

	r.names[name] = struct{}{}

	return true
}

// Release frees name.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.names, name)
}

// Running returns the held names in sorted order.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
