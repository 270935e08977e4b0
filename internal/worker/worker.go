// Package worker owns per-worker resources. Each worker registers teardown
// hooks that run in reverse registration order when the worker exits.
package worker

import (
	"errors"
	"fmt"
	"sync"
)

// ID identifies a track-processing worker. Zero is the master.
type ID int

// Teardown releases one resource.
type Teardown func() error

// Registry keeps teardown hooks per worker.
type Registry struct {
	mu    sync.Mutex
	hooks map[ID][]namedHook
}

type namedHook struct {
	name string
	fn   Teardown
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[ID][]namedHook)}
}

// Register adds a teardown hook for worker id.
func (r *Registry) Register(id ID, name string, fn Teardown) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.hooks[id] = append(r.hooks[id], namedHook{name: name, fn: fn})
	r.mu.Unlock()
}

// Has reports whether worker id has a hook with the given name.
func (r *Registry) Has(id ID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hooks[id] {
		if h.name == name {
			return true
		}
	}
	return false
}

// Len returns the number of hooks pending for worker id.
func (r *Registry) Len(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks[id])
}

// Teardown runs and removes the hooks of worker id, last registered first.
// Every hook runs; errors are joined.
func (r *Registry) Teardown(id ID) error {
	r.mu.Lock()
	hooks := r.hooks[id]
	delete(r.hooks, id)
	r.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("teardown %s (worker %d): %w", hooks[i].name, id, err))
		}
	}
	return errors.Join(errs...)
}

// TeardownAll tears every worker down.
func (r *Registry) TeardownAll() error {
	r.mu.Lock()
	ids := make([]ID, 0, len(r.hooks))
	for id := range r.hooks {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	var errs []error
	for _, id := range ids {
		if err := r.Teardown(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
