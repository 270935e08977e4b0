// Package verbose provides the integer verbosity capability shared by the
// geometry components and a registry that sets it per component or for all.
package verbose

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// AllComponents is the registry name that broadcasts to every component.
const AllComponents = "all"

// Verbose is implemented by every component emitting progress output.
type Verbose interface {
	Name() string
	SetVerboseLevel(level int)
	VerboseLevel() int
}

// Level is an embeddable Verbose implementation.
type Level struct {
	name  string
	level atomic.Int32
}

// NewLevel returns a level for the named component.
func NewLevel(name string, level int) *Level {
	l := &Level{name: name}
	l.level.Store(int32(level))
	return l
}

// Name returns the component name.
func (l *Level) Name() string { return l.name }

// SetVerboseLevel sets the level.
func (l *Level) SetVerboseLevel(level int) { l.level.Store(int32(level)) }

// VerboseLevel returns the level.
func (l *Level) VerboseLevel() int { return int(l.level.Load()) }

// Enabled reports whether the level is at least n.
func (l *Level) Enabled(n int) bool { return l.VerboseLevel() >= n }

// Registry maps component names to their Verbose implementation.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Verbose
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{components: make(map[string]Verbose)}
}

// Register adds a component; names must be unique and not "all".
func (r *Registry) Register(v Verbose) error {
	if v == nil {
		return fmt.Errorf("verbose component cannot be nil")
	}
	name := v.Name()
	if name == "" || name == AllComponents {
		return fmt.Errorf("invalid verbose component name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[name]; exists {
		return fmt.Errorf("verbose component %s already registered", name)
	}
	r.components[name] = v
	return nil
}

// Unregister removes a component.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.components, name)
	r.mu.Unlock()
}

// Set applies level to the named component, or to all of them for "all".
func (r *Registry) Set(name string, level int) error {
	if name == AllComponents {
		r.SetAll(level)
		return nil
	}
	r.mu.RLock()
	v, ok := r.components[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown verbose component %s", name)
	}
	v.SetVerboseLevel(level)
	return nil
}

// SetAll applies level to every registered component.
func (r *Registry) SetAll(level int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.components {
		v.SetVerboseLevel(level)
	}
}

// Levels returns the current level of each component.
func (r *Registry) Levels() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.components))
	for name, v := range r.components {
		out[name] = v.VerboseLevel()
	}
	return out
}

// Names returns the sorted component names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.components))
	for name := range r.components {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
