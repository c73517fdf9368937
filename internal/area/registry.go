package area

import (
	"fmt"
	"sort"
	"sync"
)

// Registry tracks the areas of one running world instance. It is constructed
// per world and passed to whoever dispatches commands; there is no process
// wide registry. Thread-safe for concurrent access.
type Registry struct {
	mu     sync.RWMutex
	areas  map[string]*Area
	closed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		areas: make(map[string]*Area),
	}
}

// Register adds an area. Area ids are zone ids and must be unique within the
// world.
func (r *Registry) Register(a *Area) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("registry is closed")
	}
	if _, exists := r.areas[a.ID()]; exists {
		return fmt.Errorf("area %q already registered", a.ID())
	}
	r.areas[a.ID()] = a
	return nil
}

// Get retrieves an area by zone id.
func (r *Registry) Get(id string) (*Area, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.areas[id]
	return a, ok
}

// IDs returns the registered zone ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.areas))
	for id := range r.areas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered areas.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.areas)
}

// Close tears the registry down when the world instance ends. Further
// registrations are rejected and all area references are dropped.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.areas = make(map[string]*Area)
}
