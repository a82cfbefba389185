// Package registry provides the server-wide named object arena. Game objects
// that must be reachable by well-known name (areas, sessions, channels) are
// bound here once and looked up everywhere else.
package registry

import "sync"

// Arena is a concurrency-safe name-to-object binding table.
//
// Bindings are write-once by convention: rebinding an existing name via Bind
// replaces the object, but most callers should prefer BindIfAbsent so that
// concurrent find-or-create races converge on a single instance.
type Arena struct {
	mu       sync.RWMutex
	bindings map[string]any
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{
		bindings: make(map[string]any),
	}
}

// Bind associates name with obj, replacing any previous binding.
//
// Precondition: name must be non-empty; obj must be non-nil.
func (a *Arena) Bind(name string, obj any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bindings[name] = obj
}

// Lookup returns the object bound to name, or (nil, false) if unbound.
func (a *Arena) Lookup(name string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	obj, ok := a.bindings[name]
	return obj, ok
}

// BindIfAbsent binds the object produced by create under name unless a
// binding already exists. It returns the bound object and whether this call
// created it. create runs under the arena lock and must not call back into
// the arena.
//
// Postcondition: All concurrent callers for the same name receive the same
// object.
func (a *Arena) BindIfAbsent(name string, create func() any) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if obj, ok := a.bindings[name]; ok {
		return obj, false
	}
	obj := create()
	a.bindings[name] = obj
	return obj, true
}

// Unbind removes the binding for name. Unbinding an absent name is a no-op.
func (a *Arena) Unbind(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bindings, name)
}

// Names returns a snapshot of all bound names in unspecified order.
func (a *Arena) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.bindings))
	for name := range a.bindings {
		names = append(names, name)
	}
	return names
}
