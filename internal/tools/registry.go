package tools

import (
	"context"
	"sort"
	"sync"

	"salesdesk/pkg/errors"
)

// Definition describes a registered tool for discovery.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry stores tools by name for discovery and lookup.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds or replaces a tool under the provided name.
func (r *Registry) Register(name string, t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
}

// Get retrieves a tool by name if registered.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the names of all registered tools, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Definitions returns name and description of every tool, sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			defs = append(defs, Definition{Name: name, Description: t.Description()})
		}
	}
	return defs
}

// Execute looks up a tool and runs it.
func (r *Registry) Execute(ctx context.Context, name string, args interface{}) (interface{}, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "tool %q", name)
	}
	return t.Execute(ctx, args)
}
