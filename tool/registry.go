package tool

import (
	"sort"
	"sync"

	turnkit "github.com/stephencalder/turnkit"
)

// Registration combines a tool descriptor with its handler.
type Registration struct {
	Tool    turnkit.Tool
	Handler Handler
}

// Registry is the tool catalog: it resolves a tool name to its descriptor
// and handler. It is safe for concurrent read access across conversations;
// registration is expected to happen between generation cycles, not during
// them.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Registration
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Registration)}
}

// Register adds a tool with its handler to the registry.
// Returns an error if a tool with the same name is already registered.
func (r *Registry) Register(t turnkit.Tool, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return &ErrToolAlreadyRegistered{Name: t.Name}
	}
	r.tools[t.Name] = Registration{Tool: t, Handler: handler}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t turnkit.Tool, handler Handler) {
	if err := r.Register(t, handler); err != nil {
		panic(err)
	}
}

// Add registers the given registrations, panicking on duplicates, and
// returns the registry for chaining.
func (r *Registry) Add(regs ...Registration) *Registry {
	for _, reg := range regs {
		r.MustRegister(reg.Tool, reg.Handler)
	}
	return r
}

// Unregister removes a tool from the registry.
// It is a no-op if the tool is not registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Resolve retrieves a registration by tool name.
func (r *Registry) Resolve(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.tools[name]
	return reg, ok
}

// ConfirmationRequired reports whether the named tool must clear the
// confirmation gate before execution. Unknown tools do not require
// confirmation; their execution fails with an unknown-tool outcome instead.
func (r *Registry) ConfirmationRequired(name string) bool {
	reg, ok := r.Resolve(name)
	return ok && reg.Tool.ConfirmationRequired
}

// Tools returns all registered tool descriptors, sorted by name so the
// declarations sent to the backend are deterministic.
func (r *Registry) Tools() []turnkit.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]turnkit.Tool, 0, len(r.tools))
	for _, reg := range r.tools {
		tools = append(tools, reg.Tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Names returns the names of all registered tools, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
