package toolkit

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Catalog is an immutable snapshot of every valid registered capability.
// Registration order is preserved; the dispatcher relies on it for
// deterministic tie-breaking.
type Catalog struct {
	caps     []Capability
	handlers map[string]Handler
}

// Capabilities returns all capabilities in registration order.
func (c *Catalog) Capabilities() []Capability {
	return c.caps
}

// Eligible returns the capabilities visible to a context/group pair,
// in registration order.
func (c *Catalog) Eligible(context, group string) []Capability {
	var out []Capability
	for _, cap := range c.caps {
		if cap.VisibleTo(context, group) {
			out = append(out, cap)
		}
	}
	return out
}

// Lookup finds a capability by name.
func (c *Catalog) Lookup(name string) (Capability, bool) {
	for _, cap := range c.caps {
		if cap.Name == name {
			return cap, true
		}
	}
	return Capability{}, false
}

// Handler returns the executable handler mapped to a capability name.
func (c *Catalog) Handler(name string) (Handler, bool) {
	h, ok := c.handlers[name]
	return h, ok
}

// Registry holds the registered capability modules and publishes immutable
// catalog snapshots. Readers always see a complete catalog; Refresh swaps
// the snapshot wholesale.
type Registry struct {
	modules  []Module
	snapshot atomic.Pointer[Catalog]
}

// NewRegistry builds a registry from the given modules and publishes the
// initial catalog snapshot.
func NewRegistry(mods ...Module) *Registry {
	r := &Registry{modules: mods}
	r.Refresh()
	return r
}

// Refresh rebuilds the catalog from all registered modules and atomically
// swaps it in. A malformed module is skipped with a warning; it never
// fails the whole rebuild.
func (r *Registry) Refresh() *Catalog {
	cat := &Catalog{handlers: make(map[string]Handler)}

	for _, mod := range r.modules {
		if mod == nil {
			continue
		}
		caps, err := validateModule(mod, cat.handlers)
		if err != nil {
			log.Printf("toolkit: skipping module %s: %v", mod.Name(), err)
			continue
		}
		handlers := mod.Handlers()
		for _, cap := range caps {
			cat.caps = append(cat.caps, cap)
			cat.handlers[cap.Name] = handlers[cap.Name]
		}
	}

	r.snapshot.Store(cat)
	return cat
}

// Catalog returns the current snapshot.
func (r *Registry) Catalog() *Catalog {
	return r.snapshot.Load()
}

// Eligible delegates to the current snapshot.
func (r *Registry) Eligible(context, group string) []Capability {
	return r.Catalog().Eligible(context, group)
}

// Lookup delegates to the current snapshot.
func (r *Registry) Lookup(name string) (Capability, bool) {
	return r.Catalog().Lookup(name)
}

// Handler delegates to the current snapshot.
func (r *Registry) Handler(name string) (Handler, bool) {
	return r.Catalog().Handler(name)
}

func validateModule(mod Module, registered map[string]Handler) ([]Capability, error) {
	caps := mod.Manifest()
	if len(caps) == 0 {
		return nil, fmt.Errorf("empty manifest")
	}
	handlers := mod.Handlers()
	seen := make(map[string]bool, len(caps))
	for _, cap := range caps {
		if cap.Name == "" {
			return nil, fmt.Errorf("capability with empty name")
		}
		if seen[cap.Name] {
			return nil, fmt.Errorf("duplicate capability %q within module", cap.Name)
		}
		if _, taken := registered[cap.Name]; taken {
			return nil, fmt.Errorf("capability %q already registered by another module", cap.Name)
		}
		if handlers[cap.Name] == nil {
			return nil, fmt.Errorf("capability %q has no handler", cap.Name)
		}
		seen[cap.Name] = true
	}
	return caps, nil
}
