package toolkit

import "context"

// Capability describes one invocable unit of work exposed to the dispatcher.
type Capability struct {
	Name        string
	Description string
	// Parameters is a JSON-schema object describing the handler arguments.
	Parameters map[string]any
	// Contexts lists the caller environments this capability is visible in.
	Contexts []string
	// Groups optionally restricts visibility within a context. Empty means
	// every group (and no group) may see the capability.
	Groups []string
}

// VisibleTo reports whether the capability is eligible for a context/group pair.
func (c Capability) VisibleTo(context, group string) bool {
	found := false
	for _, ctx := range c.Contexts {
		if ctx == context {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if len(c.Groups) == 0 {
		return true
	}
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Message is a single chat turn produced by a capability handler.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the structured output of a capability handler.
type Result struct {
	Messages []Message `json:"messages"`
}

// Session carries the per-request conversational context into handlers.
type Session struct {
	ID      string
	Context string
	Group   string
	Input   string
	Model   string
	History []Message
}

// Handler executes a capability with inferred or caller-supplied arguments.
type Handler func(ctx context.Context, args map[string]any, sess *Session) (*Result, error)

// Module declares one or more capabilities together with their handlers.
type Module interface {
	Name() string
	Manifest() []Capability
	Handlers() map[string]Handler
}
