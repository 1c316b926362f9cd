package core

import "context"

// Message represents a single chat turn.
type Message struct {
	Role    string
	Content string
}

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	SystemPrompt        string
}

// Client is a provider-agnostic interface for the LLM operations we need.
type Client interface {
	// Respond returns a free-form completion for the given conversation.
	Respond(ctx context.Context, messages []Message, opts Options) (string, error)
	// RespondJSON asks the model for a single JSON object and returns the raw text.
	RespondJSON(ctx context.Context, messages []Message, opts Options) (string, error)
}
