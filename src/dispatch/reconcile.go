package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FunctionCall mirrors the wire shape of an OpenAI-style function call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one formal tool-invocation request.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// InvocationMessage is the assistant turn carrying a formal tool call.
type InvocationMessage struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Reconcile converts an executable decision into the formal invocation
// message the primary engine turn would have emitted had it chosen the
// candidate on its own. Downstream trace consumers cannot tell auto-routed
// calls apart from engine-chosen ones.
func Reconcile(d *Decision) (*InvocationMessage, error) {
	if !d.Executable() {
		return nil, fmt.Errorf("dispatch: reconcile: decision is not executable")
	}

	args := d.Arguments
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("dispatch: reconcile: marshal arguments: %w", err)
	}

	return &InvocationMessage{
		Role: "assistant",
		ToolCalls: []ToolCall{
			{
				ID:   "call_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
				Type: "function",
				Function: FunctionCall{
					Name:      d.Name,
					Arguments: string(raw),
				},
			},
		},
	}, nil
}
