package dispatch

import (
	"errors"

	"github.com/coe-labs/coe-agent/src/session"
)

// Action says what the selector decided to do with a request.
type Action string

const (
	ActionNone       Action = "none"
	ActionCapability Action = "execute_capability"
	ActionFlow       Action = "execute_flow"
)

// Candidate is the selector's uniform view over capabilities and flows.
type Candidate struct {
	Kind        session.CandidateKind
	Name        string
	Description string
}

// Decision is the ephemeral outcome of one selection. It is consumed
// immediately by either the executor or the suggestion state machine and
// never persisted.
type Decision struct {
	Action    Action
	Kind      session.CandidateKind
	Name      string
	Arguments map[string]any
	// ArgumentsKnown is false when the candidate was selected but argument
	// inference failed; execution may still proceed with empty arguments.
	ArgumentsKnown bool
	Reason         string
	// Forced marks decisions that came from an explicit caller instruction
	// rather than auto-routing.
	Forced bool
	Source string
}

// Executable reports whether the decision names something to run.
func (d *Decision) Executable() bool {
	return d != nil && d.Action != ActionNone && d.Name != ""
}

// Choice is an explicit candidate instruction supplied by the caller,
// bypassing auto-routing.
type Choice struct {
	Name      string
	Arguments map[string]any
}

// ErrNoPending is returned when a confirm or cancel references a session
// without a pending suggestion. Callers report it as an informational
// sentence, never as a fatal error.
var ErrNoPending = errors.New("dispatch: no pending suggestion")
