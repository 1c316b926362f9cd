package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/coe-labs/coe-agent/src/session"
)

// Suggester is the session-scoped suggestion state machine. pending is the
// only non-terminal state; propose supersedes, confirm and cancel consume.
type Suggester struct {
	store session.Store
}

func NewSuggester(store session.Store) *Suggester {
	return &Suggester{store: store}
}

// Propose records an auto-routed decision as the session's pending
// suggestion, superseding any existing one. Forced and empty decisions are
// never proposed.
func (g *Suggester) Propose(ctx context.Context, sessionID string, d *Decision) (*session.Suggestion, error) {
	if !d.Executable() || d.Forced {
		return nil, nil
	}

	sug := &session.Suggestion{
		SessionID: sessionID,
		Kind:      d.Kind,
		Name:      d.Name,
		Arguments: d.Arguments,
		Reason:    d.Reason,
		Source:    d.Source,
		Status:    session.StatusPending,
		CreatedAt: time.Now(),
	}
	// A single keyed slot per session: writing the new suggestion is the
	// supersede transition for whatever was pending before.
	if err := g.store.Put(ctx, sessionID, sug); err != nil {
		return nil, fmt.Errorf("dispatch: propose: %w", err)
	}
	return sug, nil
}

// Confirm consumes the pending suggestion and returns it marked confirmed.
// Override arguments, when present, fully replace the stored recommendation.
// Returns ErrNoPending when nothing is pending.
func (g *Suggester) Confirm(ctx context.Context, sessionID string, override map[string]any) (*session.Suggestion, error) {
	sug, err := g.store.GetPending(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: confirm: %w", err)
	}
	if sug == nil {
		return nil, ErrNoPending
	}
	if err := g.store.Clear(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("dispatch: confirm: %w", err)
	}

	if override != nil {
		sug.Arguments = override
	}
	sug.Status = session.StatusConfirmed
	return sug, nil
}

// Cancel discards the pending suggestion. Returns ErrNoPending when nothing
// is pending.
func (g *Suggester) Cancel(ctx context.Context, sessionID string) (*session.Suggestion, error) {
	sug, err := g.store.GetPending(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: cancel: %w", err)
	}
	if sug == nil {
		return nil, ErrNoPending
	}
	if err := g.store.Clear(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("dispatch: cancel: %w", err)
	}

	sug.Status = session.StatusCancelled
	return sug, nil
}

// Decision rebuilds an executable decision from a confirmed suggestion.
func (g *Suggester) Decision(sug *session.Suggestion) *Decision {
	action := ActionCapability
	if sug.Kind == session.KindFlow {
		action = ActionFlow
	}
	return &Decision{
		Action:         action,
		Kind:           sug.Kind,
		Name:           sug.Name,
		Arguments:      sug.Arguments,
		ArgumentsKnown: true,
		Reason:         sug.Reason,
		Source:         sug.Source,
	}
}
