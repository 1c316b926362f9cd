package session

import (
	"context"
	"time"
)

// CandidateKind distinguishes the two candidate types the dispatcher routes to.
type CandidateKind string

const (
	KindCapability CandidateKind = "capability"
	KindFlow       CandidateKind = "flow"
)

// Status of a suggestion. pending is the only non-terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
	StatusSuperseded Status = "superseded"
	StatusExpired    Status = "expired"
)

// Suggestion is a proposed-but-not-executed candidate choice held against a
// session until the caller confirms or cancels it.
type Suggestion struct {
	SessionID string         `json:"session_id"`
	Kind      CandidateKind  `json:"kind"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Source    string         `json:"source,omitempty"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists at most one pending suggestion per session.
type Store interface {
	// GetPending returns the pending suggestion, or nil when none exists
	// (including when it has expired).
	GetPending(ctx context.Context, sessionID string) (*Suggestion, error)
	// Put stores s as the session's pending suggestion, replacing any
	// previous one.
	Put(ctx context.Context, sessionID string, s *Suggestion) error
	// Clear removes the session's pending suggestion if present.
	Clear(ctx context.Context, sessionID string) error
}
