package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and single-node setups.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]*Suggestion
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		ttl:     ttl,
		pending: make(map[string]*Suggestion),
		now:     time.Now,
	}
}

func (s *MemoryStore) GetPending(_ context.Context, sessionID string) (*Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sug, ok := s.pending[sessionID]
	if !ok || sug.Status != StatusPending {
		return nil, nil
	}
	if s.now().Sub(sug.CreatedAt) > s.ttl {
		sug.Status = StatusExpired
		delete(s.pending, sessionID)
		return nil, nil
	}
	cp := *sug
	return &cp, nil
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, sug *Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sug
	s.pending[sessionID] = &cp
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, sessionID)
	return nil
}
