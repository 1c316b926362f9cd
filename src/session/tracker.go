package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "chat_session:"

// State is the per-session conversational bookkeeping kept in Redis.
type State struct {
	SessionID         string    `json:"session_id"`
	ConversationTurns int       `json:"conversation_turns"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
}

// Tracker manages session state lifecycles.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTracker(rdb *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tracker{rdb: rdb, ttl: ttl}
}

// GetOrCreate returns the existing session state, creating one (with a fresh
// id when sessionID is empty) if needed.
func (t *Tracker) GetOrCreate(ctx context.Context, sessionID string) (*State, error) {
	if sessionID != "" {
		raw, err := t.rdb.Get(ctx, sessionPrefix+sessionID).Result()
		if err == nil {
			var st State
			if err := json.Unmarshal([]byte(raw), &st); err != nil {
				return nil, fmt.Errorf("session: decode state: %w", err)
			}
			st.LastActivity = time.Now()
			if err := t.save(ctx, &st); err != nil {
				return nil, err
			}
			return &st, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session: get state: %w", err)
		}
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	st := &State{
		SessionID:    sessionID,
		IsActive:     true,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}
	if err := t.save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Touch increments the turn counter.
func (t *Tracker) Touch(ctx context.Context, st *State) error {
	st.ConversationTurns++
	st.LastActivity = time.Now()
	return t.save(ctx, st)
}

func (t *Tracker) save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}
	if err := t.rdb.Set(ctx, sessionPrefix+st.SessionID, raw, t.ttl).Err(); err != nil {
		return fmt.Errorf("session: save state: %w", err)
	}
	return nil
}
