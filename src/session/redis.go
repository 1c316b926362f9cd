package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const suggestionPrefix = "chat_session:suggestion:"

// RedisStore keeps pending suggestions in Redis. Key TTL doubles as the
// suggestion expiry bound: an entry that outlives the TTL simply vanishes,
// which the state machine reports as expired.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) GetPending(ctx context.Context, sessionID string) (*Suggestion, error) {
	raw, err := s.rdb.Get(ctx, suggestionPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get suggestion: %w", err)
	}

	var sug Suggestion
	if err := json.Unmarshal([]byte(raw), &sug); err != nil {
		return nil, fmt.Errorf("session: decode suggestion: %w", err)
	}
	if sug.Status != StatusPending {
		return nil, nil
	}
	return &sug, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, sug *Suggestion) error {
	raw, err := json.Marshal(sug)
	if err != nil {
		return fmt.Errorf("session: encode suggestion: %w", err)
	}
	if err := s.rdb.Set(ctx, suggestionPrefix+sessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: put suggestion: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, suggestionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("session: clear suggestion: %w", err)
	}
	return nil
}
