package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps one active session record per user, keyed by user ID.
// The record's presence gates refresh-token validity: deleting it revokes
// every outstanding refresh token for that user immediately.
type SessionStore struct {
	Redis *redis.Client
}

func sessionKey(userID string) string {
	return "session:" + userID
}

func (s *SessionStore) Create(ctx context.Context, snapshot SessionSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.Redis.Set(ctx, sessionKey(snapshot.ID), data, ttl).Err()
}

// Get returns nil, nil when no live session exists for the user.
func (s *SessionStore) Get(ctx context.Context, userID string) (*SessionSnapshot, error) {
	raw, err := s.Redis.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Delete is idempotent; removing an absent session is success.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.Redis.Del(ctx, sessionKey(userID)).Err()
}
