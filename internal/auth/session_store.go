package auth

import (
	"context"
	"time"

	"canteen/internal/cache"
)

const revokedSessionKeyPrefix = "revoked_session:"

// SessionStore tracks sessions ended by logout before their token expired.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// RedisSessionStore keeps revoked session IDs in redis until the token would have expired.
type RedisSessionStore struct {
	cache *cache.Client
}

// Ensure RedisSessionStore implements SessionStore
var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore creates a new session store.
func NewRedisSessionStore(cache *cache.Client) *RedisSessionStore {
	return &RedisSessionStore{cache: cache}
}

// Revoke marks a session as logged out.
func (s *RedisSessionStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedSessionKeyPrefix+sessionID, []byte("1"), ttl)
}

// IsRevoked checks if a session was logged out. Without redis nothing is revoked;
// the browser cookie is still cleared on logout.
func (s *RedisSessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	data, err := s.cache.Get(ctx, revokedSessionKeyPrefix+sessionID)
	if err != nil {
		return false, nil
	}
	return data != nil, nil
}
