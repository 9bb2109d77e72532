package redis

// Package redis provides the Redis-backed session store.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	apperrors "github.com/target/user-auth-api/internal/errors"
	"github.com/target/user-auth-api/internal/ports"
)

// endedGrace keeps session records readable past their expiry so validation
// can report ENDED instead of treating an expired session as missing.
const endedGrace = 24 * time.Hour

// SessionStore is a Redis-based session store. Keys are scoped by user ID and
// token together so a token alone never resolves another user's session.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, prefix: "session:"}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) key(token, userID string) string {
	return s.prefix + userID + ":" + token
}

// Save upserts the session record. The TTL extends one grace window past the
// session expiry; an ENDED session therefore stays visible until then.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) (domainauth.Session, error) {
	if sess.Token == "" || sess.UserID == "" {
		return domainauth.Session{}, apperrors.Validation("session token and user id are required")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt) + endedGrace
	if ttl <= 0 {
		ttl = time.Minute
	}

	if setErr := s.client.Set(ctx, s.key(sess.Token, sess.UserID), data, ttl).Err(); setErr != nil {
		return domainauth.Session{}, fmt.Errorf("redis set: %w", setErr)
	}
	return sess, nil
}

// FindByTokenAndUser returns the session stored under (token, userID).
// Expiry is not evaluated here; the stored record is returned as-is and the
// caller decides what an expired session means.
func (s *SessionStore) FindByTokenAndUser(ctx context.Context, token, userID string) (domainauth.Session, error) {
	if token == "" || userID == "" {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}

	data, err := s.client.Get(ctx, s.key(token, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, apperrors.NotFound("session not found")
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}
	return sess, nil
}
