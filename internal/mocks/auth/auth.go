package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"

	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	apperrors "github.com/target/user-auth-api/internal/errors"
	"github.com/target/user-auth-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.UserStore      = (*MemoryUserStore)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.TokenCodec     = (*StaticCodec)(nil)
	_ ports.PasswordHasher = (PlainHasher)(PlainHasher{})
)

// MemoryUserStore is an in-memory user store for unit tests. It enforces the
// same email uniqueness rule as the real repositories.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]domainauth.User // keyed by user ID

	// Optional overrides for error-path tests.
	FindByEmailFunc func(ctx context.Context, email string) (domainauth.User, error)
	SaveFunc        func(ctx context.Context, user domainauth.User) (domainauth.User, error)
}

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]domainauth.User)}
}

func (m *MemoryUserStore) FindByEmail(ctx context.Context, email string) (domainauth.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domainauth.User{}, apperrors.NotFound("user not found")
}

func (m *MemoryUserStore) Save(ctx context.Context, user domainauth.User) (domainauth.User, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == user.Email && id != user.ID {
			return domainauth.User{}, &apperrors.AppError{
				Code:    apperrors.ErrCodeConflict,
				Message: "This value already exists.",
				Field:   "email",
			}
		}
	}
	m.users[user.ID] = user
	return user, nil
}

// Len reports how many users are stored.
func (m *MemoryUserStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// MemorySessionStore is an in-memory session store for unit tests, keyed by
// (token, user) exactly like the real stores.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session

	FindFunc func(ctx context.Context, token, userID string) (domainauth.Session, error)
	SaveFunc func(ctx context.Context, sess domainauth.Session) (domainauth.Session, error)
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func sessionKey(token, userID string) string { return userID + ":" + token }

func (m *MemorySessionStore) FindByTokenAndUser(ctx context.Context, token, userID string) (domainauth.Session, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, token, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionKey(token, userID)]
	if !ok {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}
	return sess, nil
}

func (m *MemorySessionStore) Save(ctx context.Context, sess domainauth.Session) (domainauth.Session, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, sess)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey(sess.Token, sess.UserID)] = sess
	return sess, nil
}

// Len reports how many sessions are stored.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StaticCodec is a deterministic token codec for tests. It base64-encodes the
// claims with a fixed marker so Decode can reject tokens it did not produce,
// standing in for signature verification.
type StaticCodec struct {
	// Marker distinguishes tokens from different codec instances, simulating
	// different signing keys. Empty means "static".
	Marker string

	EncodeFunc func(claims domainauth.Claims) (string, error)
	DecodeFunc func(token string) (domainauth.Claims, error)
}

func (c *StaticCodec) marker() string {
	if c.Marker == "" {
		return "static"
	}
	return c.Marker
}

func (c *StaticCodec) Encode(claims domainauth.Claims) (string, error) {
	if c.EncodeFunc != nil {
		return c.EncodeFunc(claims)
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return c.marker() + "." + base64.RawURLEncoding.EncodeToString(b), nil
}

func (c *StaticCodec) Decode(token string) (domainauth.Claims, error) {
	if c.DecodeFunc != nil {
		return c.DecodeFunc(token)
	}
	payload, ok := strings.CutPrefix(token, c.marker()+".")
	if !ok {
		return domainauth.Claims{}, apperrors.InvalidToken("token verification failed")
	}
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return domainauth.Claims{}, apperrors.InvalidToken("token verification failed")
	}
	var claims domainauth.Claims
	if err := json.Unmarshal(b, &claims); err != nil {
		return domainauth.Claims{}, apperrors.InvalidToken("token verification failed")
	}
	return claims, nil
}

// PlainHasher stores passwords with a reversible prefix. Only for tests.
type PlainHasher struct{}

func (PlainHasher) Hash(plaintext string) (string, error) {
	return "plain:" + plaintext, nil
}

func (PlainHasher) Verify(hash, plaintext string) bool {
	return hash == "plain:"+plaintext
}
