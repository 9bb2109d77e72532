package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/data and internal/adapters; orchestration
// in internal/service.

import (
	"context"

	domainauth "github.com/target/user-auth-api/internal/domain/auth"
)

// UserStore persists and retrieves user records. Lookups that find nothing
// return an error classified as not-found (see internal/errors).
type UserStore interface {
	// FindByEmail returns the user registered under the given email.
	FindByEmail(ctx context.Context, email string) (domainauth.User, error)

	// Save upserts a user keyed by its ID. Inserting a new user whose email
	// is already registered fails with a conflict error.
	Save(ctx context.Context, user domainauth.User) (domainauth.User, error)
}

// SessionStore persists and retrieves sessions. Lookup is always scoped by
// both token and user ID so a leaked token string alone cannot resolve a
// session belonging to a different user.
type SessionStore interface {
	FindByTokenAndUser(ctx context.Context, token, userID string) (domainauth.Session, error)
	Save(ctx context.Context, sess domainauth.Session) (domainauth.Session, error)
}

// TokenCodec signs claims into an opaque bearer string and verifies them back.
// Implementations hold the process-wide signing key material; they keep no
// per-token state.
type TokenCodec interface {
	// Encode serializes the claims and MACs them with the active signing key.
	Encode(claims domainauth.Claims) (string, error)

	// Decode verifies the MAC before trusting any claim. Unsigned, re-encoded,
	// or malformed tokens fail.
	Decode(token string) (domainauth.Claims, error)
}

// PasswordHasher is a pluggable one-way hash with a verify operation.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) bool
}
