package auth

// Package auth contains domain-level types for users, sessions, and token
// claims. It is pure and free of framework/adapter concerns.

import "time"

// Role is a named permission tag attached to a user. Roles are carried in
// token claims; this service does not enforce permissions beyond carrying them.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// SessionStatus is the lifecycle state of a session.
// A session transitions ACTIVE -> ENDED exactly once; ENDED is terminal.
type SessionStatus string

const (
	SessionActive SessionStatus = "ACTIVE"
	SessionEnded  SessionStatus = "ENDED"
)

// User is the registered account record. Password material is stored only as
// a one-way hash; plaintext never reaches persistence.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoleNames returns the user's roles as an ordered slice of plain strings,
// the shape embedded in token claims.
func (u User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = string(r)
	}
	return names
}

// Session represents one authenticated login. The token string is owned by
// the session for its lifetime and is never reused for another session.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Token     string        `json:"token"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Expired reports whether the session's expiry is strictly before now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// End marks the session ENDED. Ending an already-ENDED session is a no-op;
// no session ever returns to ACTIVE.
func (s *Session) End() {
	s.Status = SessionEnded
}

// Claims is the fixed-shape signed payload embedded in a bearer token.
// It is not a stored entity; it is reconstructed by verifying the token.
type Claims struct {
	Email     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the authenticated identity resolved from a valid session,
// attached to request contexts by the auth middleware.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Roles  []Role `json:"roles"`
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
