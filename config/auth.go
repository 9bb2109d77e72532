package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SessionBackend selects which store persists sessions.
type SessionBackend string

const (
	// SessionBackendPostgres keeps sessions in the primary database.
	SessionBackendPostgres SessionBackend = "postgres"
	// SessionBackendRedis keeps sessions in Redis with TTL semantics.
	SessionBackendRedis SessionBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionBackend.
func (s *SessionBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "postgres", "redis":
		*s = SessionBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionBackend: %q (valid options: postgres, redis)", v)
	}
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// SigningKey is the process-wide symmetric key used to MAC bearer tokens.
	// It must be stable for the life of every issued token; tokens signed with
	// a key that is later discarded become unverifiable.
	SigningKey string `env:"SIGNING_KEY,required"`

	// KeyID identifies the active signing key in the token header so keys can
	// be rotated without invalidating tokens signed by a previous key.
	KeyID string `env:"KEY_ID" envDefault:"v1"`

	// PreviousKeys maps retired key IDs to their key material, formatted as
	// "kid=key" pairs separated by ';'. Tokens stamped with a retired KeyID
	// still verify until their sessions expire.
	PreviousKeys map[string]string `env:"PREVIOUS_KEYS" envSeparator:";" envKeyValSeparator:"="`

	// TokenTTL is how long an issued token and its session remain valid.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"720h"`

	// SessionStore selects the session persistence backend.
	SessionStore SessionBackend `env:"SESSION_STORE" envDefault:"postgres"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.TokenTTL <= 0 {
		a.TokenTTL = 720 * time.Hour
	}
	if a.BcryptCost < bcrypt.MinCost {
		a.BcryptCost = bcrypt.DefaultCost
	}
	if a.BcryptCost > bcrypt.MaxCost {
		a.BcryptCost = bcrypt.MaxCost
	}
	if a.SessionStore == "" {
		a.SessionStore = SessionBackendPostgres
	}
}
