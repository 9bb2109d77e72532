package token

// Package token signs and verifies bearer tokens as compact JWS strings
// (three dot-separated base64url segments) using an HMAC-SHA-256 MAC.

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	"github.com/target/user-auth-api/internal/ports"
)

var (
	// ErrMalformed is returned when a token is not a structurally valid JWS.
	ErrMalformed = errors.New("token is malformed")
	// ErrInvalidSignature is returned when the MAC does not verify.
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrUnknownKeyID is returned when a token references a key this process
	// does not hold.
	ErrUnknownKeyID = errors.New("token references an unknown key id")
)

// Config describes the key material for a Codec. Keys maps key IDs to
// symmetric keys; ActiveKeyID selects the key used for new tokens. Retired
// keys stay in the map so tokens signed before a rotation still verify.
type Config struct {
	Keys        map[string][]byte
	ActiveKeyID string
}

// Codec implements ports.TokenCodec with a process-wide signing key. The key
// is fixed at construction; it is never regenerated per call, so every token
// issued while the key is held remains verifiable.
type Codec struct {
	keys      map[string][]byte
	activeKID string
}

var _ ports.TokenCodec = (*Codec)(nil)

// New constructs a Codec from the given key material.
func New(cfg Config) (*Codec, error) {
	if cfg.ActiveKeyID == "" {
		return nil, errors.New("active key id is required")
	}
	key, ok := cfg.Keys[cfg.ActiveKeyID]
	if !ok || len(key) == 0 {
		return nil, fmt.Errorf("no key material for active key id %q", cfg.ActiveKeyID)
	}

	keys := make(map[string][]byte, len(cfg.Keys))
	for kid, k := range cfg.Keys {
		if kid == "" || len(k) == 0 {
			return nil, fmt.Errorf("key %q has empty id or material", kid)
		}
		keys[kid] = k
	}

	return &Codec{keys: keys, activeKID: cfg.ActiveKeyID}, nil
}

// NewWithKey constructs a single-key Codec, the common non-rotating setup.
func NewWithKey(key []byte, kid string) (*Codec, error) {
	return New(Config{Keys: map[string][]byte{kid: key}, ActiveKeyID: kid})
}

// wireClaims is the on-the-wire claim shape. Timestamps use the original
// createdAt/expiryAt key names rather than the registered iat/exp claims;
// freshness is enforced against the stored session, not the token, so the
// parser must not reject expired payloads on its own.
type wireClaims struct {
	Email     string           `json:"email"`
	Roles     []string         `json:"roles"`
	CreatedAt *jwt.NumericDate `json:"createdAt"`
	ExpiryAt  *jwt.NumericDate `json:"expiryAt"`
}

func (wireClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (wireClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (wireClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (wireClaims) GetIssuer() (string, error)                   { return "", nil }
func (wireClaims) GetSubject() (string, error)                  { return "", nil }
func (wireClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Encode serializes the claims and MACs them with the active signing key.
// The active key id is stamped into the token header for rotation support.
func (c *Codec) Encode(claims domainauth.Claims) (string, error) {
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, wireClaims{
		Email:     claims.Email,
		Roles:     roles,
		CreatedAt: jwt.NewNumericDate(claims.IssuedAt),
		ExpiryAt:  jwt.NewNumericDate(claims.ExpiresAt),
	})
	tok.Header["kid"] = c.activeKID

	signed, err := tok.SignedString(c.keys[c.activeKID])
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the MAC before trusting any claim. The signing key is
// resolved from the token's kid header, falling back to the active key.
func (c *Codec) Decode(token string) (domainauth.Claims, error) {
	var wire wireClaims
	_, err := jwt.ParseWithClaims(token, &wire, c.keyFor, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return domainauth.Claims{}, mapParseError(err)
	}

	if wire.CreatedAt == nil || wire.ExpiryAt == nil {
		return domainauth.Claims{}, fmt.Errorf("%w: missing timestamp claims", ErrMalformed)
	}

	roles := wire.Roles
	if roles == nil {
		roles = []string{}
	}

	return domainauth.Claims{
		Email:     wire.Email,
		Roles:     roles,
		IssuedAt:  wire.CreatedAt.Time,
		ExpiresAt: wire.ExpiryAt.Time,
	}, nil
}

func (c *Codec) keyFor(tok *jwt.Token) (any, error) {
	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		kid = c.activeKID
	}
	key, ok := c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyID, kid)
	}
	return key, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, ErrUnknownKeyID):
		return err
	default:
		return fmt.Errorf("parse token: %w", err)
	}
}
