package password

// Package password provides the bcrypt implementation of the one-way
// password hash port.

import (
	"fmt"

	"github.com/target/user-auth-api/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements ports.PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

var _ ports.PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher creates a hasher with the given work factor.
// Out-of-range costs fall back to the bcrypt default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of the plaintext. The salt is embedded in the
// hash, so equal inputs produce different hashes.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext matches the stored hash.
func (h *BcryptHasher) Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
