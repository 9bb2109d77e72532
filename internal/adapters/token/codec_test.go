package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/user-auth-api/internal/domain/auth"
)

func testClaims() domainauth.Claims {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return domainauth.Claims{
		Email:     "alice@example.com",
		Roles:     []string{"admin", "user"},
		IssuedAt:  issued,
		ExpiresAt: issued.Add(720 * time.Hour),
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec, err := NewWithKey([]byte("test-signing-key"), "v1")
	require.NoError(t, err)

	encoded, err := codec.Encode(testClaims())
	require.NoError(t, err)
	assert.Len(t, strings.Split(encoded, "."), 3)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, testClaims(), decoded)
}

func TestCodec_RoundTrip_EmptyRoles(t *testing.T) {
	codec, err := NewWithKey([]byte("test-signing-key"), "v1")
	require.NoError(t, err)

	claims := testClaims()
	claims.Roles = nil

	encoded, err := codec.Encode(claims)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, []string{}, decoded.Roles)
}

func TestCodec_Decode_WrongKey(t *testing.T) {
	signer, err := NewWithKey([]byte("right-key"), "v1")
	require.NoError(t, err)
	verifier, err := NewWithKey([]byte("wrong-key"), "v1")
	require.NoError(t, err)

	encoded, err := signer.Encode(testClaims())
	require.NoError(t, err)

	_, err = verifier.Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Decode_MutatedSignature(t *testing.T) {
	codec, err := NewWithKey([]byte("test-signing-key"), "v1")
	require.NoError(t, err)

	encoded, err := codec.Encode(testClaims())
	require.NoError(t, err)

	// Flip one character in the signature segment.
	last := encoded[len(encoded)-1]
	mutated := encoded[:len(encoded)-1]
	if last == 'A' {
		mutated += "B"
	} else {
		mutated += "A"
	}

	_, err = codec.Decode(mutated)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Decode_Malformed(t *testing.T) {
	codec, err := NewWithKey([]byte("test-signing-key"), "v1")
	require.NoError(t, err)

	for _, tok := range []string{"", "not-a-token", "only.two"} {
		_, decodeErr := codec.Decode(tok)
		assert.ErrorIs(t, decodeErr, ErrMalformed, tok)
	}
}

func TestCodec_Decode_ExpiredClaimsStillVerify(t *testing.T) {
	// Expiry is enforced against the stored session; the codec itself must
	// hand back stale claims as long as the signature checks out.
	codec, err := NewWithKey([]byte("test-signing-key"), "v1")
	require.NoError(t, err)

	claims := testClaims()
	claims.IssuedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	claims.ExpiresAt = claims.IssuedAt.Add(time.Hour)

	encoded, err := codec.Encode(claims)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, claims.ExpiresAt, decoded.ExpiresAt)
}

func TestCodec_KeyRotation(t *testing.T) {
	oldCodec, err := NewWithKey([]byte("old-key"), "v1")
	require.NoError(t, err)

	rotated, err := New(Config{
		Keys:        map[string][]byte{"v1": []byte("old-key"), "v2": []byte("new-key")},
		ActiveKeyID: "v2",
	})
	require.NoError(t, err)

	oldToken, err := oldCodec.Encode(testClaims())
	require.NoError(t, err)

	// Tokens signed under the retired key still verify after rotation.
	decoded, err := rotated.Decode(oldToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", decoded.Email)

	// New tokens are signed with the new key and do not verify under a
	// codec that only holds the old key.
	newToken, err := rotated.Encode(testClaims())
	require.NoError(t, err)
	_, err = oldCodec.Decode(newToken)
	assert.ErrorIs(t, err, ErrUnknownKeyID)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{ActiveKeyID: ""})
	assert.Error(t, err)

	_, err = New(Config{Keys: map[string][]byte{"v1": nil}, ActiveKeyID: "v1"})
	assert.Error(t, err)

	_, err = NewWithKey([]byte("k"), "")
	assert.Error(t, err)
}
