package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/user-auth-api/internal/data"
	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	apperrors "github.com/target/user-auth-api/internal/errors"
	"github.com/target/user-auth-api/internal/mocks"
	mockauth "github.com/target/user-auth-api/internal/mocks/auth"
	"github.com/target/user-auth-api/internal/testutil"
	"go.uber.org/mock/gomock"
)

type authFixture struct {
	svc      *AuthService
	users    *mockauth.MemoryUserStore
	sessions *mockauth.MemorySessionStore
	codec    *mockauth.StaticCodec
	clock    *data.FixedTimeProvider
	metrics  *recordingSink
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:    mockauth.NewMemoryUserStore(),
		sessions: mockauth.NewMemorySessionStore(),
		codec:    &mockauth.StaticCodec{},
		clock:    data.NewFixedTimeProvider(testutil.TestTime()),
		metrics:  &recordingSink{},
	}
	f.svc = NewAuthService(AuthServiceOptions{
		Users:    f.users,
		Sessions: f.sessions,
		Codec:    f.codec,
		Hasher:   mockauth.PlainHasher{},
		TokenTTL: time.Hour,
		Metrics:  f.metrics,
		Now:      f.clock.Now,
	})
	return f
}

func (f *authFixture) signUp(t *testing.T, email, password string) domainauth.User {
	t.Helper()
	user, err := f.svc.SignUp(context.Background(), SignUpParams{Email: email, Password: password})
	require.NoError(t, err)
	return user
}

func (f *authFixture) login(t *testing.T, email, password string) LoginResult {
	t.Helper()
	res, err := f.svc.Login(context.Background(), email, password)
	require.NoError(t, err)
	return res
}

// recordingSink captures emitted counters for assertions.
type recordingSink struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (r *recordingSink) Count(name string, value int64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int64)
	}
	r.counts[name] += value
}

func (r *recordingSink) Timing(string, time.Duration, map[string]string) {}

func (r *recordingSink) count(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func TestAuthService_SignUp(t *testing.T) {
	f := newAuthFixture(t)

	user := f.signUp(t, "  Alice@Example.com ", "pw123")

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, []domainauth.Role{}, user.Roles)
	assert.NotEqual(t, "pw123", user.PasswordHash)
	assert.Equal(t, testutil.TestTime(), user.CreatedAt)
	assert.Equal(t, int64(1), f.metrics.count("signup.success"))
}

func TestAuthService_SignUp_WithRoles(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.SignUp(context.Background(), SignUpParams{
		Email:    "admin@example.com",
		Password: "pw123",
		Roles:    []domainauth.Role{domainauth.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin}, user.Roles)
}

func TestAuthService_SignUp_Duplicate(t *testing.T) {
	f := newAuthFixture(t)

	f.signUp(t, "alice@example.com", "pw123")

	_, err := f.svc.SignUp(context.Background(), SignUpParams{Email: "alice@example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, 1, f.users.Len())

	// Case only differs after normalization; still a duplicate.
	_, err = f.svc.SignUp(context.Background(), SignUpParams{Email: "ALICE@example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestAuthService_SignUp_ConcurrentDuplicateSurfacesConflict(t *testing.T) {
	// The pre-check misses a concurrent signup; the store's conflict error
	// must still come back as ErrDuplicateUser.
	f := newAuthFixture(t)
	f.users.SaveFunc = func(_ context.Context, _ domainauth.User) (domainauth.User, error) {
		return domainauth.User{}, apperrors.Conflict("This value already exists.")
	}

	_, err := f.svc.SignUp(context.Background(), SignUpParams{Email: "race@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestAuthService_SignUp_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params SignUpParams
		field  string
	}{
		{"empty email", SignUpParams{Password: "pw"}, "email"},
		{"not an email", SignUpParams{Email: "nope", Password: "pw"}, "email"},
		{"empty password", SignUpParams{Email: "a@b.com"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SignUp(ctx, tc.params)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tc.field, apperrors.GetField(err))
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	user := f.signUp(t, "alice@example.com", "pw123")

	res := f.login(t, "alice@example.com", "pw123")

	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, res.Token, res.Session.Token)
	assert.Equal(t, user.ID, res.Session.UserID)
	assert.Equal(t, domainauth.SessionActive, res.Session.Status)
	assert.Equal(t, testutil.TestTime().Add(time.Hour), res.Session.ExpiresAt)

	claims, err := f.codec.Decode(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, testutil.TestTime(), claims.IssuedAt)
	assert.Equal(t, testutil.TestTime().Add(time.Hour), claims.ExpiresAt)

	assert.Equal(t, int64(1), f.metrics.count("login.success"))
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "ghost@example.com", "pw123")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, int64(1), f.metrics.count("login.failure"))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")

	_, err := f.svc.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestAuthService_Login_EachLoginMintsOwnSession(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")

	first := f.login(t, "alice@example.com", "pw123")
	f.clock.AddTime(time.Minute)
	second := f.login(t, "alice@example.com", "pw123")

	require.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 2, f.sessions.Len())

	// Ending one session leaves the other untouched.
	require.NoError(t, f.svc.Logout(context.Background(), first.Token, first.User.ID))

	status, err := f.svc.Validate(context.Background(), second.Token, second.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionActive, status)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")

	require.NoError(t, f.svc.Logout(context.Background(), res.Token, res.User.ID))

	sess, err := f.sessions.FindByTokenAndUser(context.Background(), res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionEnded, sess.Status)
}

func TestAuthService_Logout_UnknownSession(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.Logout(context.Background(), "no-such-token", "no-such-user")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAuthService_Logout_AlreadyEndedIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := mocks.NewMockSessionStore(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Users:    mockauth.NewMemoryUserStore(),
		Sessions: sessions,
		Codec:    &mockauth.StaticCodec{},
		Hasher:   mockauth.PlainHasher{},
	})

	sessions.EXPECT().
		FindByTokenAndUser(gomock.Any(), "tok", "user-1").
		Return(domainauth.Session{ID: "s1", UserID: "user-1", Token: "tok", Status: domainauth.SessionEnded}, nil)
	// No Save expected; an ENDED session is left alone.

	assert.NoError(t, svc.Logout(context.Background(), "tok", "user-1"))
}

func TestAuthService_Validate_Active(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")

	status, err := f.svc.Validate(context.Background(), res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionActive, status)
}

func TestAuthService_Validate_EndedAfterLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")
	require.NoError(t, f.svc.Logout(context.Background(), res.Token, res.User.ID))

	status, err := f.svc.Validate(context.Background(), res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionEnded, status)
}

func TestAuthService_Validate_ExpiryEndsSession(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")

	f.clock.AddTime(time.Hour + time.Minute)

	status, err := f.svc.Validate(context.Background(), res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionEnded, status)

	// The lazy transition is persisted, not just reported.
	sess, err := f.sessions.FindByTokenAndUser(context.Background(), res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionEnded, sess.Status)
}

func TestAuthService_Validate_ExactlyAtExpiryIsEnded(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")

	f.clock.SetTime(res.Session.ExpiresAt)

	status, err := f.svc.Validate(context.Background(), res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionEnded, status)
}

func TestAuthService_Validate_BadSignature(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")

	// A token minted under a different key must be rejected outright, even
	// though a session exists for this user.
	otherCodec := &mockauth.StaticCodec{Marker: "other-key"}
	forged, err := otherCodec.Encode(domainauth.Claims{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Validate(context.Background(), forged, res.User.ID)
	assert.True(t, apperrors.IsInvalidToken(err))
}

func TestAuthService_Validate_UnknownSession(t *testing.T) {
	f := newAuthFixture(t)

	token, err := f.codec.Encode(domainauth.Claims{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Validate(context.Background(), token, "no-such-user")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAuthService_Validate_TokenScopedToUser(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	bob := f.signUp(t, "bob@example.com", "pw456")
	res := f.login(t, "alice@example.com", "pw123")

	// Alice's token presented with Bob's user id resolves no session.
	_, err := f.svc.Validate(context.Background(), res.Token, bob.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAuthService_Validate_StoreErrorPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := mocks.NewMockSessionStore(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Users:    mockauth.NewMemoryUserStore(),
		Sessions: sessions,
		Codec:    &mockauth.StaticCodec{},
		Hasher:   mockauth.PlainHasher{},
	})

	codec := &mockauth.StaticCodec{}
	token, err := codec.Encode(domainauth.Claims{Email: "alice@example.com"})
	require.NoError(t, err)

	storeErr := errors.New("connection reset")
	sessions.EXPECT().
		FindByTokenAndUser(gomock.Any(), token, "user-1").
		Return(domainauth.Session{}, storeErr)

	_, err = svc.Validate(context.Background(), token, "user-1")
	assert.ErrorIs(t, err, storeErr)
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture(t)
	user, err := f.svc.SignUp(context.Background(), SignUpParams{
		Email:    "alice@example.com",
		Password: "pw123",
		Roles:    []domainauth.Role{domainauth.RoleAdmin},
	})
	require.NoError(t, err)
	res := f.login(t, "alice@example.com", "pw123")

	principal, err := f.svc.Authenticate(context.Background(), res.Token, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "alice@example.com", principal.Email)
	assert.True(t, principal.HasRole(domainauth.RoleAdmin))
}

func TestAuthService_Authenticate_EndedSessionRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")
	require.NoError(t, f.svc.Logout(context.Background(), res.Token, res.User.ID))

	_, err := f.svc.Authenticate(context.Background(), res.Token, res.User.ID)
	assert.True(t, apperrors.IsInvalidToken(err))
}

func TestAuthService_FullLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.signUp(t, "alice@example.com", "pw123")
	res := f.login(t, "alice@example.com", "pw123")

	status, err := f.svc.Validate(ctx, res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionActive, status)

	require.NoError(t, f.svc.Logout(ctx, res.Token, res.User.ID))

	status, err = f.svc.Validate(ctx, res.Token, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionEnded, status)

	// Logging out again stays successful.
	assert.NoError(t, f.svc.Logout(ctx, res.Token, res.User.ID))
}
