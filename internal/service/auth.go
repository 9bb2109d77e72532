package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	apperrors "github.com/target/user-auth-api/internal/errors"
	"github.com/target/user-auth-api/internal/observability/statsd"
	"github.com/target/user-auth-api/internal/ports"
)

// Sentinel errors returned by AuthService. They are AppError values, so both
// errors.Is against the sentinel and the apperrors.Is* code helpers work.
var (
	// ErrUserNotFound is returned when no account exists for an email.
	ErrUserNotFound = apperrors.NotFound("user not found")
	// ErrDuplicateUser is returned when signing up an email that is already registered.
	ErrDuplicateUser = apperrors.Conflict("a user with this email already exists")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = apperrors.InvalidCredentials("invalid email or password")
	// ErrSessionNotFound is returned when no session exists for (token, user).
	ErrSessionNotFound = apperrors.NotFound("session not found")
)

// DefaultTokenTTL is the session and token lifetime used when none is configured.
const DefaultTokenTTL = 30 * 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users    ports.UserStore
	Sessions ports.SessionStore
	Codec    ports.TokenCodec
	Hasher   ports.PasswordHasher

	// TokenTTL bounds both the signed claims and the stored session.
	// Zero means DefaultTokenTTL.
	TokenTTL time.Duration

	// Metrics is optional; a nil sink drops all metrics.
	Metrics statsd.Sink

	// Now is injectable for tests. Zero means time.Now.
	Now func() time.Time
}

// AuthService implements account signup, login, logout, and session validation.
// Tokens are stateless signed claims; session state lives in the session store
// and is always consulted, so a verified token alone never proves liveness.
type AuthService struct {
	users    ports.UserStore
	sessions ports.SessionStore
	codec    ports.TokenCodec
	hasher   ports.PasswordHasher
	tokenTTL time.Duration
	metrics  statsd.Sink
	now      func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:    opts.Users,
		sessions: opts.Sessions,
		codec:    opts.Codec,
		hasher:   opts.Hasher,
		tokenTTL: ttl,
		metrics:  opts.Metrics,
		now:      now,
	}
}

// SignUpParams carries the input for SignUp.
type SignUpParams struct {
	Email    string
	Password string
	Roles    []domainauth.Role
}

// SignUp registers a new account. The email is normalized to lower case and
// must not already be registered. The plaintext password is hashed before it
// reaches the store and is never persisted.
func (s *AuthService) SignUp(ctx context.Context, params SignUpParams) (domainauth.User, error) {
	email := normalizeEmail(params.Email)
	if err := validateEmail(email); err != nil {
		return domainauth.User{}, err
	}
	if params.Password == "" {
		return domainauth.User{}, apperrors.ValidationField("password", "password is required")
	}

	// Fast duplicate check; the unique constraint on email still backstops
	// concurrent signups.
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		s.count("signup.failure", map[string]string{"reason": "duplicate"})
		return domainauth.User{}, ErrDuplicateUser
	} else if !apperrors.IsNotFound(err) {
		return domainauth.User{}, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return domainauth.User{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash password")
	}

	roles := params.Roles
	if roles == nil {
		roles = []domainauth.Role{}
	}

	user, err := s.users.Save(ctx, domainauth.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			s.count("signup.failure", map[string]string{"reason": "duplicate"})
			return domainauth.User{}, ErrDuplicateUser
		}
		return domainauth.User{}, err
	}

	s.count("signup.success", nil)
	return user, nil
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User    domainauth.User
	Session domainauth.Session
	Token   string
}

// Login verifies credentials and mints a signed token plus an ACTIVE session.
// Unknown email and wrong password are distinct errors here; the transport
// layer collapses both so callers cannot probe which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.count("login.failure", map[string]string{"reason": "unknown_user"})
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.count("login.failure", map[string]string{"reason": "bad_password"})
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)

	token, err := s.codec.Encode(domainauth.Claims{
		Email:     user.Email,
		Roles:     user.RoleNames(),
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "sign token")
	}

	sess, err := s.sessions.Save(ctx, domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     token,
		Status:    domainauth.SessionActive,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.count("login.success", nil)
	return LoginResult{User: user, Session: sess, Token: token}, nil
}

// Logout ends the session identified by (token, userID). Logging out a
// session that is already ENDED succeeds without touching the store.
func (s *AuthService) Logout(ctx context.Context, token, userID string) error {
	sess, err := s.sessions.FindByTokenAndUser(ctx, token, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return ErrSessionNotFound
		}
		return err
	}

	if sess.Status == domainauth.SessionEnded {
		return nil
	}

	sess.End()
	if _, err := s.sessions.Save(ctx, sess); err != nil {
		return err
	}

	s.count("logout.success", nil)
	return nil
}

// Validate reports the effective status of the session identified by
// (token, userID):
//   - token signature does not verify: hard invalid-token error
//   - no session stored for (token, user): ErrSessionNotFound
//   - stored ACTIVE and not yet expired: ACTIVE
//   - anything else (logged out, or past expiry): ENDED
//
// An expired session that is still marked ACTIVE in the store is transitioned
// to ENDED here, so the stored state converges with the reported one.
func (s *AuthService) Validate(ctx context.Context, token, userID string) (domainauth.SessionStatus, error) {
	if _, err := s.codec.Decode(token); err != nil {
		s.count("validate.result", map[string]string{"status": "invalid_token"})
		return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidToken, "token verification failed")
	}

	sess, err := s.sessions.FindByTokenAndUser(ctx, token, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", ErrSessionNotFound
		}
		return "", err
	}

	// A session is live strictly before its expiry instant.
	now := s.now()
	if sess.Status == domainauth.SessionActive && now.Before(sess.ExpiresAt) {
		s.count("validate.result", map[string]string{"status": "active"})
		return domainauth.SessionActive, nil
	}

	if sess.Status == domainauth.SessionActive {
		sess.End()
		if _, saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
			return "", saveErr
		}
	}

	s.count("validate.result", map[string]string{"status": "ended"})
	return domainauth.SessionEnded, nil
}

// Authenticate resolves the principal behind a live session. It is the
// middleware entry point: any failure means the request is unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token, userID string) (domainauth.Principal, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return domainauth.Principal{}, apperrors.Wrap(err, apperrors.ErrCodeInvalidToken, "token verification failed")
	}

	status, err := s.Validate(ctx, token, userID)
	if err != nil {
		return domainauth.Principal{}, err
	}
	if status != domainauth.SessionActive {
		return domainauth.Principal{}, apperrors.InvalidToken("session is no longer active")
	}

	roles := make([]domainauth.Role, len(claims.Roles))
	for i, r := range claims.Roles {
		roles[i] = domainauth.Role(r)
	}
	return domainauth.Principal{UserID: userID, Email: claims.Email, Roles: roles}, nil
}

func (s *AuthService) count(name string, tags map[string]string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count(name, 1, tags)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if !strings.Contains(email, "@") {
		return apperrors.ValidationField("email", "a valid email address is required")
	}
	return nil
}
