package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	apperrors "github.com/target/user-auth-api/internal/errors"
	"github.com/target/user-auth-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	SignUp(ctx context.Context, params service.SignUpParams) (domainauth.User, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	Logout(ctx context.Context, token, userID string) error
	Validate(ctx context.Context, token, userID string) (domainauth.SessionStatus, error)
	Authenticate(ctx context.Context, token, userID string) (domainauth.Principal, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc    AuthServiceInterface
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type signUpRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

// SignUp handles account registration.
// POST /auth/signup.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	roles := make([]domainauth.Role, len(req.Roles))
	for i, name := range req.Roles {
		roles[i] = domainauth.Role(name)
	}

	user, err := h.Svc.SignUp(r.Context(), service.SignUpParams{
		Email:    req.Email,
		Password: req.Password,
		Roles:    roles,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      domainauth.User `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Login handles credential verification and session creation.
// POST /auth/login.
//
// Unknown email and wrong password both come back as 401 invalid_credentials
// so the endpoint cannot be used to probe which emails are registered.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperrors.IsNotFound(err) || apperrors.IsInvalidCredentials(err) {
			h.logger().Info("login rejected", "reason", apperrors.GetCode(err))
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: string(apperrors.ErrCodeInvalidCredentials),
				Err:     service.ErrInvalidCredentials,
			})
			return
		}
		WriteAppError(w, err)
		return
	}

	// Legacy clients read the token out of this header verbatim, colon
	// separator included, so its shape is load-bearing.
	w.Header().Add("Set-Cookie", "auth-token:"+result.Token)

	WriteJSON(w, http.StatusOK, loginResponse{
		User:      result.User,
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
	})
}

type sessionRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// credentials resolves the token and user id for session-scoped endpoints.
// The JSON body wins; headers are the fallback so clients can reuse the same
// credentials they send to authenticated routes.
func (h *AuthHandlers) credentials(r *http.Request, req sessionRequest) (string, string) {
	token := req.Token
	if token == "" {
		token = BearerToken(r)
	}
	userID := req.UserID
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	return token, userID
}

// Logout ends the session for (token, user).
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	token, userID := h.credentials(r, req)
	if err := h.Svc.Logout(r.Context(), token, userID); err != nil {
		WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Validate reports the session status for (token, user).
// POST /auth/validate.
func (h *AuthHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	token, userID := h.credentials(r, req)
	status, err := h.Svc.Validate(r.Context(), token, userID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// Me returns the principal resolved by RequireAuth.
// GET /auth/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     apperrors.InvalidToken("authentication required"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, principal)
}
