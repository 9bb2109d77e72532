package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth   AuthServiceInterface
	Logger *slog.Logger // Logger for HTTP request logs (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{Svc: services.Auth, Logger: logger}
	registerAuthRoutes(mux, authHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.Handle("POST /auth/signup", http.HandlerFunc(h.SignUp))
	mux.Handle("POST /auth/login", http.HandlerFunc(h.Login))
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("POST /auth/validate", http.HandlerFunc(h.Validate))

	mux.Handle("GET /auth/me", RequireAuth(h.Svc)(http.HandlerFunc(h.Me)))
}
