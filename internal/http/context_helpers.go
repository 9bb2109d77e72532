package httpx

import (
	"context"

	domainauth "github.com/target/user-auth-api/internal/domain/auth"
)

// principalKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type principalKey struct{}

// SetPrincipalInContext returns a child context that carries the authenticated principal.
func SetPrincipalInContext(ctx context.Context, p domainauth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipalFromContext returns the principal from context and a boolean indicating presence.
func GetPrincipalFromContext(ctx context.Context) (domainauth.Principal, bool) {
	if p, ok := ctx.Value(principalKey{}).(domainauth.Principal); ok {
		return p, true
	}
	return domainauth.Principal{}, false
}
