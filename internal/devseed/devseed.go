// Package devseed creates well-known development accounts so a fresh local
// environment is usable without manual signup. It must never run in
// production.
package devseed

import (
	"context"
	"errors"
	"log/slog"

	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	"github.com/target/user-auth-api/internal/service"
)

type seedAccount struct {
	email    string
	password string
	roles    []domainauth.Role
}

var seedAccounts = []seedAccount{
	{email: "admin@localhost", password: "admin-dev-password", roles: []domainauth.Role{domainauth.RoleAdmin}},
	{email: "user@localhost", password: "user-dev-password", roles: []domainauth.Role{domainauth.RoleUser}},
}

// Seed registers the development accounts. Accounts that already exist are
// left untouched so Seed is safe to run on every startup.
func Seed(ctx context.Context, svc *service.AuthService, logger *slog.Logger) error {
	for _, acct := range seedAccounts {
		_, err := svc.SignUp(ctx, service.SignUpParams{
			Email:    acct.email,
			Password: acct.password,
			Roles:    acct.roles,
		})
		if err != nil {
			if errors.Is(err, service.ErrDuplicateUser) {
				continue
			}
			return err
		}
		logger.InfoContext(ctx, "seeded development account", "email", acct.email)
	}
	return nil
}
