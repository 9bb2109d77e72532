package data

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/user-auth-api/internal/data/pgxutil"
	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	apperrors "github.com/target/user-auth-api/internal/errors"
	"github.com/target/user-auth-api/internal/ports"
)

// UserRepo provides database operations for user accounts.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.UserStore = (*UserRepo)(nil)

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

// userRow mirrors the users table. Roles are stored as a text array and
// converted to the domain role type on the way out.
type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Roles        []string  `db:"roles"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() domainauth.User {
	roles := make([]domainauth.Role, len(r.Roles))
	for i, name := range r.Roles {
		roles[i] = domainauth.Role(name)
	}
	return domainauth.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Roles:        roles,
		CreatedAt:    r.CreatedAt,
	}
}

const userFindByEmailQuery = `
	SELECT id, email, password_hash, roles, created_at
	FROM users
	WHERE email = $1`

// FindByEmail retrieves the user registered under the given email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domainauth.User, error) {
	if strings.TrimSpace(email) == "" {
		return domainauth.User{}, apperrors.ValidationField("email", "email is required")
	}

	var row userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, userFindByEmailQuery, email)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if err != nil {
		return domainauth.User{}, apperrors.MapDBError(err)
	}
	return row.toDomain(), nil
}

// Save upserts a user keyed by its ID. Inserting a new user whose email is
// already registered fails on the email unique constraint and surfaces as a
// conflict error.
func (r *UserRepo) Save(ctx context.Context, user domainauth.User) (domainauth.User, error) {
	if user.ID == "" {
		return domainauth.User{}, apperrors.ValidationField("id", "user id is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return domainauth.User{}, apperrors.ValidationField("email", "email is required")
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now().UTC()
	}

	var row userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (id, email, password_hash, roles, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				password_hash = EXCLUDED.password_hash,
				roles = EXCLUDED.roles
			RETURNING id, email, password_hash, roles, created_at`,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.RoleNames(),
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if err != nil {
		return domainauth.User{}, apperrors.MapDBError(err)
	}
	return row.toDomain(), nil
}
