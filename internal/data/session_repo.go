package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/user-auth-api/internal/data/pgxutil"
	domainauth "github.com/target/user-auth-api/internal/domain/auth"
	apperrors "github.com/target/user-auth-api/internal/errors"
	"github.com/target/user-auth-api/internal/ports"
)

// SessionRepo provides database operations for login sessions.
type SessionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.SessionStore = (*SessionRepo)(nil)

// NewSessionRepo creates a new SessionRepo with real time provider.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewSessionRepoWithTimeProvider creates a new SessionRepo with a custom time provider (useful for tests).
func NewSessionRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *SessionRepo {
	return &SessionRepo{DB: db, timeProvider: tp}
}

// sessionRow mirrors the sessions table.
type sessionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Token     string    `db:"token"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (r sessionRow) toDomain() domainauth.Session {
	return domainauth.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		Token:     r.Token,
		Status:    domainauth.SessionStatus(r.Status),
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

const sessionFindQuery = `
	SELECT id, user_id, token, status, created_at, expires_at
	FROM sessions
	WHERE token = $1 AND user_id = $2`

// FindByTokenAndUser retrieves the session stored under (token, userID).
// Expiry is not evaluated here; the caller decides what an expired session means.
func (r *SessionRepo) FindByTokenAndUser(ctx context.Context, token, userID string) (domainauth.Session, error) {
	if token == "" || userID == "" {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}

	var row sessionRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, sessionFindQuery, token, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[sessionRow])
		return err
	})
	if err != nil {
		return domainauth.Session{}, apperrors.MapDBError(err)
	}
	return row.toDomain(), nil
}

// Save upserts the session keyed by its ID. Only status and expiry are
// mutable; the token and owning user never change after creation.
func (r *SessionRepo) Save(ctx context.Context, sess domainauth.Session) (domainauth.Session, error) {
	if sess.Token == "" || sess.UserID == "" {
		return domainauth.Session{}, apperrors.Validation("session token and user id are required")
	}

	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now().UTC()
	}

	var row sessionRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO sessions (id, user_id, token, status, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				expires_at = EXCLUDED.expires_at
			RETURNING id, user_id, token, status, created_at, expires_at`,
			sess.ID,
			sess.UserID,
			sess.Token,
			string(sess.Status),
			createdAt,
			sess.ExpiresAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[sessionRow])
		return err
	})
	if err != nil {
		return domainauth.Session{}, apperrors.MapDBError(err)
	}
	return row.toDomain(), nil
}
