package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: "Key (email)=(alice@example.com) already exists.",
	}

	err := MapDBError(pgErr)
	require.True(t, IsConflict(err))
	assert.Equal(t, "email", GetField(err))
}

func TestMapDBError_UniqueViolation_ColumnName(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "token"}

	err := MapDBError(pgErr)
	require.True(t, IsConflict(err))
	assert.Equal(t, "token", GetField(err))
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	assert.True(t, IsValidation(MapDBError(pgErr)))
}

func TestMapDBError_NotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "password_hash"}

	err := MapDBError(pgErr)
	require.True(t, IsValidation(err))
	assert.Equal(t, "password_hash", GetField(err))
}

func TestMapDBError_UnknownPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	assert.True(t, IsInternal(MapDBError(pgErr)))
}

func TestMapDBError_Passthrough(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	assert.Equal(t, plain, MapDBError(plain))
}
