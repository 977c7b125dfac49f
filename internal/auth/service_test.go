package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewService(NewRepository(db), newTestTokenManager(t)), mock
}

func userRow(t *testing.T, id, email, password string) *sqlmock.Rows {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "surname", "created_at", "updated_at"}).
		AddRow(id, email, hash, "A", "B", now, now)
}

func TestLogin_Success(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery("SELECT failed_attempts, locked_until").
		WithArgs("a@b.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("a@b.com").
		WillReturnRows(userRow(t, "user-1", "a@b.com", "secret123"))
	mock.ExpectExec("DELETE FROM login_attempts").
		WithArgs("a@b.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pair, err := service.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)

	claims, err := service.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	refreshClaims, err := service.Tokens().Validate(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery("SELECT failed_attempts, locked_until").
		WithArgs("a@b.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("a@b.com").
		WillReturnRows(userRow(t, "user-1", "a@b.com", "secret123"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT failed_attempts, locked_until").
		WithArgs("a@b.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO login_attempts").
		WithArgs("a@b.com", 1, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pair, err := service.Login(context.Background(), "a@b.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, pair.AccessToken)
	assert.Empty(t, pair.RefreshToken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_UnknownEmail(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery("SELECT failed_attempts, locked_until").
		WithArgs("nobody@b.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("nobody@b.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT failed_attempts, locked_until").
		WithArgs("nobody@b.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO login_attempts").
		WithArgs("nobody@b.com", 1, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := service.Login(context.Background(), "nobody@b.com", "secret123")
	// Same error as a wrong password: no credential enumeration.
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_Locked(t *testing.T) {
	service, mock := newTestService(t)

	lockedUntil := time.Now().UTC().Add(10 * time.Minute)
	mock.ExpectQuery("SELECT failed_attempts, locked_until").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "locked_until"}).AddRow(0, lockedUntil))

	_, err := service.Login(context.Background(), "a@b.com", "secret123")

	var locked ErrLoginLocked
	require.True(t, errors.As(err, &locked))
	assert.WithinDuration(t, lockedUntil, locked.Until, time.Second)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_EmptyCredentials(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Success(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "a@b.com", sqlmock.AnyArg(), "A", "B", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pair, err := service.Register(context.Background(), "A@B.com", "secret123", "A", "B")
	require.NoError(t, err)

	claims, err := service.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.UserID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_EmailTaken(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "a@b.com", sqlmock.AnyArg(), "A", "B", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := service.Register(context.Background(), "a@b.com", "secret123", "A", "B")
	assert.ErrorIs(t, err, ErrEmailTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_RotatesPair(t *testing.T) {
	service, _ := newTestService(t)

	original, err := service.Tokens().IssuePair("user-1")
	require.NoError(t, err)

	rotated, err := service.Refresh(original.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, original.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, original.RefreshToken, rotated.RefreshToken)

	oldClaims, err := service.ValidateAccess(original.AccessToken)
	require.NoError(t, err)
	newClaims, err := service.ValidateAccess(rotated.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, "user-1", newClaims.UserID)
	assert.False(t, newClaims.ExpiresAt.Before(oldClaims.ExpiresAt))

	// No revocation list: the old refresh token still rotates until it
	// expires on its own.
	again, err := service.Refresh(original.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, again.AccessToken)
}

func TestRefresh_RejectsInvalidTokens(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Refresh("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.Refresh("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// An access token must not pass as a refresh token.
	pair, err := service.Tokens().IssuePair("user-1")
	require.NoError(t, err)
	_, err = service.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := service.Tokens().issue("user-1", TokenTypeRefresh, -time.Minute)
	require.NoError(t, err)
	_, err = service.Refresh(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
