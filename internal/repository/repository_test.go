package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRows = []string{
	"id", "email", "phone", "name", "avatar", "is_admin", "password_hash",
	"email_confirmed", "email_confirmed_at", "email_confirmation_token", "email_confirmation_sent_at",
	"phone_confirmed", "phone_confirmed_at", "phone_confirmation_token", "phone_confirmation_sent_at",
	"new_email", "email_change_token", "email_change_sent_at",
	"new_phone", "phone_change_token", "phone_change_sent_at",
	"recovery_token", "recovery_sent_at",
	"email_invitation_token", "phone_invitation_token", "invitation_sent_at", "invitation_accepted_at",
	"app_metadata", "user_metadata",
	"last_signin_at", "created_at", "updated_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func userRow(mock sqlmock.Sqlmock, id, email string, now time.Time) *sqlmock.Rows {
	return mock.NewRows(userRows).AddRow(
		id, email, nil, nil, nil, false, "hash",
		true, now, nil, nil,
		false, nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		nil, nil,
		nil, nil, nil, nil,
		[]byte(`{}`), []byte(`{}`),
		nil, now, now,
	)
}

func TestUserGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("a@example.com").
		WillReturnRows(userRow(mock, "u-1", "a@example.com", now))

	user, err := repo.GetByEmail(context.Background(), "a@example.com")

	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	require.NotNil(t, user.Email)
	assert.Equal(t, "a@example.com", *user.Email)
	assert.True(t, user.EmailConfirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserGetByRecoveryToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE recovery_token = \$1`).
		WithArgs("rec-token").
		WillReturnRows(userRow(mock, "u-2", "b@example.com", now))

	user, err := repo.GetByRecoveryToken(context.Background(), "rec-token")

	require.NoError(t, err)
	assert.Equal(t, "u-2", user.ID)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	email := "dup@example.com"
	err := repo.Create(context.Background(), &domain.User{Email: &email})

	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserCreateDuplicatePhone(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_phone_key"})

	phone := "+15551234567"
	err := repo.Create(context.Background(), &domain.User{Phone: &phone})

	assert.ErrorIs(t, err, ErrDuplicatePhone)
}

func TestUserCreateAssignsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	email := "new@example.com"
	user := &domain.User{Email: &email}

	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestUserUpdateNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.User{ID: "ghost"})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT .+ FROM users ORDER BY created_at DESC OFFSET \$1 LIMIT \$2`).
		WithArgs(0, 2).
		WillReturnRows(userRow(mock, "u-1", "a@example.com", now).AddRow(
			"u-2", "b@example.com", nil, nil, nil, false, "hash",
			true, now, nil, nil,
			false, nil, nil, nil,
			nil, nil, nil,
			nil, nil, nil,
			nil, nil,
			nil, nil, nil, nil,
			[]byte(`{}`), []byte(`{}`),
			nil, now, now,
		))

	users, total, err := repo.List(context.Background(), 0, 2)

	require.NoError(t, err)
	assert.Equal(t, 42, total)
	require.Len(t, users, 2)
	assert.Equal(t, "u-2", users[1].ID)
}

func TestTokenRotate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepository(db)

	mock.ExpectExec(`UPDATE refresh_tokens SET token = \$2, updated_at = \$3 WHERE token = \$1`).
		WithArgs("presented-value", "new-value", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Rotate(context.Background(), "presented-value", "new-value"))
	require.NoError(t, mock.ExpectationsWereMet())
}

// A value that was already rotated away matches no row, so a second
// presentation of it cannot succeed.
func TestTokenRotateSpentValue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepository(db)

	mock.ExpectExec(`UPDATE refresh_tokens SET token = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Rotate(context.Background(), "spent-value", "new-value")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenGetByToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM refresh_tokens WHERE token = \$1`).
		WithArgs("opaque").
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "token", "created_at", "updated_at"}).
			AddRow("t-1", "u-1", "opaque", now, now))

	token, err := repo.GetByToken(context.Background(), "opaque")

	require.NoError(t, err)
	assert.Equal(t, "u-1", token.UserID)
}

func TestWithTransactionCommits(t *testing.T) {
	db, mock := newMock(t)
	repos := NewRepositories(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET token = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repos.WithTransaction(context.Background(), func(tx *Repositories) error {
		return tx.Token.Rotate(context.Background(), "t-1", "next")
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repos := NewRepositories(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repos.WithTransaction(context.Background(), func(tx *Repositories) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
