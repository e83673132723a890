package service

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/provider"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

type sentMessage struct {
	to   string
	body string
}

type fakeEmail struct{ sent []sentMessage }

func (f *fakeEmail) SendMail(_ context.Context, to, _, body string) error {
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return nil
}

type fakeSMS struct{ sent []sentMessage }

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return nil
}

type fixture struct {
	cfg   *config.Config
	deps  Deps
	mock  sqlmock.Sqlmock
	email *fakeEmail
	sms   *fakeSMS
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	t.Setenv("OPERATOR_TOKEN", "test-operator-token-that-is-at-least-32-characters")
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-at-least-32-characters-long")
	t.Setenv("GOOGLE_ENABLED", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "google-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "google-secret")
	cfg, err := config.LoadWithDefaults()
	require.NoError(t, err)

	// Tests hash with MinCost to keep the suite fast.
	cfg.Security.BCryptCost = bcrypt.MinCost

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	tokens := token.NewManager(&cfg.JWT, cfg.OperatorToken)
	email := &fakeEmail{}
	sms := &fakeSMS{}
	notifier, err := notify.NewNotifier(&cfg.Mail, cfg.SiteURL, email, sms, logger)
	require.NoError(t, err)

	return &fixture{
		cfg: cfg,
		deps: Deps{
			Config:   cfg,
			Repos:    repository.NewRepositories(db),
			Tokens:   tokens,
			Hooks:    hook.NewDispatcher(tokens, logger),
			Notifier: notifier,
			Logger:   logger,
		},
		mock:  mock,
		email: email,
		sms:   sms,
	}
}

func plainSignature() *token.OperatorSignature {
	return &token.OperatorSignature{SiteURL: "https://tenant.example.com"}
}

func signatureWithHook(url string) *token.OperatorSignature {
	return &token.OperatorSignature{
		SiteURL: "https://tenant.example.com",
		FunctionHooks: map[string]string{
			token.HookEventLogin:  url,
			token.HookEventSignup: url,
		},
	}
}

var userColumns = []string{
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

type rowSpec struct {
	id                string
	email             string
	passwordHash      any
	emailConfirmed    bool
	phoneConfirmed    bool
	confirmationToken any
	confirmSentAt     any
}

func userRowFrom(mock sqlmock.Sqlmock, spec rowSpec) *sqlmock.Rows {
	now := time.Now()
	return mock.NewRows(userColumns).AddRow(
		spec.id, spec.email, nil, nil, nil, false, spec.passwordHash,
		spec.emailConfirmed, nil, spec.confirmationToken, spec.confirmSentAt,
		spec.phoneConfirmed, nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		nil, nil,
		nil, nil, nil, nil,
		[]byte(`{}`), []byte(`{}`),
		nil, now, now,
	)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	_, err := svc.Signup(context.Background(), dto.SignupRequest{
		Email:    "a@example.com",
		Password: "short",
	}, plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 400, domainErr.Status)
	assert.Equal(t, "invalid_password_format", domainErr.Code)
}

func TestSignupDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Accounts.DisableSignup = true
	svc := NewAuthService(f.deps)

	_, err := svc.Signup(context.Background(), dto.SignupRequest{
		Email:    "a@example.com",
		Password: "password123",
	}, plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "signup_disabled", domainErr.Code)
}

func TestSignupRequiresChannel(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	_, err := svc.Signup(context.Background(), dto.SignupRequest{Password: "password123"}, plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "email_or_phone_number_required", domainErr.Code)
}

func TestSignupCreatesUnconfirmedUser(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	user, err := svc.Signup(context.Background(), dto.SignupRequest{
		Email:    "new@example.com",
		Password: "password123",
		Name:     "New Person",
	}, plainSignature())

	require.NoError(t, err)
	assert.False(t, user.Confirmed())
	require.NotNil(t, user.EmailConfirmationToken)
	assert.Len(t, *user.EmailConfirmationToken, 100)

	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "new@example.com", f.email.sent[0].to)
	assert.Contains(t, f.email.sent[0].body, *user.EmailConfirmationToken)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSignupAutoConfirm(t *testing.T) {
	f := newFixture(t)
	f.cfg.Accounts.AutoConfirm = true
	svc := NewAuthService(f.deps)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	user, err := svc.Signup(context.Background(), dto.SignupRequest{
		Email:    "auto@example.com",
		Password: "password123",
	}, plainSignature())

	require.NoError(t, err)
	assert.True(t, user.EmailConfirmed)
	assert.Nil(t, user.EmailConfirmationToken)
	assert.Empty(t, f.email.sent)
}

func TestSignupConfirmedDuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{id: "u-1", email: "dup@example.com", emailConfirmed: true}))
	f.mock.ExpectRollback()

	_, err := svc.Signup(context.Background(), dto.SignupRequest{
		Email:    "dup@example.com",
		Password: "password123",
	}, plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 409, domainErr.Status)
	assert.Equal(t, "email_registered", domainErr.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSignupUnconfirmedDuplicateIsReplaced(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{id: "u-old", email: "dup@example.com"}))
	f.mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("u-old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	user, err := svc.Signup(context.Background(), dto.SignupRequest{
		Email:    "dup@example.com",
		Password: "password123",
	}, plainSignature())

	require.NoError(t, err)
	assert.NotEqual(t, "u-old", user.ID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	_, missingErr := svc.Login(context.Background(), "ghost@example.com", "password123", plainSignature())

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "real@example.com",
			passwordHash:   hashOf(t, "correct-password"),
			emailConfirmed: true,
		}))
	_, wrongErr := svc.Login(context.Background(), "real@example.com", "wrong-password", plainSignature())

	var missing, wrong *domain.Error
	require.ErrorAs(t, missingErr, &missing)
	require.ErrorAs(t, wrongErr, &wrong)
	assert.Equal(t, missing, wrong)
	assert.Equal(t, 401, wrong.Status)
}

func TestLoginRequiresConfirmedChannel(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	// A confirmed phone does not unlock the unconfirmed email as a username.
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "pending@example.com",
			passwordHash:   hashOf(t, "password123"),
			phoneConfirmed: true,
		}))

	_, err := svc.Login(context.Background(), "pending@example.com", "password123", plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 412, domainErr.Status)
	assert.Equal(t, "user_not_confirmed", domainErr.Code)
}

func TestLoginUnconfirmed(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "pending@example.com",
			passwordHash: hashOf(t, "password123"),
		}))

	_, err := svc.Login(context.Background(), "pending@example.com", "password123", plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 412, domainErr.Status)
	assert.Equal(t, "user_not_confirmed", domainErr.Code)
}

func TestLoginIssuesVerifiableSession(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "real@example.com",
			passwordHash:   hashOf(t, "password123"),
			emailConfirmed: true,
		}))
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE users SET last_signin_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	pair, err := svc.Login(context.Background(), "real@example.com", "password123", plainSignature())

	require.NoError(t, err)
	assert.Len(t, pair.RefreshToken, 50)
	assert.Equal(t, "bearer", pair.TokenType)

	claims, err := f.deps.Tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLoginHookRejectionIssuesNoTokens(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"blocked"}`))
	}))
	defer server.Close()

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "real@example.com",
			passwordHash:   hashOf(t, "password123"),
			emailConfirmed: true,
		}))
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	pair, err := svc.Login(context.Background(), "real@example.com", "password123", signatureWithHook(server.URL))

	assert.Nil(t, pair)
	var hookErr *hook.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, http.StatusForbidden, hookErr.Status)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM refresh_tokens WHERE token = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Refresh(context.Background(), "bogus", plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 400, domainErr.Status)
	assert.Equal(t, "invalid_refresh_token", domainErr.Code)
}

func TestRefreshRotatesEvenWhenHookRejects(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)
	now := time.Now()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"blocked"}`))
	}))
	defer server.Close()

	f.mock.ExpectQuery(`SELECT .+ FROM refresh_tokens WHERE token = \$1`).
		WithArgs("presented-value").
		WillReturnRows(f.mock.NewRows([]string{"id", "user_id", "token", "created_at", "updated_at"}).
			AddRow("t-1", "u-1", "presented-value", now, now))
	f.mock.ExpectExec(`UPDATE refresh_tokens SET token = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{id: "u-1", email: "real@example.com", emailConfirmed: true}))
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := svc.Refresh(context.Background(), "presented-value", signatureWithHook(server.URL))

	var hookErr *hook.HookError
	require.ErrorAs(t, err, &hookErr)
	// Rotation ran before the hook; the mock proves the UPDATE landed.
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRefreshSpentValueRejected(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)
	now := time.Now()

	// Another redemption rotated the value between lookup and rotation; the
	// UPDATE matches no row and the presented value is refused.
	f.mock.ExpectQuery(`SELECT .+ FROM refresh_tokens WHERE token = \$1`).
		WillReturnRows(f.mock.NewRows([]string{"id", "user_id", "token", "created_at", "updated_at"}).
			AddRow("t-1", "u-1", "spent-value", now, now))
	f.mock.ExpectExec(`UPDATE refresh_tokens SET token = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.Refresh(context.Background(), "spent-value", plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "invalid_refresh_token", domainErr.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTokenUnsupportedGrant(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)

	_, err := svc.Token(context.Background(), dto.TokenRequest{GrantType: "client_credentials"}, plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "unsupported_grant_type", domainErr.Code)
}

func TestConfirmEmailIsSingleUse(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountService(f.deps)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email_confirmation_token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(userRowFrom(f.mock, rowSpec{id: "u-1", email: "a@example.com", confirmationToken: "tok-1"}))
	f.mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	user, err := svc.Confirm(context.Background(), ChannelEmail, "tok-1")
	require.NoError(t, err)
	assert.True(t, user.EmailConfirmed)
	assert.Nil(t, user.EmailConfirmationToken)

	// The consumed token no longer resolves.
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email_confirmation_token = \$1`).
		WithArgs("tok-1").
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectRollback()

	_, err = svc.Confirm(context.Background(), ChannelEmail, "tok-1")
	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 404, domainErr.Status)
}

func TestResendInsideCooldown(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "a@example.com",
			confirmationToken: "tok-1",
			confirmSentAt:     time.Now().Add(-10 * time.Second),
		}))

	err := svc.ResendConfirmation(context.Background(), "a@example.com", "")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 429, domainErr.Status)
	assert.Equal(t, "too_many_requests", domainErr.Code)
}

func TestResendAfterCooldown(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "a@example.com",
			confirmationToken: "tok-1",
			confirmSentAt:     time.Now().Add(-5 * time.Minute),
		}))
	f.mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.ResendConfirmation(context.Background(), "a@example.com", ""))
	require.Len(t, f.email.sent, 1)
	assert.NotContains(t, f.email.sent[0].body, "tok-1")
}

func TestResetRevealsNothingForUnknownUser(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)

	assert.NoError(t, svc.RequestReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.email.sent)
}

func TestConfirmResetUnknownToken(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountService(f.deps)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE recovery_token = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectRollback()

	err := svc.ConfirmReset(context.Background(), "bogus", "password123")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "recovery_token_not_found", domainErr.Code)
}

func TestChangePasswordWrongOld(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountService(f.deps)

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{
			id: "u-1", email: "a@example.com",
			passwordHash:   hashOf(t, "actual-old"),
			emailConfirmed: true,
		}))

	err := svc.ChangePassword(context.Background(), "u-1", "guessed-old", "new-password-1")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "invalid_old_password", domainErr.Code)
}

func TestInviteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.deps)

	_, err := svc.Invite(context.Background(), &domain.User{ID: "u-1"}, dto.InviteRequest{Email: "a@example.com"})

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 403, domainErr.Status)
	assert.Equal(t, "admin_only", domainErr.Code)
}

func TestInviteRequiresExactlyOneChannel(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.deps)
	admin := &domain.User{ID: "adm", IsAdmin: true}

	_, err := svc.Invite(context.Background(), admin, dto.InviteRequest{
		Email: "a@example.com",
		Phone: "+15551234567",
	})
	assert.Error(t, err)

	_, err = svc.Invite(context.Background(), admin, dto.InviteRequest{})
	assert.Error(t, err)
}

func TestAdminSelfDeleteForbidden(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.deps)

	err := svc.DeleteUser(context.Background(), &domain.User{ID: "adm", IsAdmin: true}, "adm")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "self_action_forbidden", domainErr.Code)
}

func TestListUsersAdminOnly(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.deps)

	_, _, err := svc.ListUsers(context.Background(), &domain.User{ID: "u-1"}, 1, 50)

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 403, domainErr.Status)
}

func TestAuthorizeURLUnknownProvider(t *testing.T) {
	f := newFixture(t)
	svc := NewOAuthService(f.deps)

	_, err := svc.AuthorizeURL(context.Background(), "myspace")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "invalid_provider", domainErr.Code)
}

func TestAuthorizeURLDisabledProvider(t *testing.T) {
	f := newFixture(t)
	svc := NewOAuthService(f.deps)

	_, err := svc.AuthorizeURL(context.Background(), "facebook")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "provider_disabled", domainErr.Code)
}

func TestAuthorizeURLCarriesState(t *testing.T) {
	f := newFixture(t)
	svc := NewOAuthService(f.deps)

	url, err := svc.AuthorizeURL(context.Background(), "google")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://accounts.google.com/o/oauth2/auth"))
	assert.Contains(t, url, "client_id=google-client")
	assert.Contains(t, url, "state=")
}

func TestCallbackRejectsBadState(t *testing.T) {
	f := newFixture(t)
	svc := NewOAuthService(f.deps)

	_, err := svc.Callback(context.Background(), "code", "tampered-state", plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "invalid_state", domainErr.Code)
}

// stubbedOAuthService replaces the vendor round trips with canned results so
// callback tests only exercise account resolution.
func stubbedOAuthService(f *fixture, profile *provider.UserData) *OAuthService {
	svc := NewOAuthService(f.deps)
	svc.exchange = func(_ context.Context, _ *oauth2.Config, _ string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "vendor-access"}, nil
	}
	svc.fetchProfile = func(_ context.Context, _ provider.Provider, _ string) (*provider.UserData, error) {
		return profile, nil
	}
	return svc
}

func googleProfile(email string, verified bool) *provider.UserData {
	return &provider.UserData{Email: &email, Verified: verified}
}

func googleState(t *testing.T, f *fixture) string {
	t.Helper()
	state, err := f.deps.Tokens.SignProviderState("google")
	require.NoError(t, err)
	return state
}

func TestCallbackLogsInExistingUser(t *testing.T) {
	f := newFixture(t)
	svc := stubbedOAuthService(f, googleProfile("fed@example.com", true))

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnRows(userRowFrom(f.mock, rowSpec{id: "u-1", email: "fed@example.com", emailConfirmed: true}))
	f.mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE users SET last_signin_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	pair, err := svc.Callback(context.Background(), "code", googleState(t, f), plainSignature())

	require.NoError(t, err)
	claims, err := f.deps.Tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackSignsUpVerifiedProfile(t *testing.T) {
	f := newFixture(t)
	svc := stubbedOAuthService(f, googleProfile("new@example.com", true))

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE users SET last_signin_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	pair, err := svc.Callback(context.Background(), "code", googleState(t, f), plainSignature())

	require.NoError(t, err)
	assert.Len(t, pair.RefreshToken, 50)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackSignupDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Accounts.DisableSignup = true
	svc := stubbedOAuthService(f, googleProfile("new@example.com", true))

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectRollback()

	_, err := svc.Callback(context.Background(), "code", googleState(t, f), plainSignature())

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "signup_disabled", domainErr.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackUnverifiedProfileRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	svc := stubbedOAuthService(f, googleProfile("new@example.com", false))

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	pair, err := svc.Callback(context.Background(), "code", googleState(t, f), plainSignature())

	assert.Nil(t, pair)
	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 412, domainErr.Status)
	assert.Equal(t, "user_not_confirmed", domainErr.Code)

	// The committed confirmation token went out to the federated address.
	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "new@example.com", f.email.sent[0].to)
	assert.Contains(t, f.email.sent[0].body, "confirmation_token=")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackAutoConfirmTrustsUnverifiedProfile(t *testing.T) {
	f := newFixture(t)
	f.cfg.Accounts.AutoConfirm = true
	svc := stubbedOAuthService(f, googleProfile("new@example.com", false))

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE users SET last_signin_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	pair, err := svc.Callback(context.Background(), "code", googleState(t, f), plainSignature())

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Empty(t, f.email.sent)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackHookRejectionRollsBackSignup(t *testing.T) {
	f := newFixture(t)
	svc := stubbedOAuthService(f, googleProfile("new@example.com", true))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"blocked"}`))
	}))
	defer server.Close()

	// The freshly created account lives inside the same transaction as the
	// hook dispatch, so the rejection takes the INSERT down with it.
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectRollback()

	pair, err := svc.Callback(context.Background(), "code", googleState(t, f), signatureWithHook(server.URL))

	assert.Nil(t, pair)
	var hookErr *hook.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, http.StatusForbidden, hookErr.Status)
	require.NoError(t, f.mock.ExpectationsWereMet())
}
