package hook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret        = "test-secret-key-that-is-at-least-32-characters-long"
	testOperatorToken = "test-operator-token-that-is-at-least-32-characters"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	cfg := &config.JWTConfig{
		Alg: "HS256",
		Aud: "gatehouse",
		Iss: "gatehouse",
		Exp: config.Duration{Duration: 15 * time.Minute},
	}
	cfg.UseKeys([]byte(testSecret), []byte(testSecret))

	return NewDispatcher(token.NewManager(cfg, testOperatorToken), zap.NewNop())
}

func signatureWithHooks(url string) *token.OperatorSignature {
	return &token.OperatorSignature{
		SiteURL: "https://example.com",
		FunctionHooks: map[string]string{
			token.HookEventLogin:  url,
			token.HookEventSignup: url,
		},
	}
}

func hookUser() *domain.User {
	email := "hook@example.com"
	return &domain.User{
		ID:    "22222222-2222-2222-2222-222222222222",
		Email: &email,
	}
}

func TestTriggerNoHookConfigured(t *testing.T) {
	d := newTestDispatcher(t)

	resp, err := d.Trigger(context.Background(), token.HookEventLogin, "", hookUser(), &token.OperatorSignature{SiteURL: "https://example.com"})

	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestTriggerSendsSignedPayload(t *testing.T) {
	d := newTestDispatcher(t)
	user := hookUser()

	var received map[string]any
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := d.Trigger(context.Background(), token.HookEventSignup, "google", user, signatureWithHooks(server.URL))

	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, "signup", received["event"])
	assert.Equal(t, "google", received["provider"])

	userPayload, ok := received["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, user.ID, userPayload["id"])

	parsed, err := jwt.Parse(authHeader, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
}

func TestTriggerMetadataOverrides(t *testing.T) {
	d := newTestDispatcher(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"app_metadata":{"plan":"pro"},"user_metadata":{"theme":"dark"},"note":"ok"}`))
	}))
	defer server.Close()

	resp, err := d.Trigger(context.Background(), token.HookEventLogin, "", hookUser(), signatureWithHooks(server.URL))

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, domain.JSONMap{"plan": "pro"}, resp.AppMetadata())
	assert.Equal(t, domain.JSONMap{"theme": "dark"}, resp.UserMetadata())
	assert.Equal(t, "ok", resp["note"])
}

func TestTriggerRejection(t *testing.T) {
	d := newTestDispatcher(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"blocked_domain","msg":"not allowed"}`))
	}))
	defer server.Close()

	resp, err := d.Trigger(context.Background(), token.HookEventLogin, "", hookUser(), signatureWithHooks(server.URL))

	assert.Nil(t, resp)

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, http.StatusForbidden, hookErr.Status)
	assert.Equal(t, "blocked_domain", hookErr.Body["code"])
}

func TestTriggerUnparseableBodies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"garbage success body", http.StatusOK, "not json", "hook_success_response_parsing_error"},
		{"garbage rejection body", http.StatusBadGateway, "<html>", "hook_error_response_parsing_error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDispatcher(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			resp, err := d.Trigger(context.Background(), token.HookEventLogin, "", hookUser(), signatureWithHooks(server.URL))

			assert.Nil(t, resp)

			var domainErr *domain.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, 422, domainErr.Status)
			assert.Equal(t, tc.code, domainErr.Code)
		})
	}
}

func TestTriggerTransportFailure(t *testing.T) {
	d := newTestDispatcher(t)

	resp, err := d.Trigger(context.Background(), token.HookEventLogin, "", hookUser(), signatureWithHooks("http://127.0.0.1:1"))

	assert.Nil(t, resp)

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 422, domainErr.Status)
	assert.Equal(t, "hook_error", domainErr.Code)
}
