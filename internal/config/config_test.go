package config

import (
	"context"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("OPERATOR_TOKEN", "test-operator-token-that-is-at-least-32-characters")
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-at-least-32-characters-long")

	ctx := context.Background()
	cfg, err := Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected Server.Port to be '8080', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected Server.Host to be '0.0.0.0', got '%s'", cfg.Server.Host)
	}

	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("Expected Server.ReadTimeout to be 15s, got %v", cfg.Server.ReadTimeout.Duration)
	}

	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Expected Postgres.Host to be 'localhost', got '%s'", cfg.Postgres.Host)
	}

	if cfg.JWT.Alg != "HS256" {
		t.Errorf("Expected JWT.Alg to be 'HS256', got '%s'", cfg.JWT.Alg)
	}

	if cfg.JWT.Exp.Duration != 15*time.Minute {
		t.Errorf("Expected JWT.Exp to be 15m, got %v", cfg.JWT.Exp.Duration)
	}

	if cfg.JWT.Aud != "gatehouse" {
		t.Errorf("Expected JWT.Aud to be 'gatehouse', got '%s'", cfg.JWT.Aud)
	}

	if cfg.Security.BCryptCost != 12 {
		t.Errorf("Expected Security.BCryptCost to be 12, got %d", cfg.Security.BCryptCost)
	}

	if cfg.Accounts.AutoConfirm {
		t.Error("Expected Accounts.AutoConfirm to default to false")
	}

	if !cfg.Accounts.AdminOnlyList {
		t.Error("Expected Accounts.AdminOnlyList to default to true")
	}

	if cfg.Accounts.MinutesBetweenResend != 1 {
		t.Errorf("Expected Accounts.MinutesBetweenResend to be 1, got %d", cfg.Accounts.MinutesBetweenResend)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be 'development', got '%s'", cfg.Env)
	}
}

func TestLoadPasswordRuleDefaults(t *testing.T) {
	t.Setenv("OPERATOR_TOKEN", "test-operator-token-that-is-at-least-32-characters")
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-at-least-32-characters-long")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Accounts.PasswordRule.MatchString("short") {
		t.Error("Expected default password rule to reject passwords shorter than 8 characters")
	}

	if !cfg.Accounts.PasswordRule.MatchString("password1") {
		t.Error("Expected default password rule to accept 'password1'")
	}

	if !cfg.Accounts.EmailRule.MatchString("a@b.com") {
		t.Error("Expected default email rule to accept 'a@b.com'")
	}

	if !cfg.Accounts.PhoneRule.MatchString("+251911234567") {
		t.Error("Expected default phone rule to accept '+251911234567'")
	}

	if cfg.Accounts.PhoneRule.MatchString("not-a-phone") {
		t.Error("Expected default phone rule to reject 'not-a-phone'")
	}
}

func TestLoadRejectsShortOperatorToken(t *testing.T) {
	t.Setenv("OPERATOR_TOKEN", "too-short")
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-at-least-32-characters-long")

	if _, err := Load(context.Background()); err == nil {
		t.Error("Expected Load to fail with a short operator token")
	}
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("OPERATOR_TOKEN", "test-operator-token-that-is-at-least-32-characters")
	t.Setenv("JWT_SECRET", "short")

	if _, err := Load(context.Background()); err == nil {
		t.Error("Expected Load to fail with a short jwt secret")
	}
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	t.Setenv("OPERATOR_TOKEN", "test-operator-token-that-is-at-least-32-characters")
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-at-least-32-characters-long")
	t.Setenv("JWT_ALGORITHM", "XX256")

	if _, err := Load(context.Background()); err == nil {
		t.Error("Expected Load to fail with an unknown algorithm")
	}
}

func TestDurationDays(t *testing.T) {
	var d Duration

	if err := d.EnvDecode(context.Background(), "7d"); err != nil {
		t.Fatalf("Failed to decode duration: %v", err)
	}

	if d.Duration != 7*24*time.Hour {
		t.Errorf("Expected 7d to decode to 168h, got %v", d.Duration)
	}
}
