package token

import (
	"fmt"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the signed session claim set presented by end users. It is
// never persisted; identity resolution needs no database round trip, though
// admin checks still read the live is_admin flag.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email        *string        `json:"email,omitempty"`
	Phone        *string        `json:"phone,omitempty"`
	Name         *string        `json:"name,omitempty"`
	AppMetadata  domain.JSONMap `json:"app_metadata,omitempty"`
	UserMetadata domain.JSONMap `json:"user_metadata,omitempty"`
	Metadata     domain.JSONMap `json:"metadata,omitempty"`
}

// Manager signs and verifies all token kinds under the configured algorithm
// family. Keys are loaded once at startup and never change.
type Manager struct {
	cfg           *config.JWTConfig
	operatorToken []byte
}

// NewManager creates a token manager
func NewManager(cfg *config.JWTConfig, operatorToken string) *Manager {
	return &Manager{
		cfg:           cfg,
		operatorToken: []byte(operatorToken),
	}
}

// SignAccessToken builds and signs the session claim set for user. metadata
// carries webhook-provided values into the token; expiry is omitted when the
// configured TTL is zero or negative.
func (m *Manager) SignAccessToken(user *domain.User, audience string, metadata domain.JSONMap) (string, error) {
	now := time.Now()

	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			Audience: jwt.ClaimStrings{audience},
			Issuer:   m.cfg.Iss,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Email:        user.Email,
		Phone:        user.Phone,
		Name:         user.Name,
		AppMetadata:  user.AppMetadata,
		UserMetadata: user.UserMetadata,
		Metadata:     metadata,
	}

	if m.cfg.Exp.Duration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.cfg.Exp.Duration))
	}

	signed, err := jwt.NewWithClaims(m.cfg.SigningMethod(), claims).SignedString(m.cfg.SigningKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// VerifyAccessToken verifies signature and, when present, expiry.
func (m *Manager) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.cfg.Alg {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.cfg.VerificationKey(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid access token")
	}

	return claims, nil
}

// ExpiresIn returns the configured access token lifetime in seconds, zero when
// tokens never expire.
func (m *Manager) ExpiresIn() int {
	if m.cfg.Exp.Duration <= 0 {
		return 0
	}
	return int(m.cfg.Exp.Duration.Seconds())
}

// hookClaims is the lightweight claim set proving an outbound webhook call
// originated from this server. Not tied to any tenant secret.
type hookClaims struct {
	jwt.RegisteredClaims
}

const hookTokenTTL = time.Minute

// SignHookToken signs the short-lived header token carried on webhook calls.
func (m *Manager) SignHookToken() (string, error) {
	now := time.Now()

	claims := &hookClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Iss,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(hookTokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(m.cfg.SigningMethod(), claims).SignedString(m.cfg.SigningKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign hook token: %w", err)
	}

	return signed, nil
}
