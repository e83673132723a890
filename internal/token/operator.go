package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Hook event names resolvable through an operator signature.
const (
	HookEventLogin  = "login"
	HookEventSignup = "signup"
)

// OperatorSignature scopes a request to one tenant and authorizes which
// webhook URLs may be invoked. It is created out-of-band (cmd/operator) and
// presented on every inbound request; the server only verifies it.
type OperatorSignature struct {
	jwt.RegisteredClaims
	SiteURL       string            `json:"site_url"`
	RedirectURL   string            `json:"redirect_url"`
	FunctionHooks map[string]string `json:"function_hooks"`
}

// HookURL resolves the webhook URL for event. Webhooks are opt-in per tenant;
// a missing entry is not an error.
func (s *OperatorSignature) HookURL(event string) (string, bool) {
	if s.FunctionHooks == nil {
		return "", false
	}
	url, ok := s.FunctionHooks[event]
	return url, ok && url != ""
}

// SignOperatorSignature signs sig with the operator token. Operator
// signatures always use HS256 regardless of the session algorithm; the
// operator token is never exposed to end users.
func (m *Manager) SignOperatorSignature(sig *OperatorSignature) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sig).SignedString(m.operatorToken)
	if err != nil {
		return "", fmt.Errorf("failed to sign operator signature: %w", err)
	}

	return signed, nil
}

// VerifyOperatorSignature verifies an inbound operator signature.
func (m *Manager) VerifyOperatorSignature(signature string) (*OperatorSignature, error) {
	claims := &OperatorSignature{}

	token, err := jwt.ParseWithClaims(signature, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.operatorToken, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse operator signature: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid operator signature")
	}

	return claims, nil
}
