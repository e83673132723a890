package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
)

// Common resolution errors
var (
	// ErrUnknownProvider is returned for a provider name with no implementation
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderDisabled is returned when the provider is not enabled in configuration
	ErrProviderDisabled = errors.New("provider disabled")
)

// UserData is the profile a vendor exposes for the authenticated user.
type UserData struct {
	Email    *string
	Name     *string
	Avatar   *string
	Verified bool
}

// Provider is one third-party OAuth2 identity source.
type Provider interface {
	Name() string
	AuthURL() string
	TokenURL() string
	ClientID() string
	ClientSecret() string
	Scopes() []string
	FetchUserData(ctx context.Context, accessToken string) (*UserData, error)
}

// Resolve returns the provider implementation for name, rejecting unknown and
// disabled providers.
func Resolve(name string, cfg *config.ProvidersConfig) (Provider, error) {
	switch name {
	case "google":
		if !cfg.Google.Enabled {
			return nil, ErrProviderDisabled
		}
		return newGoogle(cfg.Google), nil
	case "facebook":
		if !cfg.Facebook.Enabled {
			return nil, ErrProviderDisabled
		}
		return newFacebook(cfg.Facebook), nil
	case "github":
		if !cfg.Github.Enabled {
			return nil, ErrProviderDisabled
		}
		return newGithub(cfg.Github), nil
	default:
		return nil, ErrUnknownProvider
	}
}

const fetchTimeout = 10 * time.Second

func newProfileClient() *http.Client {
	return &http.Client{Timeout: fetchTimeout}
}

// getJSON performs a bearer-authenticated GET and decodes the JSON response.
func getJSON(ctx context.Context, client *http.Client, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build profile request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode profile response: %w", err)
	}

	return nil
}
