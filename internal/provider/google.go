package provider

import (
	"context"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/config"
)

type google struct {
	cfg        config.ProviderConfig
	client     *http.Client
	profileURL string
}

func newGoogle(cfg config.ProviderConfig) *google {
	return &google{
		cfg:        cfg,
		client:     newProfileClient(),
		profileURL: "https://www.googleapis.com/oauth2/v1/userinfo?alt=json",
	}
}

func (g *google) Name() string { return "google" }

func (g *google) AuthURL() string { return "https://accounts.google.com/o/oauth2/auth" }

func (g *google) TokenURL() string { return "https://oauth2.googleapis.com/token" }

func (g *google) ClientID() string { return g.cfg.ClientID }

func (g *google) ClientSecret() string { return g.cfg.ClientSecret }

func (g *google) Scopes() []string { return []string{"email", "profile"} }

func (g *google) FetchUserData(ctx context.Context, accessToken string) (*UserData, error) {
	var profile struct {
		Email         *string `json:"email"`
		Name          *string `json:"name"`
		VerifiedEmail bool    `json:"verified_email"`
		Picture       *string `json:"picture"`
	}

	if err := getJSON(ctx, g.client, g.profileURL, accessToken, &profile); err != nil {
		return nil, err
	}

	return &UserData{
		Email:    profile.Email,
		Name:     profile.Name,
		Avatar:   profile.Picture,
		Verified: profile.VerifiedEmail,
	}, nil
}
