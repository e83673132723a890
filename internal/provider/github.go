package provider

import (
	"context"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/config"
)

type github struct {
	cfg        config.ProviderConfig
	client     *http.Client
	profileURL string
	emailsURL  string
}

func newGithub(cfg config.ProviderConfig) *github {
	return &github{
		cfg:        cfg,
		client:     newProfileClient(),
		profileURL: "https://api.github.com/user",
		emailsURL:  "https://api.github.com/user/emails",
	}
}

func (g *github) Name() string { return "github" }

func (g *github) AuthURL() string { return "https://github.com/login/oauth/authorize" }

func (g *github) TokenURL() string { return "https://github.com/login/oauth/access_token" }

func (g *github) ClientID() string { return g.cfg.ClientID }

func (g *github) ClientSecret() string { return g.cfg.ClientSecret }

func (g *github) Scopes() []string { return []string{"user:email"} }

func (g *github) FetchUserData(ctx context.Context, accessToken string) (*UserData, error) {
	var profile struct {
		Name      *string `json:"name"`
		AvatarURL *string `json:"avatar_url"`
	}

	if err := getJSON(ctx, g.client, g.profileURL, accessToken, &profile); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}

	if err := getJSON(ctx, g.client, g.emailsURL, accessToken, &emails); err != nil {
		return nil, err
	}

	data := &UserData{
		Name:   profile.Name,
		Avatar: profile.AvatarURL,
	}

	for _, email := range emails {
		if email.Primary {
			addr := email.Email
			data.Email = &addr
			data.Verified = email.Verified
			break
		}
	}

	return data, nil
}
