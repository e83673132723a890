package provider

import (
	"context"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/config"
)

type facebook struct {
	cfg        config.ProviderConfig
	client     *http.Client
	profileURL string
}

func newFacebook(cfg config.ProviderConfig) *facebook {
	return &facebook{
		cfg:        cfg,
		client:     newProfileClient(),
		profileURL: "https://graph.facebook.com/me?fields=email,name,picture",
	}
}

func (f *facebook) Name() string { return "facebook" }

func (f *facebook) AuthURL() string { return "https://www.facebook.com/v5.0/dialog/oauth" }

func (f *facebook) TokenURL() string { return "https://graph.facebook.com/v5.0/oauth/access_token" }

func (f *facebook) ClientID() string { return f.cfg.ClientID }

func (f *facebook) ClientSecret() string { return f.cfg.ClientSecret }

func (f *facebook) Scopes() []string { return []string{"email"} }

func (f *facebook) FetchUserData(ctx context.Context, accessToken string) (*UserData, error) {
	var profile struct {
		Email   *string `json:"email"`
		Name    *string `json:"name"`
		Picture *struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}

	if err := getJSON(ctx, f.client, f.profileURL, accessToken, &profile); err != nil {
		return nil, err
	}

	data := &UserData{
		Email: profile.Email,
		Name:  profile.Name,
		// Facebook only exposes addresses it has already verified.
		Verified: profile.Email != nil,
	}

	if profile.Picture != nil && profile.Picture.Data.URL != "" {
		url := profile.Picture.Data.URL
		data.Avatar = &url
	}

	return data, nil
}
