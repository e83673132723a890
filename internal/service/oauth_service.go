package service

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/provider"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/token"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OAuthService implements third-party federation: building the vendor
// authorization redirect and redeeming the callback for a local session.
type OAuthService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	tokens   *token.Manager
	hooks    *hook.Dispatcher
	notifier *notify.Notifier
	sessions sessionIssuer
	logger   *zap.Logger

	// exchange and fetchProfile are swapped out in tests to avoid live
	// vendor round trips.
	exchange     func(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error)
	fetchProfile func(ctx context.Context, p provider.Provider, accessToken string) (*provider.UserData, error)
}

// NewOAuthService creates the OAuth federation service
func NewOAuthService(deps Deps) *OAuthService {
	return &OAuthService{
		cfg:      deps.Config,
		repos:    deps.Repos,
		tokens:   deps.Tokens,
		hooks:    deps.Hooks,
		notifier: deps.Notifier,
		sessions: sessionIssuer{
			tokens:   deps.Tokens,
			hooks:    deps.Hooks,
			audience: deps.Config.JWT.Aud,
			logger:   deps.Logger,
		},
		logger: deps.Logger,
		exchange: func(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
			return conf.Exchange(ctx, code)
		},
		fetchProfile: func(ctx context.Context, p provider.Provider, accessToken string) (*provider.UserData, error) {
			return p.FetchUserData(ctx, accessToken)
		},
	}
}

func (s *OAuthService) oauthConfig(p provider.Provider) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID(),
		ClientSecret: p.ClientSecret(),
		RedirectURL:  s.cfg.InstanceURL + "/authorize/callback",
		Scopes:       p.Scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL(),
			TokenURL: p.TokenURL(),
		},
	}
}

// AuthorizeURL resolves the provider and returns the vendor authorization URL
// carrying a short-lived signed state.
func (s *OAuthService) AuthorizeURL(ctx context.Context, providerName string) (string, error) {
	p, err := provider.Resolve(providerName, &s.cfg.Providers)
	if err != nil {
		if errors.Is(err, provider.ErrProviderDisabled) {
			return "", errProviderDisabled
		}
		return "", errInvalidProvider
	}

	state, err := s.tokens.SignProviderState(p.Name())
	if err != nil {
		s.logger.Error("failed to sign provider state", zap.Error(err))
		return "", domain.ErrInternal()
	}

	return s.oauthConfig(p).AuthCodeURL(state), nil
}

// Callback redeems the vendor code: verify state, exchange the code, fetch the
// profile, find or create the local account, then issue a session. The handler
// turns any error into a redirect back to the tenant's site.
func (s *OAuthService) Callback(ctx context.Context, code, state string, sig *token.OperatorSignature) (*domain.TokenPair, error) {
	providerName, err := s.tokens.VerifyProviderState(state)
	if err != nil {
		return nil, errInvalidState
	}

	p, err := provider.Resolve(providerName, &s.cfg.Providers)
	if err != nil {
		if errors.Is(err, provider.ErrProviderDisabled) {
			return nil, errProviderDisabled
		}
		return nil, errInvalidProvider
	}

	vendorToken, err := s.exchange(ctx, s.oauthConfig(p), code)
	if err != nil {
		s.logger.Warn("code exchange failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return nil, domain.NewError(400, "invalid_code", "Authorization code exchange failed")
	}

	profile, err := s.fetchProfile(ctx, p, vendorToken.AccessToken)
	if err != nil {
		s.logger.Warn("profile fetch failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return nil, domain.NewError(422, "profile_fetch_error", "Unable to fetch user profile")
	}
	if profile.Email == nil {
		return nil, errNoProviderEmail
	}

	// Account resolution, hook dispatch and session issuance share one
	// transaction: a hook rejection rolls back a freshly created account.
	var pair *domain.TokenPair
	var unconfirmed bool
	err = s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		user, created, err := s.findOrCreateUser(ctx, tx, profile)
		if err != nil {
			return err
		}

		event := token.HookEventLogin
		if created {
			event = token.HookEventSignup
		}

		if user.EmailConfirmed {
			pair, err = s.sessions.issue(ctx, tx, user, providerName, event, sig, "")
			return err
		}

		unconfirmed = true
		return s.requireConfirmation(ctx, tx, user, providerName, event, sig)
	})
	if err != nil {
		return nil, err
	}
	if unconfirmed {
		return nil, errUserNotConfirmed
	}

	return pair, nil
}

func (s *OAuthService) findOrCreateUser(ctx context.Context, tx *repository.Repositories, profile *provider.UserData) (*domain.User, bool, error) {
	confirmable := profile.Verified || s.cfg.Accounts.AutoConfirm

	user, err := tx.User.GetByEmail(ctx, *profile.Email)
	if err == nil {
		if !user.EmailConfirmed && confirmable {
			user.ConfirmEmail(time.Now())
			if err := tx.User.Update(ctx, user); err != nil {
				s.logger.Error("failed to confirm federated email", zap.Error(err))
				return nil, false, domain.ErrInternal()
			}
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("failed to look up federated user", zap.Error(err))
		return nil, false, domain.ErrInternal()
	}

	if s.cfg.Accounts.DisableSignup {
		return nil, false, errSignupDisabled
	}

	user = &domain.User{
		Email:  profile.Email,
		Name:   profile.Name,
		Avatar: profile.Avatar,
	}
	if confirmable {
		user.ConfirmEmail(time.Now())
	}

	if err := tx.User.Create(ctx, user); err != nil {
		s.logger.Error("failed to create federated user", zap.Error(err))
		return nil, false, domain.ErrInternal()
	}

	return user, true, nil
}

// requireConfirmation is the terminal branch for unconfirmed federated
// accounts: the hook still fires, a confirmation token is persisted and
// delivery is attempted, but no session is issued.
func (s *OAuthService) requireConfirmation(ctx context.Context, tx *repository.Repositories, user *domain.User, providerName, event string, sig *token.OperatorSignature) error {
	resp, err := s.hooks.Trigger(ctx, event, providerName, user, sig)
	if err != nil {
		return err
	}
	if resp != nil {
		overridden := user.WithMetadataOverride(resp.AppMetadata(), resp.UserMetadata())
		*user = overridden
	}

	t := newEmailToken()
	now := time.Now()
	user.EmailConfirmationToken = &t
	user.EmailConfirmationSentAt = &now

	if err := tx.User.Update(ctx, user); err != nil {
		s.logger.Error("failed to persist confirmation token", zap.Error(err))
		return domain.ErrInternal()
	}

	// Delivery is best-effort here; the token survives for a later resend.
	if err := s.notifier.ConfirmationEmail(ctx, user); err != nil {
		s.logger.Warn("failed to deliver confirmation mail", zap.Error(err))
	}
	return nil
}
