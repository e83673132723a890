package service

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/token"
	"go.uber.org/zap"
)

// Grant types accepted by the token endpoint.
const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// AuthService implements signup, the password grant and refresh token
// rotation.
type AuthService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	notifier *notify.Notifier
	hooks    *hook.Dispatcher
	sessions sessionIssuer
	validate validator
	logger   *zap.Logger
}

// NewAuthService creates the authentication service
func NewAuthService(deps Deps) *AuthService {
	return &AuthService{
		cfg:      deps.Config,
		repos:    deps.Repos,
		notifier: deps.Notifier,
		hooks:    deps.Hooks,
		sessions: sessionIssuer{
			tokens:   deps.Tokens,
			hooks:    deps.Hooks,
			audience: deps.Config.JWT.Aud,
			logger:   deps.Logger,
		},
		validate: validator{accounts: &deps.Config.Accounts},
		logger:   deps.Logger,
	}
}

// Signup registers a new account over email, phone or both channels. With
// auto-confirm enabled the account is usable immediately; otherwise each
// channel gets a single-use confirmation token.
func (s *AuthService) Signup(ctx context.Context, req dto.SignupRequest, sig *token.OperatorSignature) (*domain.User, error) {
	if s.cfg.Accounts.DisableSignup {
		return nil, errSignupDisabled
	}
	if req.Email == "" && req.Phone == "" {
		return nil, errEmailOrPhoneRequired
	}
	if err := s.validate.password(req.Password); err != nil {
		return nil, err
	}

	if req.Email != "" {
		if s.cfg.Accounts.DisableEmail {
			return nil, errEmailDisabled
		}
		if err := s.validate.email(req.Email); err != nil {
			return nil, err
		}
	}
	if req.Phone != "" {
		if s.cfg.Accounts.DisablePhone {
			return nil, errPhoneDisabled
		}
		if err := s.validate.phone(req.Phone); err != nil {
			return nil, err
		}
	}

	user := &domain.User{
		Email:        optional(req.Email),
		Phone:        optional(req.Phone),
		Name:         optional(req.Name),
		Avatar:       optional(req.Avatar),
		UserMetadata: req.Metadata,
	}
	if err := user.SetPassword(req.Password, s.cfg.Security.BCryptCost); err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	now := time.Now()
	if s.cfg.Accounts.AutoConfirm {
		if user.Email != nil {
			user.ConfirmEmail(now)
		}
		if user.Phone != nil {
			user.ConfirmPhone(now)
		}
	} else {
		if user.Email != nil {
			t := newEmailToken()
			user.EmailConfirmationToken = &t
			user.EmailConfirmationSentAt = &now
		}
		if user.Phone != nil {
			c := newPhoneCode()
			user.PhoneConfirmationToken = &c
			user.PhoneConfirmationSentAt = &now
		}
	}

	err := s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		if user.Email != nil {
			if err := resolveEmailConflict(ctx, tx, *user.Email); err != nil {
				return err
			}
		}
		if user.Phone != nil {
			if err := resolvePhoneConflict(ctx, tx, *user.Phone); err != nil {
				return err
			}
		}

		if err := tx.User.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return errEmailRegistered
			}
			if errors.Is(err, repository.ErrDuplicatePhone) {
				return errPhoneRegistered
			}
			s.logger.Error("failed to create user", zap.Error(err))
			return domain.ErrInternal()
		}

		resp, err := s.hooks.Trigger(ctx, token.HookEventSignup, "email", user, sig)
		if err != nil {
			return err
		}
		if resp != nil {
			overridden := user.WithMetadataOverride(resp.AppMetadata(), resp.UserMetadata())
			*user = overridden
			if err := tx.User.Update(ctx, user); err != nil {
				s.logger.Error("failed to persist hook metadata override", zap.Error(err))
				return domain.ErrInternal()
			}
		}

		// Delivery failure rolls the signup back; the caller can retry the
		// whole registration.
		if !s.cfg.Accounts.AutoConfirm {
			if user.Email != nil {
				if err := s.notifier.ConfirmationEmail(ctx, user); err != nil {
					return domain.ErrInternal()
				}
			}
			if user.Phone != nil {
				if err := s.notifier.ConfirmationSMS(ctx, user); err != nil {
					return domain.ErrInternal()
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Login is the password grant. Unknown usernames and wrong passwords produce
// byte-identical failures.
func (s *AuthService) Login(ctx context.Context, username, password string, sig *token.OperatorSignature) (*domain.TokenPair, error) {
	var user *domain.User
	var err error

	byEmail := s.validate.isEmail(username)
	if byEmail {
		user, err = s.repos.User.GetByEmail(ctx, username)
	} else {
		user, err = s.repos.User.GetByPhone(ctx, username)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		s.logger.Error("failed to look up user", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	if !user.VerifyPassword(password) {
		return nil, errInvalidCredentials
	}
	// The channel presented as the username must itself be confirmed.
	if byEmail && !user.EmailConfirmed {
		return nil, errUserNotConfirmed
	}
	if !byEmail && !user.PhoneConfirmed {
		return nil, errUserNotConfirmed
	}

	var pair *domain.TokenPair
	err = s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		pair, err = s.sessions.issue(ctx, tx, user, "email", token.HookEventLogin, sig, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Refresh redeems a refresh token for a new session. The presented value is
// rotated and persisted before any downstream step runs, so a redemption
// attempt spends the token even when a later step fails.
func (s *AuthService) Refresh(ctx context.Context, tokenValue string, sig *token.OperatorSignature) (*domain.TokenPair, error) {
	refresh, err := s.repos.Token.GetByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidRefreshToken
		}
		s.logger.Error("failed to look up refresh token", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	rotated := newRefreshTokenValue()
	if err := s.repos.Token.Rotate(ctx, tokenValue, rotated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidRefreshToken
		}
		s.logger.Error("failed to rotate refresh token", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	user, err := s.repos.User.GetByID(ctx, refresh.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidRefreshToken
		}
		s.logger.Error("failed to load refresh token owner", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	var pair *domain.TokenPair
	err = s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		pair, err = s.sessions.issue(ctx, tx, user, "email", token.HookEventLogin, sig, rotated)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Token dispatches on grant_type for the token endpoint.
func (s *AuthService) Token(ctx context.Context, req dto.TokenRequest, sig *token.OperatorSignature) (*domain.TokenPair, error) {
	switch req.GrantType {
	case GrantPassword:
		return s.Login(ctx, req.Username, req.Password, sig)
	case GrantRefreshToken:
		return s.Refresh(ctx, req.RefreshToken, sig)
	default:
		return nil, errUnsupportedGrant
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
