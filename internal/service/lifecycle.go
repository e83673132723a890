package service

import (
	"context"
	"errors"

	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/token"
	"go.uber.org/zap"
)

// resolveEmailConflict applies the duplicate rule before a new account claims
// an email address: a confirmed holder wins with 409; an unconfirmed holder is
// deleted, unless their phone channel is confirmed, in which case only the
// email fields are cleared so the confirmed identity survives.
func resolveEmailConflict(ctx context.Context, repos *repository.Repositories, email string) error {
	existing, err := repos.User.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return domain.ErrInternal()
	}

	if existing.EmailConfirmed {
		return errEmailRegistered
	}

	if existing.PhoneConfirmed {
		existing.Email = nil
		existing.EmailConfirmationToken = nil
		existing.EmailConfirmationSentAt = nil
		if err := repos.User.Update(ctx, existing); err != nil {
			return domain.ErrInternal()
		}
		return nil
	}

	if err := repos.User.Delete(ctx, existing.ID); err != nil {
		return domain.ErrInternal()
	}
	return nil
}

// resolvePhoneConflict is the phone-side mirror of resolveEmailConflict.
func resolvePhoneConflict(ctx context.Context, repos *repository.Repositories, phone string) error {
	existing, err := repos.User.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return domain.ErrInternal()
	}

	if existing.PhoneConfirmed {
		return errPhoneRegistered
	}

	if existing.EmailConfirmed {
		existing.Phone = nil
		existing.PhoneConfirmationToken = nil
		existing.PhoneConfirmationSentAt = nil
		if err := repos.User.Update(ctx, existing); err != nil {
			return domain.ErrInternal()
		}
		return nil
	}

	if err := repos.User.Delete(ctx, existing.ID); err != nil {
		return domain.ErrInternal()
	}
	return nil
}

// sessionIssuer turns an authenticated user into a token pair: login hook,
// metadata override, refresh token mint, access token signing, last_signin
// stamp. Shared by the password grant and the OAuth callback.
type sessionIssuer struct {
	tokens   *token.Manager
	hooks    *hook.Dispatcher
	audience string
	logger   *zap.Logger
}

// issue runs the hook and signing sequence. refreshValue carries an already
// rotated token on the refresh grant; when empty a fresh one is minted.
func (s sessionIssuer) issue(ctx context.Context, repos *repository.Repositories, user *domain.User, providerName, event string, sig *token.OperatorSignature, refreshValue string) (*domain.TokenPair, error) {
	resp, err := s.hooks.Trigger(ctx, event, providerName, user, sig)
	if err != nil {
		return nil, err
	}

	if resp != nil {
		overridden := user.WithMetadataOverride(resp.AppMetadata(), resp.UserMetadata())
		*user = overridden
		if err := repos.User.Update(ctx, user); err != nil {
			s.logger.Error("failed to persist hook metadata override", zap.Error(err))
			return nil, domain.ErrInternal()
		}
	}

	if refreshValue == "" {
		refresh := &domain.RefreshToken{
			UserID: user.ID,
			Token:  newRefreshTokenValue(),
		}
		if err := repos.Token.Create(ctx, refresh); err != nil {
			s.logger.Error("failed to create refresh token", zap.Error(err))
			return nil, domain.ErrInternal()
		}
		refreshValue = refresh.Token
	}

	access, err := s.tokens.SignAccessToken(user, s.audience, domain.JSONMap(resp))
	if err != nil {
		s.logger.Error("failed to sign access token", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	if err := repos.User.UpdateLastSignin(ctx, user.ID); err != nil {
		s.logger.Error("failed to stamp last signin", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshValue,
		TokenType:    "bearer",
		ExpiresIn:    s.tokens.ExpiresIn(),
	}, nil
}
