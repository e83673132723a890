package service

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/repository"
	"go.uber.org/zap"
)

// Channel names used by confirmation and change endpoints.
const (
	ChannelEmail = "email"
	ChannelPhone = "phone"
)

// AccountService implements the self-service account transitions: channel
// confirmation, recovery, invitation acceptance and credential changes.
type AccountService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	notifier *notify.Notifier
	validate validator
	logger   *zap.Logger
}

// NewAccountService creates the account service
func NewAccountService(deps Deps) *AccountService {
	return &AccountService{
		cfg:      deps.Config,
		repos:    deps.Repos,
		notifier: deps.Notifier,
		validate: validator{accounts: &deps.Config.Accounts},
		logger:   deps.Logger,
	}
}

// Get loads the authenticated user's record.
func (s *AccountService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errUserNotFound
		}
		s.logger.Error("failed to load user", zap.Error(err))
		return nil, domain.ErrInternal()
	}
	return user, nil
}

// Confirm verifies a channel with its single-use confirmation token. Replaying
// a consumed token is a 404, not an error state on the account.
func (s *AccountService) Confirm(ctx context.Context, channel, tokenValue string) (*domain.User, error) {
	var user *domain.User

	err := s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		var err error
		switch channel {
		case ChannelPhone:
			user, err = tx.User.GetByPhoneConfirmationToken(ctx, tokenValue)
		default:
			user, err = tx.User.GetByEmailConfirmationToken(ctx, tokenValue)
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errConfirmationNotFound
			}
			s.logger.Error("failed to look up confirmation token", zap.Error(err))
			return domain.ErrInternal()
		}

		now := time.Now()
		if channel == ChannelPhone {
			user.ConfirmPhone(now)
		} else {
			user.ConfirmEmail(now)
		}

		if err := tx.User.Update(ctx, user); err != nil {
			s.logger.Error("failed to persist confirmation", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ResendConfirmation regenerates and redelivers a confirmation token. Requests
// inside the configured cool-down are rejected with 429.
func (s *AccountService) ResendConfirmation(ctx context.Context, email, phone string) error {
	if email == "" && phone == "" {
		return errEmailOrPhoneRequired
	}

	var user *domain.User
	var err error
	channel := ChannelEmail
	if phone != "" {
		channel = ChannelPhone
		user, err = s.repos.User.GetByPhone(ctx, phone)
	} else {
		user, err = s.repos.User.GetByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		s.logger.Error("failed to look up user", zap.Error(err))
		return domain.ErrInternal()
	}

	cooldown := time.Duration(s.cfg.Accounts.MinutesBetweenResend) * time.Minute
	now := time.Now()

	if channel == ChannelPhone {
		if user.PhoneConfirmed {
			return errConfirmationNotFound
		}
		if user.PhoneConfirmationSentAt != nil && now.Sub(*user.PhoneConfirmationSentAt) < cooldown {
			return errTooManyRequests
		}
		code := newPhoneCode()
		user.PhoneConfirmationToken = &code
		user.PhoneConfirmationSentAt = &now
	} else {
		if user.EmailConfirmed {
			return errConfirmationNotFound
		}
		if user.EmailConfirmationSentAt != nil && now.Sub(*user.EmailConfirmationSentAt) < cooldown {
			return errTooManyRequests
		}
		t := newEmailToken()
		user.EmailConfirmationToken = &t
		user.EmailConfirmationSentAt = &now
	}

	if err := s.repos.User.Update(ctx, user); err != nil {
		s.logger.Error("failed to persist confirmation token", zap.Error(err))
		return domain.ErrInternal()
	}

	if channel == ChannelPhone {
		if err := s.notifier.ConfirmationSMS(ctx, user); err != nil {
			return domain.ErrInternal()
		}
		return nil
	}
	if err := s.notifier.ConfirmationEmail(ctx, user); err != nil {
		return domain.ErrInternal()
	}
	return nil
}

// RequestReset starts account recovery. The response carries no signal about
// whether the account exists; the username's format picks the channel.
func (s *AccountService) RequestReset(ctx context.Context, username string) error {
	byEmail := s.validate.isEmail(username)

	var user *domain.User
	var err error
	if byEmail {
		user, err = s.repos.User.GetByEmail(ctx, username)
	} else {
		if err := s.validate.phone(username); err != nil {
			return err
		}
		user, err = s.repos.User.GetByPhone(ctx, username)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to look up user for recovery", zap.Error(err))
		return domain.ErrInternal()
	}

	now := time.Now()
	var recovery string
	if byEmail {
		recovery = newEmailToken()
	} else {
		recovery = newPhoneCode()
	}
	user.RecoveryToken = &recovery
	user.RecoverySentAt = &now

	if err := s.repos.User.Update(ctx, user); err != nil {
		s.logger.Error("failed to persist recovery token", zap.Error(err))
		return domain.ErrInternal()
	}

	if byEmail {
		if err := s.notifier.RecoveryEmail(ctx, user); err != nil {
			return domain.ErrInternal()
		}
		return nil
	}
	if err := s.notifier.RecoverySMS(ctx, user); err != nil {
		return domain.ErrInternal()
	}
	return nil
}

// ConfirmReset redeems a recovery token and sets a new password.
func (s *AccountService) ConfirmReset(ctx context.Context, tokenValue, password string) error {
	if err := s.validate.password(password); err != nil {
		return err
	}

	return s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		user, err := tx.User.GetByRecoveryToken(ctx, tokenValue)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errRecoveryTokenNotFound
			}
			s.logger.Error("failed to look up recovery token", zap.Error(err))
			return domain.ErrInternal()
		}

		if err := user.SetPassword(password, s.cfg.Security.BCryptCost); err != nil {
			s.logger.Error("failed to hash password", zap.Error(err))
			return domain.ErrInternal()
		}
		user.RecoveryToken = nil
		user.RecoverySentAt = nil

		if err := tx.User.Update(ctx, user); err != nil {
			s.logger.Error("failed to persist password reset", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
}

// AcceptInvite redeems an invitation token, sets the initial password and
// confirms the invited channel.
func (s *AccountService) AcceptInvite(ctx context.Context, channel, tokenValue, password string) (*domain.User, error) {
	if err := s.validate.password(password); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		var err error
		if channel == ChannelPhone {
			user, err = tx.User.GetByPhoneInvitationToken(ctx, tokenValue)
		} else {
			user, err = tx.User.GetByEmailInvitationToken(ctx, tokenValue)
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errInvitationTokenNotFound
			}
			s.logger.Error("failed to look up invitation token", zap.Error(err))
			return domain.ErrInternal()
		}

		if err := user.SetPassword(password, s.cfg.Security.BCryptCost); err != nil {
			s.logger.Error("failed to hash password", zap.Error(err))
			return domain.ErrInternal()
		}

		now := time.Now()
		if channel == ChannelPhone {
			user.ConfirmPhone(now)
		} else {
			user.ConfirmEmail(now)
		}
		user.AcceptInvitation(now)

		if err := tx.User.Update(ctx, user); err != nil {
			s.logger.Error("failed to persist invitation acceptance", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ChangeEmail starts an email change. With auto-confirm the swap is immediate
// and the previous address is kept in new_email; otherwise a change token is
// mailed to the address being adopted.
func (s *AccountService) ChangeEmail(ctx context.Context, userID, newEmail string) (*domain.User, error) {
	if err := s.validate.email(newEmail); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		var err error
		user, err = tx.User.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errUserNotFound
			}
			s.logger.Error("failed to load user", zap.Error(err))
			return domain.ErrInternal()
		}

		if err := resolveEmailConflict(ctx, tx, newEmail); err != nil {
			return err
		}

		if s.cfg.Accounts.AutoConfirm {
			user.NewEmail = user.Email
			user.Email = &newEmail
			user.EmailConfirmed = true
		} else {
			t := newEmailToken()
			now := time.Now()
			user.NewEmail = &newEmail
			user.EmailChangeToken = &t
			user.EmailChangeSentAt = &now
		}

		if err := tx.User.Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return errEmailRegistered
			}
			s.logger.Error("failed to persist email change", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !s.cfg.Accounts.AutoConfirm {
		if err := s.notifier.EmailChangeMail(ctx, user); err != nil {
			return nil, domain.ErrInternal()
		}
	}

	return user, nil
}

// ChangePhone is the phone-side mirror of ChangeEmail.
func (s *AccountService) ChangePhone(ctx context.Context, userID, newPhone string) (*domain.User, error) {
	if err := s.validate.phone(newPhone); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		var err error
		user, err = tx.User.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errUserNotFound
			}
			s.logger.Error("failed to load user", zap.Error(err))
			return domain.ErrInternal()
		}

		if err := resolvePhoneConflict(ctx, tx, newPhone); err != nil {
			return err
		}

		if s.cfg.Accounts.AutoConfirm {
			user.NewPhone = user.Phone
			user.Phone = &newPhone
			user.PhoneConfirmed = true
		} else {
			code := newPhoneCode()
			now := time.Now()
			user.NewPhone = &newPhone
			user.PhoneChangeToken = &code
			user.PhoneChangeSentAt = &now
		}

		if err := tx.User.Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicatePhone) {
				return errPhoneRegistered
			}
			s.logger.Error("failed to persist phone change", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !s.cfg.Accounts.AutoConfirm {
		if err := s.notifier.PhoneChangeSMS(ctx, user); err != nil {
			return nil, domain.ErrInternal()
		}
	}

	return user, nil
}

// ConfirmChange completes a pending email or phone change. Possession of the
// token proves control of the incoming address, so the channel is confirmed.
func (s *AccountService) ConfirmChange(ctx context.Context, channel, tokenValue string) (*domain.User, error) {
	var user *domain.User

	err := s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		var err error
		if channel == ChannelPhone {
			user, err = tx.User.GetByPhoneChangeToken(ctx, tokenValue)
		} else {
			user, err = tx.User.GetByEmailChangeToken(ctx, tokenValue)
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errChangeTokenNotFound
			}
			s.logger.Error("failed to look up change token", zap.Error(err))
			return domain.ErrInternal()
		}

		now := time.Now()
		if channel == ChannelPhone {
			user.Phone = user.NewPhone
			user.NewPhone = nil
			user.PhoneChangeToken = nil
			user.PhoneChangeSentAt = nil
			user.PhoneConfirmed = true
			user.PhoneConfirmedAt = &now
		} else {
			user.Email = user.NewEmail
			user.NewEmail = nil
			user.EmailChangeToken = nil
			user.EmailChangeSentAt = nil
			user.EmailConfirmed = true
			user.EmailConfirmedAt = &now
		}

		if err := tx.User.Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return errEmailRegistered
			}
			if errors.Is(err, repository.ErrDuplicatePhone) {
				return errPhoneRegistered
			}
			s.logger.Error("failed to persist change confirmation", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := s.validate.password(newPassword); err != nil {
		return err
	}

	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		s.logger.Error("failed to load user", zap.Error(err))
		return domain.ErrInternal()
	}

	if !user.VerifyPassword(oldPassword) {
		return errInvalidOldPassword
	}

	if err := user.SetPassword(newPassword, s.cfg.Security.BCryptCost); err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return domain.ErrInternal()
	}

	if err := s.repos.User.Update(ctx, user); err != nil {
		s.logger.Error("failed to persist password change", zap.Error(err))
		return domain.ErrInternal()
	}
	return nil
}
