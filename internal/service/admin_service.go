package service

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/repository"
	"go.uber.org/zap"
)

// AdminService implements invitation and user administration. Every method
// takes the acting user; non-admins are rejected before anything else runs.
type AdminService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	notifier *notify.Notifier
	validate validator
	logger   *zap.Logger
}

// NewAdminService creates the admin service
func NewAdminService(deps Deps) *AdminService {
	return &AdminService{
		cfg:      deps.Config,
		repos:    deps.Repos,
		notifier: deps.Notifier,
		validate: validator{accounts: &deps.Config.Accounts},
		logger:   deps.Logger,
	}
}

func requireAdmin(actor *domain.User) error {
	if actor == nil || !actor.IsAdmin {
		return errAdminOnly
	}
	return nil
}

// Invite creates an unconfirmed account over exactly one channel and delivers
// an invitation token.
func (s *AdminService) Invite(ctx context.Context, actor *domain.User, req dto.InviteRequest) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if (req.Email == "") == (req.Phone == "") {
		return nil, errEmailOrPhoneRequired
	}

	byEmail := req.Email != ""
	if byEmail {
		if s.cfg.Accounts.DisableEmail {
			return nil, errEmailDisabled
		}
		if err := s.validate.email(req.Email); err != nil {
			return nil, err
		}
	} else {
		if s.cfg.Accounts.DisablePhone {
			return nil, errPhoneDisabled
		}
		if err := s.validate.phone(req.Phone); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	user := &domain.User{
		Email:            optional(req.Email),
		Phone:            optional(req.Phone),
		Name:             optional(req.Name),
		InvitationSentAt: &now,
	}
	if byEmail {
		t := newEmailToken()
		user.EmailInvitationToken = &t
	} else {
		t := newPhoneInvitationToken()
		user.PhoneInvitationToken = &t
	}

	err := s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		if byEmail {
			if err := resolveEmailConflict(ctx, tx, req.Email); err != nil {
				return err
			}
		} else {
			if err := resolvePhoneConflict(ctx, tx, req.Phone); err != nil {
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
			s.logger.Error("failed to create invited user", zap.Error(err))
			return domain.ErrInternal()
		}

		// Undeliverable invitations roll back instead of leaving an account
		// nobody can accept.
		if byEmail {
			if err := s.notifier.InvitationEmail(ctx, user); err != nil {
				return domain.ErrInternal()
			}
		} else {
			if err := s.notifier.InvitationSMS(ctx, user); err != nil {
				return domain.ErrInternal()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// CreateUser provisions an account directly, optionally pre-confirmed.
func (s *AdminService) CreateUser(ctx context.Context, actor *domain.User, req dto.AdminUserRequest) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if req.Email == "" && req.Phone == "" {
		return nil, errEmailOrPhoneRequired
	}
	if err := s.validate.password(req.Password); err != nil {
		return nil, err
	}
	if req.Email != "" {
		if err := s.validate.email(req.Email); err != nil {
			return nil, err
		}
	}
	if req.Phone != "" {
		if err := s.validate.phone(req.Phone); err != nil {
			return nil, err
		}
	}

	user := &domain.User{
		Email:        optional(req.Email),
		Phone:        optional(req.Phone),
		Name:         optional(req.Name),
		Avatar:       optional(req.Avatar),
		IsAdmin:      req.IsAdmin,
		AppMetadata:  req.AppMetadata,
		UserMetadata: req.UserMetadata,
	}
	if err := user.SetPassword(req.Password, s.cfg.Security.BCryptCost); err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	if req.Confirm || s.cfg.Accounts.AutoConfirm {
		now := time.Now()
		if user.Email != nil {
			user.ConfirmEmail(now)
		}
		if user.Phone != nil {
			user.ConfirmPhone(now)
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
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUser applies an admin edit to another account. Admins go through the
// self-service endpoints for their own account.
func (s *AdminService) UpdateUser(ctx context.Context, actor *domain.User, userID string, req dto.AdminUserRequest) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.ID == userID {
		return nil, errSelfActionForbidden
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

		if req.Email != "" {
			if err := s.validate.email(req.Email); err != nil {
				return err
			}
			user.Email = &req.Email
		}
		if req.Phone != "" {
			if err := s.validate.phone(req.Phone); err != nil {
				return err
			}
			user.Phone = &req.Phone
		}
		if req.Password != "" {
			if err := s.validate.password(req.Password); err != nil {
				return err
			}
			if err := user.SetPassword(req.Password, s.cfg.Security.BCryptCost); err != nil {
				s.logger.Error("failed to hash password", zap.Error(err))
				return domain.ErrInternal()
			}
		}
		if req.Name != "" {
			user.Name = &req.Name
		}
		if req.Avatar != "" {
			user.Avatar = &req.Avatar
		}
		if req.AppMetadata != nil {
			user.AppMetadata = req.AppMetadata
		}
		if req.UserMetadata != nil {
			user.UserMetadata = req.UserMetadata
		}
		user.IsAdmin = req.IsAdmin

		if req.Confirm {
			now := time.Now()
			if user.Email != nil && !user.EmailConfirmed {
				user.ConfirmEmail(now)
			}
			if user.Phone != nil && !user.PhoneConfirmed {
				user.ConfirmPhone(now)
			}
		}

		if err := tx.User.Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return errEmailRegistered
			}
			if errors.Is(err, repository.ErrDuplicatePhone) {
				return errPhoneRegistered
			}
			s.logger.Error("failed to persist admin update", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser removes another account and its refresh tokens.
func (s *AdminService) DeleteUser(ctx context.Context, actor *domain.User, userID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.ID == userID {
		return errSelfActionForbidden
	}

	return s.repos.WithTransaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Token.DeleteByUserID(ctx, userID); err != nil {
			s.logger.Error("failed to delete refresh tokens", zap.Error(err))
			return domain.ErrInternal()
		}
		if err := tx.User.Delete(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errUserNotFound
			}
			s.logger.Error("failed to delete user", zap.Error(err))
			return domain.ErrInternal()
		}
		return nil
	})
}

// ListUsers returns one page of accounts. When ADMIN_ONLY_LIST is set only
// admins may call it; otherwise any authenticated user can.
func (s *AdminService) ListUsers(ctx context.Context, actor *domain.User, page, perPage int) ([]*domain.User, int, error) {
	if s.cfg.Accounts.AdminOnlyList {
		if err := requireAdmin(actor); err != nil {
			return nil, 0, err
		}
	} else if actor == nil {
		return nil, 0, errAdminOnly
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	users, total, err := s.repos.User.List(ctx, (page-1)*perPage, perPage)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, 0, domain.ErrInternal()
	}

	return users, total, nil
}
