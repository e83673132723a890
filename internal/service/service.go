package service

import (
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/token"
	"go.uber.org/zap"
)

// Deps carries the collaborators every service shares.
type Deps struct {
	Config   *config.Config
	Repos    *repository.Repositories
	Tokens   *token.Manager
	Hooks    *hook.Dispatcher
	Notifier *notify.Notifier
	Logger   *zap.Logger
}

// Services holds all service implementations
type Services struct {
	Auth    *AuthService
	Account *AccountService
	Admin   *AdminService
	OAuth   *OAuthService
}

// NewServices wires all services off one dependency set
func NewServices(deps Deps) *Services {
	return &Services{
		Auth:    NewAuthService(deps),
		Account: NewAccountService(deps),
		Admin:   NewAdminService(deps),
		OAuth:   NewOAuthService(deps),
	}
}
