package repository

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)

	GetByEmailConfirmationToken(ctx context.Context, token string) (*domain.User, error)
	GetByPhoneConfirmationToken(ctx context.Context, token string) (*domain.User, error)
	GetByRecoveryToken(ctx context.Context, token string) (*domain.User, error)
	GetByEmailChangeToken(ctx context.Context, token string) (*domain.User, error)
	GetByPhoneChangeToken(ctx context.Context, token string) (*domain.User, error)
	GetByEmailInvitationToken(ctx context.Context, token string) (*domain.User, error)
	GetByPhoneInvitationToken(ctx context.Context, token string) (*domain.User, error)

	Update(ctx context.Context, user *domain.User) error
	UpdateLastSignin(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*domain.User, int, error)
}

// TokenRepository defines methods for refresh token operations
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, presented, newToken string) error
	DeleteByUserID(ctx context.Context, userID string) error
}
