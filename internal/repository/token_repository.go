package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/google/uuid"
)

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	db Querier
}

// NewTokenRepository creates a new refresh token repository
func NewTokenRepository(db Querier) TokenRepository {
	return &tokenRepository{db: db}
}

// Create stores a new refresh token
func (r *tokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	now := time.Now()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

// GetByToken retrieves a refresh token by its opaque value
func (r *tokenRepository) GetByToken(ctx context.Context, tokenValue string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, created_at, updated_at
		FROM refresh_tokens
		WHERE token = $1
	`

	token := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, tokenValue).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

// Rotate replaces the token value in place. Matching on the presented value
// makes redemption atomic: a concurrent presentation of the same spent value
// affects zero rows and reports ErrNotFound.
func (r *tokenRepository) Rotate(ctx context.Context, presented, newToken string) error {
	query := `UPDATE refresh_tokens SET token = $2, updated_at = $3 WHERE token = $1`

	result, err := r.db.ExecContext(ctx, query, presented, newToken, time.Now())
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rotate result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByUserID removes all refresh tokens belonging to a user
func (r *tokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	return nil
}
