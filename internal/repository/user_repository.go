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

const userColumns = `id, email, phone, name, avatar, is_admin, password_hash,
	email_confirmed, email_confirmed_at, email_confirmation_token, email_confirmation_sent_at,
	phone_confirmed, phone_confirmed_at, phone_confirmation_token, phone_confirmation_sent_at,
	new_email, email_change_token, email_change_sent_at,
	new_phone, phone_change_token, phone_change_sent_at,
	recovery_token, recovery_sent_at,
	email_invitation_token, phone_invitation_token, invitation_sent_at, invitation_accepted_at,
	app_metadata, user_metadata,
	last_signin_at, created_at, updated_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(db Querier) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query, userValues(user)...)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by primary key
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByPhone retrieves a user by phone number
func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getBy(ctx, "phone", phone)
}

func (r *userRepository) GetByEmailConfirmationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, "email_confirmation_token", token)
}

func (r *userRepository) GetByPhoneConfirmationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, "phone_confirmation_token", token)
}

func (r *userRepository) GetByRecoveryToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, "recovery_token", token)
}

func (r *userRepository) GetByEmailChangeToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, "email_change_token", token)
}

func (r *userRepository) GetByPhoneChangeToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, "phone_change_token", token)
}

func (r *userRepository) GetByEmailInvitationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, "email_invitation_token", token)
}

func (r *userRepository) GetByPhoneInvitationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, "phone_invitation_token", token)
}

// getBy looks a user up by one column. Callers pass a fixed column name, never
// user input.
func (r *userRepository) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	row := r.db.QueryRowContext(ctx, query, value)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	return user, nil
}

// Update persists every mutable field of the user
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users SET
			email = $2, phone = $3, name = $4, avatar = $5, is_admin = $6, password_hash = $7,
			email_confirmed = $8, email_confirmed_at = $9, email_confirmation_token = $10, email_confirmation_sent_at = $11,
			phone_confirmed = $12, phone_confirmed_at = $13, phone_confirmation_token = $14, phone_confirmation_sent_at = $15,
			new_email = $16, email_change_token = $17, email_change_sent_at = $18,
			new_phone = $19, phone_change_token = $20, phone_change_sent_at = $21,
			recovery_token = $22, recovery_sent_at = $23,
			email_invitation_token = $24, phone_invitation_token = $25, invitation_sent_at = $26, invitation_accepted_at = $27,
			app_metadata = $28, user_metadata = $29,
			updated_at = $30
		WHERE id = $1
	`

	user.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Phone,
		user.Name,
		user.Avatar,
		user.IsAdmin,
		user.PasswordHash,
		user.EmailConfirmed,
		user.EmailConfirmedAt,
		user.EmailConfirmationToken,
		user.EmailConfirmationSentAt,
		user.PhoneConfirmed,
		user.PhoneConfirmedAt,
		user.PhoneConfirmationToken,
		user.PhoneConfirmationSentAt,
		user.NewEmail,
		user.EmailChangeToken,
		user.EmailChangeSentAt,
		user.NewPhone,
		user.PhoneChangeToken,
		user.PhoneChangeSentAt,
		user.RecoveryToken,
		user.RecoverySentAt,
		user.EmailInvitationToken,
		user.PhoneInvitationToken,
		user.InvitationSentAt,
		user.InvitationAcceptedAt,
		user.AppMetadata,
		user.UserMetadata,
		user.UpdatedAt,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateLastSignin stamps the user's last successful authentication
func (r *userRepository) UpdateLastSignin(ctx context.Context, userID string) error {
	query := `UPDATE users SET last_signin_at = $2, updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update last signin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the user; refresh tokens cascade at the database level
func (r *userRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns one page of users ordered by creation time plus the total count
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.Name,
		&user.Avatar,
		&user.IsAdmin,
		&user.PasswordHash,
		&user.EmailConfirmed,
		&user.EmailConfirmedAt,
		&user.EmailConfirmationToken,
		&user.EmailConfirmationSentAt,
		&user.PhoneConfirmed,
		&user.PhoneConfirmedAt,
		&user.PhoneConfirmationToken,
		&user.PhoneConfirmationSentAt,
		&user.NewEmail,
		&user.EmailChangeToken,
		&user.EmailChangeSentAt,
		&user.NewPhone,
		&user.PhoneChangeToken,
		&user.PhoneChangeSentAt,
		&user.RecoveryToken,
		&user.RecoverySentAt,
		&user.EmailInvitationToken,
		&user.PhoneInvitationToken,
		&user.InvitationSentAt,
		&user.InvitationAcceptedAt,
		&user.AppMetadata,
		&user.UserMetadata,
		&user.LastSigninAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func userValues(user *domain.User) []any {
	return []any{
		user.ID,
		user.Email,
		user.Phone,
		user.Name,
		user.Avatar,
		user.IsAdmin,
		user.PasswordHash,
		user.EmailConfirmed,
		user.EmailConfirmedAt,
		user.EmailConfirmationToken,
		user.EmailConfirmationSentAt,
		user.PhoneConfirmed,
		user.PhoneConfirmedAt,
		user.PhoneConfirmationToken,
		user.PhoneConfirmationSentAt,
		user.NewEmail,
		user.EmailChangeToken,
		user.EmailChangeSentAt,
		user.NewPhone,
		user.PhoneChangeToken,
		user.PhoneChangeSentAt,
		user.RecoveryToken,
		user.RecoverySentAt,
		user.EmailInvitationToken,
		user.PhoneInvitationToken,
		user.InvitationSentAt,
		user.InvitationAcceptedAt,
		user.AppMetadata,
		user.UserMetadata,
		user.LastSigninAt,
		user.CreatedAt,
		user.UpdatedAt,
	}
}
