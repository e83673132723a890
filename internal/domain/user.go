package domain

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents one identity. Token fields are single use: the transition
// that consumes a token clears it in the same transaction that applies its
// effect.
type User struct {
	ID           string  `json:"id" db:"id"`
	Email        *string `json:"email,omitempty" db:"email"`
	Phone        *string `json:"phone,omitempty" db:"phone"`
	Name         *string `json:"name,omitempty" db:"name"`
	Avatar       *string `json:"avatar,omitempty" db:"avatar"`
	IsAdmin      bool    `json:"-" db:"is_admin"`
	PasswordHash *string `json:"-" db:"password_hash"`

	EmailConfirmed          bool       `json:"email_confirmed" db:"email_confirmed"`
	EmailConfirmedAt        *time.Time `json:"email_confirmed_at,omitempty" db:"email_confirmed_at"`
	EmailConfirmationToken  *string    `json:"-" db:"email_confirmation_token"`
	EmailConfirmationSentAt *time.Time `json:"email_confirmation_sent_at,omitempty" db:"email_confirmation_sent_at"`

	PhoneConfirmed          bool       `json:"phone_confirmed" db:"phone_confirmed"`
	PhoneConfirmedAt        *time.Time `json:"phone_confirmed_at,omitempty" db:"phone_confirmed_at"`
	PhoneConfirmationToken  *string    `json:"-" db:"phone_confirmation_token"`
	PhoneConfirmationSentAt *time.Time `json:"phone_confirmation_sent_at,omitempty" db:"phone_confirmation_sent_at"`

	NewEmail          *string    `json:"new_email,omitempty" db:"new_email"`
	EmailChangeToken  *string    `json:"-" db:"email_change_token"`
	EmailChangeSentAt *time.Time `json:"email_change_sent_at,omitempty" db:"email_change_sent_at"`

	NewPhone          *string    `json:"new_phone,omitempty" db:"new_phone"`
	PhoneChangeToken  *string    `json:"-" db:"phone_change_token"`
	PhoneChangeSentAt *time.Time `json:"phone_change_sent_at,omitempty" db:"phone_change_sent_at"`

	RecoveryToken  *string    `json:"-" db:"recovery_token"`
	RecoverySentAt *time.Time `json:"recovery_sent_at,omitempty" db:"recovery_sent_at"`

	EmailInvitationToken *string    `json:"-" db:"email_invitation_token"`
	PhoneInvitationToken *string    `json:"-" db:"phone_invitation_token"`
	InvitationSentAt     *time.Time `json:"invitation_sent_at,omitempty" db:"invitation_sent_at"`
	InvitationAcceptedAt *time.Time `json:"invitation_accepted_at,omitempty" db:"invitation_accepted_at"`

	AppMetadata  JSONMap `json:"app_metadata,omitempty" db:"app_metadata"`
	UserMetadata JSONMap `json:"user_metadata,omitempty" db:"user_metadata"`

	LastSigninAt *time.Time `json:"last_signin_at,omitempty" db:"last_signin_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Confirmed reports whether at least one contact channel has been verified.
func (u *User) Confirmed() bool {
	return u.EmailConfirmed || u.PhoneConfirmed
}

// SetPassword replaces the stored hash with a bcrypt hash of password.
func (u *User) SetPassword(password string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	hashed := string(hash)
	u.PasswordHash = &hashed
	return nil
}

// VerifyPassword compares password against the stored hash. A user without a
// password (e.g. created through an OAuth provider) never verifies.
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) == nil
}

// ConfirmEmail marks the email channel verified and consumes the token.
func (u *User) ConfirmEmail(now time.Time) {
	u.EmailConfirmed = true
	u.EmailConfirmedAt = &now
	u.EmailConfirmationToken = nil
}

// ConfirmPhone marks the phone channel verified and consumes the token.
func (u *User) ConfirmPhone(now time.Time) {
	u.PhoneConfirmed = true
	u.PhoneConfirmedAt = &now
	u.PhoneConfirmationToken = nil
}

// AcceptInvitation consumes both invitation tokens and stamps acceptance.
func (u *User) AcceptInvitation(now time.Time) {
	u.EmailInvitationToken = nil
	u.PhoneInvitationToken = nil
	u.InvitationAcceptedAt = &now
}

// WithMetadataOverride returns a copy of the user with app/user metadata
// replaced by the webhook response values where present. The copy keeps the
// transition's effect sequence auditable; callers persist it explicitly.
func (u User) WithMetadataOverride(appMetadata, userMetadata JSONMap) User {
	if appMetadata != nil {
		u.AppMetadata = appMetadata
	}
	if userMetadata != nil {
		u.UserMetadata = userMetadata
	}
	return u
}
