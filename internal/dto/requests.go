package dto

import "github.com/gatehouse/gatehouse/internal/domain"

// SignupRequest represents a self-service registration. Email/phone formats
// are validated against the configured rules, not binding tags, so operators
// can tighten or loosen them without a rebuild.
type SignupRequest struct {
	Email    string         `json:"email"`
	Phone    string         `json:"phone"`
	Password string         `json:"password" binding:"required"`
	Name     string         `json:"name"`
	Avatar   string         `json:"avatar"`
	Metadata domain.JSONMap `json:"metadata"`
}

// TokenRequest represents a password or refresh-token grant
type TokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type" binding:"required"`
	Username     string `json:"username" form:"username"`
	Password     string `json:"password" form:"password"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// ConfirmRequest confirms an email or phone channel with a single-use token
type ConfirmRequest struct {
	Type  string `json:"type" binding:"required,oneof=email phone"`
	Token string `json:"token" binding:"required"`
}

// ResendRequest asks for a fresh confirmation token
type ResendRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ResetRequest starts account recovery. Username is an email address or a
// phone number; the format decides the delivery channel.
type ResetRequest struct {
	Username string `json:"username" binding:"required"`
}

// ResetConfirmRequest completes account recovery
type ResetConfirmRequest struct {
	RecoveryToken string `json:"recovery_token" binding:"required"`
	Password      string `json:"password" binding:"required"`
}

// InviteRequest invites a new user over exactly one channel
type InviteRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// AcceptInviteRequest accepts an invitation and sets the initial password
type AcceptInviteRequest struct {
	Type            string `json:"type" binding:"required,oneof=email phone"`
	InvitationToken string `json:"invitation_token" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// ChangeEmailRequest starts (or, with auto-confirm, completes) an email change
type ChangeEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// ChangePhoneRequest starts (or, with auto-confirm, completes) a phone change
type ChangePhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// ConfirmChangeRequest completes a pending email or phone change
type ConfirmChangeRequest struct {
	Type  string `json:"type" binding:"required,oneof=email phone"`
	Token string `json:"token" binding:"required"`
}

// ChangePasswordRequest replaces the password after verifying the old one
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AdminUserRequest creates or updates a user on behalf of an admin
type AdminUserRequest struct {
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Password     string         `json:"password"`
	Name         string         `json:"name"`
	Avatar       string         `json:"avatar"`
	Confirm      bool           `json:"confirm"`
	IsAdmin      bool           `json:"is_admin"`
	AppMetadata  domain.JSONMap `json:"app_metadata"`
	UserMetadata domain.JSONMap `json:"user_metadata"`
}

// ListUsersQuery paginates the admin user listing
type ListUsersQuery struct {
	Page    int `form:"page,default=1"`
	PerPage int `form:"per_page,default=50"`
}
