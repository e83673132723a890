package service

import "github.com/gatehouse/gatehouse/internal/domain"

// Stable error codes returned by the lifecycle state machine. Missing-user and
// wrong-password login failures share one value so response bodies cannot be
// used to enumerate accounts.
var (
	errEmailOrPhoneRequired = domain.NewError(422, "email_or_phone_number_required", "An email address or phone number is required")
	errSignupDisabled       = domain.NewError(422, "signup_disabled", "Signups are disabled for this instance")
	errEmailDisabled        = domain.NewError(400, "email_disabled", "Email signups are disabled for this instance")
	errPhoneDisabled        = domain.NewError(400, "phone_disabled", "Phone signups are disabled for this instance")

	errInvalidPasswordFormat = domain.NewError(400, "invalid_password_format", "Invalid password format")
	errInvalidEmailFormat    = domain.NewError(400, "invalid_email_format", "Invalid email format")
	errInvalidPhoneFormat    = domain.NewError(400, "invalid_phone_format", "Invalid phone number format")

	errEmailRegistered = domain.NewError(409, "email_registered", "This email address has already been registered")
	errPhoneRegistered = domain.NewError(409, "phone_registered", "This phone number has already been registered")

	errInvalidCredentials = domain.NewError(401, "invalid_username_or_password", "Invalid username or password")
	errUserNotConfirmed   = domain.NewError(412, "user_not_confirmed", "Account has not been confirmed")

	errInvalidRefreshToken = domain.NewError(400, "invalid_refresh_token", "Invalid refresh token")
	errUnsupportedGrant    = domain.NewError(400, "unsupported_grant_type", "Unsupported grant type")

	errUserNotFound            = domain.NewError(404, "user_not_found", "User not found")
	errConfirmationNotFound    = domain.NewError(404, "confirmation_token_not_found", "Confirmation token not found")
	errRecoveryTokenNotFound   = domain.NewError(404, "recovery_token_not_found", "Recovery token not found")
	errInvitationTokenNotFound = domain.NewError(404, "invitation_token_not_found", "Invitation token not found")
	errChangeTokenNotFound     = domain.NewError(404, "change_token_not_found", "Change token not found")

	errInvalidOldPassword = domain.NewError(400, "invalid_old_password", "Invalid old password")
	errTooManyRequests    = domain.NewError(429, "too_many_requests", "A confirmation was requested too recently")

	errAdminOnly           = domain.NewError(403, "admin_only", "Admin privileges required")
	errSelfActionForbidden = domain.NewError(400, "self_action_forbidden", "Admins cannot modify their own account through this endpoint")

	errInvalidProvider  = domain.NewError(400, "invalid_provider", "Unknown OAuth provider")
	errProviderDisabled = domain.NewError(400, "provider_disabled", "This OAuth provider is disabled")
	errInvalidState     = domain.NewError(400, "invalid_state", "Invalid or expired authorization state")
	errNoProviderEmail  = domain.NewError(422, "no_email_from_provider", "The OAuth provider did not return an email address")
)
