package config

// MailConfig carries the notification template strings and subjects. The core
// renders these with a data map and hands the resulting string to the mail/SMS
// collaborator; transport is not a core concern.
type MailConfig struct {
	SMTPHost     string `env:"SMTP_HOST,default=localhost"`
	SMTPPort     string `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER,default="`
	SMTPPassword string `env:"SMTP_PASSWORD,default="`
	From         string `env:"FROM,default=gatehouse@localhost"`

	ConfirmationSubject string `env:"CONFIRMATION_SUBJECT,default=Confirm Your Account"`
	InvitationSubject   string `env:"INVITATION_SUBJECT,default=You Have Been Invited"`
	RecoverySubject     string `env:"RECOVERY_SUBJECT,default=Recover Your Account"`
	ChangeSubject       string `env:"CHANGE_SUBJECT,default=Confirm Email Change"`

	ConfirmationTemplate string `env:"CONFIRMATION_TEMPLATE"`
	InvitationTemplate   string `env:"INVITATION_TEMPLATE"`
	RecoveryTemplate     string `env:"RECOVERY_TEMPLATE"`
	ChangeTemplate       string `env:"CHANGE_TEMPLATE"`

	ConfirmationSMSTemplate string `env:"CONFIRMATION_SMS_TEMPLATE"`
	InvitationSMSTemplate   string `env:"INVITATION_SMS_TEMPLATE"`
	RecoverySMSTemplate     string `env:"RECOVERY_SMS_TEMPLATE"`
	ChangeSMSTemplate       string `env:"CHANGE_SMS_TEMPLATE"`
}

const (
	defaultConfirmationTemplate = `<h2>Confirm your email</h2><p>Follow this link to confirm your email</p><p><a href='{{.site_url}}?confirmation_token={{.confirmation_token}}'>Confirm</a></p>`
	defaultInvitationTemplate   = `<h2>You have been invited</h2><p>Follow this link to accept your invitation</p><p><a href='{{.site_url}}?invitation_token={{.invitation_token}}'>Accept Invite</a></p>`
	defaultRecoveryTemplate     = `<h2>Recover Your Account</h2><p>Follow this link to recover your account</p><p><a href='{{.site_url}}?recovery_token={{.recovery_token}}'>Recover</a></p>`
	defaultChangeTemplate       = `<h2>Change Your Email Address</h2><p>Follow this link to confirm your email address change</p><p><a href='{{.site_url}}?email_change_token={{.email_change_token}}'>Confirm</a></p>`

	defaultConfirmationSMSTemplate = `Phone confirmation code - {{.confirmation_token}}`
	defaultInvitationSMSTemplate   = `Invitation acceptance code - {{.invitation_token}}`
	defaultRecoverySMSTemplate     = `Phone recovery code - {{.recovery_token}}`
	defaultChangeSMSTemplate       = `Phone change code - {{.phone_change_token}}`
)

func (m *MailConfig) applyDefaults() {
	if m.ConfirmationTemplate == "" {
		m.ConfirmationTemplate = defaultConfirmationTemplate
	}
	if m.InvitationTemplate == "" {
		m.InvitationTemplate = defaultInvitationTemplate
	}
	if m.RecoveryTemplate == "" {
		m.RecoveryTemplate = defaultRecoveryTemplate
	}
	if m.ChangeTemplate == "" {
		m.ChangeTemplate = defaultChangeTemplate
	}
	if m.ConfirmationSMSTemplate == "" {
		m.ConfirmationSMSTemplate = defaultConfirmationSMSTemplate
	}
	if m.InvitationSMSTemplate == "" {
		m.InvitationSMSTemplate = defaultInvitationSMSTemplate
	}
	if m.RecoverySMSTemplate == "" {
		m.RecoverySMSTemplate = defaultRecoverySMSTemplate
	}
	if m.ChangeSMSTemplate == "" {
		m.ChangeSMSTemplate = defaultChangeSMSTemplate
	}
}
