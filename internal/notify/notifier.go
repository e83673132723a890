package notify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/domain"
	"go.uber.org/zap"
)

// EmailTransport delivers a rendered HTML mail.
type EmailTransport interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// SMSTransport delivers a rendered text message.
type SMSTransport interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Notifier renders the operator-configurable templates and pushes them through
// the right transport. Template parsing happens once at construction so a bad
// template fails the process at startup, not on the first signup.
type Notifier struct {
	cfg     *config.MailConfig
	siteURL string
	email   EmailTransport
	sms     SMSTransport
	logger  *zap.Logger

	templates map[string]*template.Template
}

// NewNotifier parses all configured templates and returns a ready notifier.
func NewNotifier(cfg *config.MailConfig, siteURL string, email EmailTransport, sms SMSTransport, logger *zap.Logger) (*Notifier, error) {
	sources := map[string]string{
		"confirmation":     cfg.ConfirmationTemplate,
		"invitation":       cfg.InvitationTemplate,
		"recovery":         cfg.RecoveryTemplate,
		"email_change":     cfg.ChangeTemplate,
		"confirmation_sms": cfg.ConfirmationSMSTemplate,
		"invitation_sms":   cfg.InvitationSMSTemplate,
		"recovery_sms":     cfg.RecoverySMSTemplate,
		"phone_change_sms": cfg.ChangeSMSTemplate,
	}

	templates := make(map[string]*template.Template, len(sources))
	for name, source := range sources {
		tmpl, err := template.New(name).Parse(source)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Notifier{
		cfg:       cfg,
		siteURL:   siteURL,
		email:     email,
		sms:       sms,
		logger:    logger,
		templates: templates,
	}, nil
}

func (n *Notifier) render(name string, data map[string]any) (string, error) {
	data["site_url"] = n.siteURL

	var out strings.Builder
	if err := n.templates[name].Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return out.String(), nil
}

func (n *Notifier) sendMail(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	body, err := n.render(templateName, data)
	if err != nil {
		return err
	}

	if err := n.email.SendMail(ctx, to, subject, body); err != nil {
		n.logger.Error("failed to send mail",
			zap.String("template", templateName),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, to, templateName string, data map[string]any) error {
	body, err := n.render(templateName, data)
	if err != nil {
		return err
	}

	if err := n.sms.SendSMS(ctx, to, body); err != nil {
		n.logger.Error("failed to send sms",
			zap.String("template", templateName),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ConfirmationEmail sends the signup confirmation link.
func (n *Notifier) ConfirmationEmail(ctx context.Context, user *domain.User) error {
	return n.sendMail(ctx, *user.Email, n.cfg.ConfirmationSubject, "confirmation", map[string]any{
		"email":              *user.Email,
		"confirmation_token": deref(user.EmailConfirmationToken),
	})
}

// ConfirmationSMS sends the signup confirmation code.
func (n *Notifier) ConfirmationSMS(ctx context.Context, user *domain.User) error {
	return n.sendSMS(ctx, *user.Phone, "confirmation_sms", map[string]any{
		"phone":              *user.Phone,
		"confirmation_token": deref(user.PhoneConfirmationToken),
	})
}

// InvitationEmail sends the invitation acceptance link.
func (n *Notifier) InvitationEmail(ctx context.Context, user *domain.User) error {
	return n.sendMail(ctx, *user.Email, n.cfg.InvitationSubject, "invitation", map[string]any{
		"email":            *user.Email,
		"invitation_token": deref(user.EmailInvitationToken),
	})
}

// InvitationSMS sends the invitation acceptance code.
func (n *Notifier) InvitationSMS(ctx context.Context, user *domain.User) error {
	return n.sendSMS(ctx, *user.Phone, "invitation_sms", map[string]any{
		"phone":            *user.Phone,
		"invitation_token": deref(user.PhoneInvitationToken),
	})
}

// RecoveryEmail sends the password recovery link.
func (n *Notifier) RecoveryEmail(ctx context.Context, user *domain.User) error {
	return n.sendMail(ctx, *user.Email, n.cfg.RecoverySubject, "recovery", map[string]any{
		"email":          *user.Email,
		"recovery_token": deref(user.RecoveryToken),
	})
}

// RecoverySMS sends the password recovery code.
func (n *Notifier) RecoverySMS(ctx context.Context, user *domain.User) error {
	return n.sendSMS(ctx, *user.Phone, "recovery_sms", map[string]any{
		"phone":          *user.Phone,
		"recovery_token": deref(user.RecoveryToken),
	})
}

// EmailChangeMail sends the change-confirmation link to the address being
// adopted, so possession of the new mailbox is what completes the change.
func (n *Notifier) EmailChangeMail(ctx context.Context, user *domain.User) error {
	return n.sendMail(ctx, *user.NewEmail, n.cfg.ChangeSubject, "email_change", map[string]any{
		"email":              deref(user.Email),
		"new_email":          *user.NewEmail,
		"email_change_token": deref(user.EmailChangeToken),
	})
}

// PhoneChangeSMS sends the change-confirmation code to the number being adopted.
func (n *Notifier) PhoneChangeSMS(ctx context.Context, user *domain.User) error {
	return n.sendSMS(ctx, *user.NewPhone, "phone_change_sms", map[string]any{
		"phone":              deref(user.Phone),
		"new_phone":          *user.NewPhone,
		"phone_change_token": deref(user.PhoneChangeToken),
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
