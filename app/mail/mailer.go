package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

type Email struct {
	Subject      string
	Body         string
	From         string
	To           []string
	Template     string
	TemplateVars map[string]any
}

type Mailer interface {
	SendMail(e *Email) error
	SendTemplatedMail(e *Email) error
}

type Mailgun struct {
	domain  string
	apiKey  string
	apiBase string
}

func NewMailer(domain, apiKey, apiBase string) *Mailgun {
	return &Mailgun{
		domain:  domain,
		apiKey:  apiKey,
		apiBase: apiBase,
	}
}

func (m *Mailgun) client() *mailgun.MailgunImpl {
	mg := mailgun.NewMailgun(m.domain, m.apiKey)
	if m.apiBase != "" {
		mg.SetAPIBase(m.apiBase)
	}
	return mg
}

func (m *Mailgun) SendMail(e *Email) error {
	mg := m.client()

	message := mailgun.NewMessage(e.From, e.Subject, e.Body, e.To...)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, _, err := mg.Send(ctx, message)
	if err != nil {
		return err
	}

	return nil
}

func (m *Mailgun) SendTemplatedMail(e *Email) error {
	mg := m.client()

	message := mailgun.NewMessage(e.From, e.Subject, "", e.To...)
	message.SetTemplate(e.Template)

	for k, v := range e.TemplateVars {
		message.AddTemplateVariable(k, v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	_, _, err := mg.Send(ctx, message)
	if err != nil {
		return err
	}

	return nil
}

// WelcomeEmail builds the greeting sent after registration.
func WelcomeEmail(domain, to, firstName, username, role string) *Email {
	return &Email{
		Subject: "Welcome to TaskFlow!",
		From:    fmt.Sprintf("TaskFlow <no-reply@%s>", domain),
		To:      []string{to},
		Body: fmt.Sprintf(
			"Hello %s,\n\nWelcome to TaskFlow! Your account has been successfully created.\n\nUsername: %s\nRole: %s\n\nYou can now log in and start managing your projects and tasks.\n\nBest regards,\nThe TaskFlow Team\n",
			firstName, username, role),
	}
}

// PasswordResetEmail builds the reset message with the tokenized frontend link.
// The link expires one hour after the token is issued.
func PasswordResetEmail(domain, frontendURL, to, firstName, token string) *Email {
	return &Email{
		Subject: "TaskFlow - Password Reset Request",
		From:    fmt.Sprintf("TaskFlow <no-reply@%s>", domain),
		To:      []string{to},
		Body: fmt.Sprintf(
			"Hello %s,\n\nYou have requested to reset your TaskFlow password.\n\nTo reset your password, open the link below:\n%s/reset-password?token=%s\n\nThis link will expire in 1 hour.\n\nIf you did not request this password reset, please ignore this email.\n\nBest regards,\nThe TaskFlow Team\n",
			firstName, frontendURL, token),
	}
}
