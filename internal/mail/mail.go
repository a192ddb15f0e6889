// Package mail sends the waitlist welcome email over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/guaupro/landing/internal/model"
)

// NotifierName labels the mailer in notification metrics.
const NotifierName = "welcome_email"

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether enough settings are present to send mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// Sender delivers composed messages. *gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends a welcome email to every new lead.
type Mailer struct {
	sender Sender
	from   string
	logger *slog.Logger
}

// NewMailer creates a Mailer that dials the configured SMTP server per send.
func NewMailer(cfg Config, logger *slog.Logger) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password), cfg.From, logger)
}

// NewMailerWithSender creates a Mailer on top of an existing Sender.
func NewMailerWithSender(sender Sender, from string, logger *slog.Logger) *Mailer {
	return &Mailer{
		sender: sender,
		from:   from,
		logger: logger.With("component", "mail"),
	}
}

// Name implements waitlist.Notifier.
func (m *Mailer) Name() string {
	return NotifierName
}

// Notify sends the welcome email to lead. SMTP dialing is not
// cancellable, so ctx is only checked before sending.
func (m *Mailer) Notify(ctx context.Context, lead *model.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := WelcomeMessage(m.from, lead)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	m.logger.Info("welcome email sent", "lead_id", lead.ID)
	return nil
}

// WelcomeMessage composes the welcome email for lead.
func WelcomeMessage(from string, lead *model.Lead) (*gomail.Message, error) {
	html, err := renderWelcomeHTML(lead)
	if err != nil {
		return nil, fmt.Errorf("render welcome email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetAddressHeader("To", lead.Email, lead.FullName)
	msg.SetHeader("Subject", fmt.Sprintf("Welcome to the Guau Pro waitlist, %s", firstName(lead.FullName)))
	msg.SetBody("text/plain", renderWelcomeText(lead))
	msg.AddAlternative("text/html", html)
	return msg, nil
}
