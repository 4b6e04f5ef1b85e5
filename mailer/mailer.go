package mailer

import (
	"context"
	"errors"
	"fmt"

	"devcamper-backend/config"

	"gopkg.in/gomail.v2"
)

// Email represents an email message.
type Email struct {
	To       string
	Subject  string
	Body     string
	HTMLBody string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Mailer sends email over SMTP.
type Mailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewMailer creates a Mailer from the SMTP settings in cfg.
func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// Send sends a single email. gomail has no context support, so ctx is only
// checked before dialing.
func (m *Mailer) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return errors.New("no recipients specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(m.message(email))
}

func (m *Mailer) message(email Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}
	return msg
}
