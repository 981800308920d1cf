package app

import (
	"strings"

	"github.com/charlesng35/notifier/pkg/mail"
)

// Transport returns a factory for the configured mail transport. The factory
// reports mail.ErrNotConfigured when no provider or credentials are set.
func (c EmailConfig) Transport() func() (mail.Mailer, error) {
	return func() (mail.Mailer, error) {
		switch strings.ToLower(strings.TrimSpace(c.Provider)) {
		case "smtp":
			return mail.NewSMTPMailer(c.SMTPSettings())
		case "postmark":
			return mail.NewPostmarkMailer(mail.PostmarkSettings{
				ServerToken:  strings.TrimSpace(c.Postmark.ServerToken),
				AccountToken: strings.TrimSpace(c.Postmark.AccountToken),
				From:         c.From,
				ReplyTo:      c.ReplyTo,
				TrackOpens:   c.Postmark.TrackOpens,
			})
		default:
			return nil, mail.ErrNotConfigured
		}
	}
}

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  strings.EqualFold(strings.TrimSpace(c.Provider), "smtp"),
		Host:     strings.TrimSpace(c.SMTP.Host),
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}
