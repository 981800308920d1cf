package mail

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured signals that no transport credentials were supplied.
	ErrNotConfigured = errors.New("mail: transport not configured")
	// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
	ErrSMTPDisabled = errors.New("smtp: delivery disabled")
)

// Message represents an outbound email.
type Message struct {
	From    string
	ReplyTo string
	To      []string
	Subject string
	HTML    string
	Text    string
	Tag     string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg Message) error

// Send calls f(ctx, msg).
func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func senderAddress(msg Message, fallback string) string {
	if from := strings.TrimSpace(msg.From); from != "" {
		return from
	}
	return strings.TrimSpace(fallback)
}
