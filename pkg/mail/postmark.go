package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

// PostmarkSettings configure the Postmark API transport.
type PostmarkSettings struct {
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string
	TrackOpens   bool
}

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type postmarkMailer struct {
	cfg    PostmarkSettings
	client postmarkAPI
}

// NewPostmarkMailer builds a Postmark-backed transport. It returns
// ErrNotConfigured when the server token is absent.
func NewPostmarkMailer(cfg PostmarkSettings) (Mailer, error) {
	if strings.TrimSpace(cfg.ServerToken) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("postmark: sender address is required")
	}
	return &postmarkMailer{
		cfg:    cfg,
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
	}, nil
}

func (m *postmarkMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return errors.New("postmark: at least one recipient is required")
	}

	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = m.cfg.ReplyTo
	}

	email := postmark.Email{
		From:       senderAddress(msg, m.cfg.From),
		ReplyTo:    replyTo,
		To:         strings.Join(recipients, ","),
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTML,
		TextBody:   msg.Text,
		TrackOpens: m.cfg.TrackOpens,
	}
	if msg.HTML != "" {
		email.TrackLinks = "HtmlOnly"
	}

	resp, err := m.client.SendEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("postmark: send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark: error %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
