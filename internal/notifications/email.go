package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/notifier/internal/models"
	"github.com/charlesng35/notifier/pkg/mail"
)

// MailerFactory builds the outbound mail transport. It returns
// mail.ErrNotConfigured when no credentials are available.
type MailerFactory func() (mail.Mailer, error)

// EmailChannel renders notification emails and hands them to a transport that
// is built on first use and reused for the life of the process.
type EmailChannel struct {
	factory      MailerFactory
	dashboardURL string
	log          *zap.Logger

	once    sync.Once
	mailer  mail.Mailer
	initErr error
}

// NewEmailChannel constructs an EmailChannel. frontendURL is the web app base
// used for dashboard links.
func NewEmailChannel(factory MailerFactory, frontendURL string, log *zap.Logger) (*EmailChannel, error) {
	if factory == nil {
		return nil, errors.New("email channel: mailer factory is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	dashboard := ""
	if base := strings.TrimRight(strings.TrimSpace(frontendURL), "/"); base != "" {
		dashboard = base + "/dashboard"
	}
	return &EmailChannel{factory: factory, dashboardURL: dashboard, log: log}, nil
}

func (c *EmailChannel) transport() (mail.Mailer, error) {
	c.once.Do(func() {
		c.mailer, c.initErr = c.factory()
		if c.initErr == nil && c.mailer == nil {
			c.initErr = mail.ErrNotConfigured
		}
		if c.initErr != nil {
			c.log.Warn("email transport unavailable", zap.Error(c.initErr))
		}
	})
	return c.mailer, c.initErr
}

// send renders and sends the notification to user. Missing credentials or a
// missing address yield ErrChannelNotConfigured.
func (c *EmailChannel) send(ctx context.Context, user models.User, n notification) error {
	ctx = ensureContext(ctx)

	mailer, err := c.transport()
	if err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			return fmt.Errorf("%w: email: %v", ErrChannelNotConfigured, err)
		}
		return fmt.Errorf("email channel: init transport: %w", err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: email: user has no address", ErrChannelNotConfigured)
	}

	subject, body, err := RenderEmail(ctx, EmailContent{
		RecipientName:    user.DisplayName(),
		NotificationType: n.Type,
		Title:            n.Title,
		Message:          n.Message,
		Details:          n.Details,
		DashboardURL:     c.dashboardURL,
	})
	if err != nil {
		return err
	}

	if err := mailer.Send(ctx, mail.Message{
		To:      []string{user.Email},
		Subject: subject,
		HTML:    body,
		Tag:     n.Type,
	}); err != nil {
		return fmt.Errorf("email channel: send: %w", err)
	}
	return nil
}
