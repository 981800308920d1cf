// Package push delivers mobile push notifications through Firebase Cloud Messaging.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/charlesng35/notifier/internal/notifications"
)

// maxMulticastTokens is the FCM limit for one multicast request.
const maxMulticastTokens = 500

// Credentials locates the service account used to authenticate with FCM.
// CredentialsFile wins over CredentialsJSON, which wins over the discrete fields.
type Credentials struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
	ClientEmail     string
	PrivateKey      string
	PrivateKeyID    string
	ClientID        string
}

// Configured reports whether any credential source is present.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.CredentialsFile) != "" ||
		strings.TrimSpace(c.CredentialsJSON) != "" ||
		(strings.TrimSpace(c.ClientEmail) != "" && strings.TrimSpace(c.PrivateKey) != "")
}

func (c Credentials) clientOption() (option.ClientOption, error) {
	switch {
	case strings.TrimSpace(c.CredentialsFile) != "":
		return option.WithCredentialsFile(strings.TrimSpace(c.CredentialsFile)), nil
	case strings.TrimSpace(c.CredentialsJSON) != "":
		return option.WithCredentialsJSON([]byte(c.CredentialsJSON)), nil
	case strings.TrimSpace(c.ClientEmail) != "" && strings.TrimSpace(c.PrivateKey) != "":
		raw, err := c.serviceAccountJSON()
		if err != nil {
			return nil, err
		}
		return option.WithCredentialsJSON(raw), nil
	default:
		return nil, fmt.Errorf("%w: push: no firebase credentials", notifications.ErrChannelNotConfigured)
	}
}

// serviceAccountJSON assembles a service account document from discrete
// fields. Escaped newlines in the private key are expanded.
func (c Credentials) serviceAccountJSON() ([]byte, error) {
	if strings.TrimSpace(c.ProjectID) == "" {
		return nil, fmt.Errorf("%w: push: project id is required", notifications.ErrChannelNotConfigured)
	}
	doc := map[string]string{
		"type":           "service_account",
		"project_id":     strings.TrimSpace(c.ProjectID),
		"private_key_id": strings.TrimSpace(c.PrivateKeyID),
		"private_key":    strings.ReplaceAll(c.PrivateKey, `\n`, "\n"),
		"client_email":   strings.TrimSpace(c.ClientEmail),
		"client_id":      strings.TrimSpace(c.ClientID),
		"auth_uri":       "https://accounts.google.com/o/oauth2/auth",
		"token_uri":      "https://oauth2.googleapis.com/token",
	}
	return json.Marshal(doc)
}

type multicastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMProvider implements notifications.PushProvider. The Firebase client is
// created on first use and reused afterwards.
type FCMProvider struct {
	creds    Credentials
	log      *zap.Logger
	connect  func(context.Context) (multicastClient, error)
	classify func(error) notifications.TokenFailure

	once    sync.Once
	client  multicastClient
	initErr error
}

// NewFCMProvider constructs a provider for creds.
func NewFCMProvider(creds Credentials, log *zap.Logger) *FCMProvider {
	if log == nil {
		log = zap.NewNop()
	}
	p := &FCMProvider{creds: creds, log: log, classify: classifyError}
	p.connect = p.connectFirebase
	return p
}

func (p *FCMProvider) connectFirebase(ctx context.Context) (multicastClient, error) {
	opt, err := p.creds.clientOption()
	if err != nil {
		return nil, err
	}

	var cfg *firebase.Config
	if projectID := strings.TrimSpace(p.creds.ProjectID); projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opt)
	if err != nil {
		return nil, fmt.Errorf("push: init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("push: init messaging client: %w", err)
	}
	return client, nil
}

func (p *FCMProvider) transport() (multicastClient, error) {
	p.once.Do(func() {
		p.client, p.initErr = p.connect(context.Background())
		if p.initErr != nil {
			p.log.Warn("push transport unavailable", zap.Error(p.initErr))
			return
		}
		p.log.Info("push transport initialised", zap.String("project_id", p.creds.ProjectID))
	})
	return p.client, p.initErr
}

// SendMulticast sends msg to every token and reports a result per token.
func (p *FCMProvider) SendMulticast(ctx context.Context, msg notifications.PushMessage) ([]notifications.TokenResult, error) {
	client, err := p.transport()
	if err != nil {
		return nil, err
	}

	results := make([]notifications.TokenResult, 0, len(msg.Tokens))
	for start := 0; start < len(msg.Tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(msg.Tokens))
		batch := msg.Tokens[start:end]

		resp, err := client.SendEachForMulticast(ctx, buildMulticast(msg, batch))
		if err != nil {
			return results, fmt.Errorf("push: send multicast: %w", err)
		}
		if resp == nil || len(resp.Responses) != len(batch) {
			return results, errors.New("push: provider returned a mismatched response")
		}
		for i, token := range batch {
			results = append(results, p.tokenResult(token, resp.Responses[i]))
		}
	}
	return results, nil
}

func (p *FCMProvider) tokenResult(token string, resp *messaging.SendResponse) notifications.TokenResult {
	if resp == nil {
		return notifications.TokenResult{Token: token, Failure: notifications.TokenTransient, Err: errors.New("push: empty response")}
	}
	if resp.Success {
		return notifications.TokenResult{Token: token, Failure: notifications.TokenDelivered}
	}
	return notifications.TokenResult{Token: token, Failure: p.classify(resp.Error), Err: resp.Error}
}

func buildMulticast(msg notifications.PushMessage, tokens []string) *messaging.MulticastMessage {
	badge := msg.Badge
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-push-type": "alert",
				"apns-priority":  "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge: &badge,
					Sound: "default",
				},
			},
		},
	}
}

// classifyError maps FCM error codes onto token failures. Only codes that
// prove the token itself is bad are permanent.
func classifyError(err error) notifications.TokenFailure {
	switch {
	case err == nil:
		return notifications.TokenTransient
	case messaging.IsUnregistered(err):
		return notifications.TokenUnregistered
	case messaging.IsInvalidArgument(err), messaging.IsSenderIDMismatch(err):
		return notifications.TokenInvalid
	default:
		return notifications.TokenTransient
	}
}
