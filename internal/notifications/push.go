package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/notifier/pkg/metrics"
)

// TokenFailure classifies a per-token push failure.
type TokenFailure int

const (
	// TokenDelivered means the provider accepted the message for the token.
	TokenDelivered TokenFailure = iota
	// TokenTransient is a retryable failure; the token is kept.
	TokenTransient
	// TokenUnregistered means the app instance is gone.
	TokenUnregistered
	// TokenInvalid means the token is malformed or was never valid.
	TokenInvalid
)

// Permanent reports whether the token should be deleted.
func (f TokenFailure) Permanent() bool {
	return f == TokenUnregistered || f == TokenInvalid
}

// PushMessage is one multicast push to every device of a user.
type PushMessage struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
	Badge  int
}

// TokenResult is the provider outcome for a single token.
type TokenResult struct {
	Token   string
	Failure TokenFailure
	Err     error
}

// PushProvider sends multicast pushes. Implementations return an error
// wrapping ErrChannelNotConfigured when they cannot be initialised.
type PushProvider interface {
	SendMulticast(ctx context.Context, msg PushMessage) ([]TokenResult, error)
}

// PushReport summarises one multicast send.
type PushReport struct {
	Delivered int
	Failed    int
	Pruned    []string
}

// PushChannel delivers pushes and keeps the token table clean.
type PushChannel struct {
	provider PushProvider
	store    Store
	log      *zap.Logger
}

// NewPushChannel wires a provider to the token store.
func NewPushChannel(provider PushProvider, store Store, log *zap.Logger) (*PushChannel, error) {
	if provider == nil {
		return nil, errors.New("push channel: provider is required")
	}
	if store == nil {
		return nil, errors.New("push channel: store is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PushChannel{provider: provider, store: store, log: log}, nil
}

// Send pushes title/body to tokens. Tokens the provider reports as permanently
// invalid are deleted in one batch; transient failures keep their tokens.
func (c *PushChannel) Send(ctx context.Context, userID string, tokens []string, title, body string, data map[string]any, badge *int) (PushReport, error) {
	ctx = ensureContext(ctx)
	if len(tokens) == 0 {
		return PushReport{}, nil
	}

	msg := PushMessage{
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data:   stringifyData(data),
		Badge:  c.badgeCount(ctx, userID, badge),
	}

	results, err := c.provider.SendMulticast(ctx, msg)
	if err != nil {
		return PushReport{}, fmt.Errorf("push channel: send: %w", err)
	}

	var report PushReport
	var invalid []string
	for _, res := range results {
		switch {
		case res.Failure == TokenDelivered:
			report.Delivered++
		case res.Failure.Permanent():
			report.Failed++
			invalid = append(invalid, res.Token)
		default:
			report.Failed++
			c.log.Debug("push token failed transiently",
				zap.String("user_id", userID), zap.Error(res.Err))
		}
	}

	if len(invalid) > 0 {
		removed, err := c.store.DeleteDeviceTokens(ctx, userID, invalid)
		if err != nil {
			c.log.Error("failed to prune invalid push tokens",
				zap.String("user_id", userID), zap.Int("tokens", len(invalid)), zap.Error(err))
		} else {
			report.Pruned = invalid
			metrics.PushTokensPruned.Add(float64(removed))
			c.log.Info("pruned invalid push tokens",
				zap.String("user_id", userID), zap.Int64("removed", removed))
		}
	}

	return report, nil
}

// badgeCount prefers the explicit count, then the live unread count, then 1.
func (c *PushChannel) badgeCount(ctx context.Context, userID string, explicit *int) int {
	if explicit != nil {
		return *explicit
	}
	count, err := c.store.CountUnread(ctx, userID)
	if err != nil || count <= 0 {
		return 1
	}
	return int(count)
}

// stringifyData coerces every value to a string; push payload data fields
// must be strings. Non-string values are JSON encoded.
func stringifyData(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case nil:
			out[key] = ""
		case string:
			out[key] = v
		case fmt.Stringer:
			out[key] = v.String()
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				out[key] = fmt.Sprint(v)
				continue
			}
			out[key] = string(raw)
		}
	}
	return out
}
