package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/charlesng35/notifier/internal/models"
	"github.com/charlesng35/notifier/pkg/metrics"
)

// Dispatcher fans a notification out to the channels a user has enabled.
type Dispatcher struct {
	store     Store
	publisher Publisher
	inApp     *InAppChannel
	push      *PushChannel
	email     *EmailChannel
	guard     *SpamGuard
	timeout   time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewDispatcher constructs a Dispatcher. Push and email are only attempted when
// their channels are supplied through options; publisher may be nil.
func NewDispatcher(store Store, publisher Publisher, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("notification dispatcher: store is required")
	}
	cfg := applyOptions(opts)
	inApp, err := NewInAppChannel(store)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		store:     store,
		publisher: publisher,
		inApp:     inApp,
		push:      cfg.push,
		email:     cfg.email,
		guard:     NewSpamGuard(store, cfg.spamWindow, cfg.now, cfg.log),
		timeout:   cfg.channelTimeout,
		now:       cfg.now,
		log:       cfg.log,
	}, nil
}

type recipient struct {
	user   models.User
	prefs  Lookup[[]models.NotificationPreference]
	tokens Lookup[[]string]
}

// Send delivers in to userID. Channel failures never fail the call; only a
// missing user, an invalid input or a panic outside the channels do.
func (d *Dispatcher) Send(ctx context.Context, userID string, in Input) (result Result) {
	ctx = ensureContext(ctx)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notification dispatch panicked",
				zap.String("user_id", userID), zap.Any("panic", r))
			result = Result{Success: false, Error: fmt.Sprint(r)}
		}
		metrics.DispatchLatency.WithLabelValues(resultLabel(result)).Observe(time.Since(start).Seconds())
	}()

	n, err := in.normalise()
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	rcpt, err := d.loadRecipient(ctx, userID, n.Type)
	if err != nil {
		d.log.Warn("notification recipient not found",
			zap.String("user_id", userID), zap.String("notification_type", n.Type), zap.Error(err))
		return Result{Success: false, Error: messageUserNotFound}
	}

	if d.guard.IsDuplicate(ctx, userID, n.Type, n.Title).Value {
		metrics.NotificationsSuppressed.Inc()
		d.log.Info("notification suppressed by spam window",
			zap.String("user_id", userID), zap.String("notification_type", n.Type), zap.String("title", n.Title))
		return Result{Success: true, Message: messageSpamSkipped}
	}

	d.fanOut(ctx, rcpt, n)
	return Result{Success: true}
}

// loadRecipient reads the user, their preferences for the type and their
// device tokens concurrently. Only the user read is fatal.
func (d *Dispatcher) loadRecipient(ctx context.Context, userID, notificationType string) (recipient, error) {
	var rcpt recipient
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := d.store.FindUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		rcpt.user = user
		return nil
	})
	g.Go(func() error {
		prefs, err := d.store.ListPreferences(gctx, userID, notificationType)
		rcpt.prefs = observeLookup(d.log, "preferences", lookupOf(prefs, err, nil), zap.String("user_id", userID))
		return nil
	})
	g.Go(func() error {
		tokens, err := d.store.ListDeviceTokens(gctx, userID)
		rcpt.tokens = observeLookup(d.log, "device_tokens", lookupOf(tokens, err, nil), zap.String("user_id", userID))
		return nil
	})

	if err := g.Wait(); err != nil {
		return recipient{}, err
	}
	return rcpt, nil
}

// fanOut runs every enabled channel concurrently and waits for all of them to settle.
func (d *Dispatcher) fanOut(ctx context.Context, rcpt recipient, n notification) {
	prefs := rcpt.prefs.Value
	userID := rcpt.user.ID
	createdAt := d.now().UTC()

	var wg conc.WaitGroup
	if ShouldSend(prefs, models.ChannelInApp) {
		wg.Go(func() {
			d.deliver(ctx, models.ChannelInApp, userID, n, func(ctx context.Context) error {
				row, err := d.inApp.save(ctx, userID, n, createdAt)
				if err != nil {
					return err
				}
				d.publish(ctx, userID, EventNewNotification, row)
				return nil
			})
		})
	}

	if d.push != nil && ShouldSend(prefs, models.ChannelPush) && len(rcpt.tokens.Value) > 0 {
		wg.Go(func() {
			d.deliver(ctx, models.ChannelPush, userID, n, func(ctx context.Context) error {
				_, err := d.push.Send(ctx, userID, rcpt.tokens.Value, n.Title, n.Message, pushData(n), n.BadgeCount)
				return err
			})
		})
	}

	if d.email != nil && ShouldSend(prefs, models.ChannelEmail) {
		wg.Go(func() {
			d.deliver(ctx, models.ChannelEmail, userID, n, func(ctx context.Context) error {
				return d.email.send(ctx, rcpt.user, n)
			})
		})
	}

	if recovered := wg.WaitAndRecover(); recovered != nil {
		d.log.Error("notification channel panicked",
			zap.String("user_id", userID), zap.Any("panic", recovered.Value))
	}
}

// deliver runs one channel under its own timeout and records the outcome.
func (d *Dispatcher) deliver(ctx context.Context, channel, userID string, n notification, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("user_id", userID),
		zap.String("notification_type", n.Type),
		zap.String("channel", channel),
	}

	err := fn(ctx)
	switch {
	case err == nil:
		metrics.NotificationDeliveries.WithLabelValues(channel, "sent").Inc()
	case errors.Is(err, ErrChannelNotConfigured):
		metrics.NotificationDeliveries.WithLabelValues(channel, "skipped").Inc()
		d.log.Warn("notification channel skipped", append(fields, zap.Error(err))...)
	default:
		metrics.NotificationDeliveries.WithLabelValues(channel, "failed").Inc()
		d.log.Error("notification channel failed", append(fields, zap.Error(err))...)
	}
}

func (d *Dispatcher) publish(ctx context.Context, userID, eventType string, payload any) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, userID, eventType, payload); err != nil {
		d.log.Warn("realtime publish failed",
			zap.String("user_id", userID), zap.String("event", eventType), zap.Error(err))
	}
}

// pushData flattens object details into the push payload alongside the type.
func pushData(n notification) map[string]any {
	data := map[string]any{"notification_type": n.Type}
	if len(n.Details) == 0 {
		return data
	}

	var decoded any
	if err := json.Unmarshal(n.Details, &decoded); err != nil {
		data["details"] = string(n.Details)
		return data
	}
	switch v := decoded.(type) {
	case map[string]any:
		for key, value := range v {
			if key == "notification_type" {
				continue
			}
			data[key] = value
		}
	default:
		data["details"] = v
	}
	return data
}

func resultLabel(r Result) string {
	switch {
	case !r.Success:
		return "failed"
	case r.Skipped():
		return "skipped"
	default:
		return "sent"
	}
}
