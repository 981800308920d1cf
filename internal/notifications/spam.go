package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSpamWindow is the trailing window in which identical notifications are suppressed.
const DefaultSpamWindow = 5 * time.Minute

// SpamGuard suppresses a notification when one with the same user, type and
// title was stored within the trailing window.
type SpamGuard struct {
	store  Store
	window time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewSpamGuard constructs a SpamGuard. A non-positive window uses DefaultSpamWindow.
func NewSpamGuard(store Store, window time.Duration, now func() time.Time, log *zap.Logger) *SpamGuard {
	if window <= 0 {
		window = DefaultSpamWindow
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SpamGuard{store: store, window: window, now: now, log: log}
}

// IsDuplicate fails open: a store error yields a degraded "not a duplicate".
func (g *SpamGuard) IsDuplicate(ctx context.Context, userID, notificationType, title string) Lookup[bool] {
	since := g.now().UTC().Add(-g.window)
	count, err := g.store.CountSince(ensureContext(ctx), userID, notificationType, title, since)
	return observeLookup(g.log, "recent_notifications", lookupOf(count > 0, err, false),
		zap.String("user_id", userID), zap.String("notification_type", notificationType))
}
