package notifications

import (
	"context"
	"time"

	"github.com/charlesng35/notifier/internal/models"
)

// Store is the row store the engine reads and writes. Every method is scoped
// to a single user.
type Store interface {
	FindUser(ctx context.Context, userID string) (models.User, error)
	ListPreferences(ctx context.Context, userID, notificationType string) ([]models.NotificationPreference, error)
	ListDeviceTokens(ctx context.Context, userID string) ([]string, error)
	DeleteDeviceTokens(ctx context.Context, userID string, tokens []string) (int64, error)

	CountSince(ctx context.Context, userID, notificationType, title string, since time.Time) (int64, error)
	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, read *bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) ([]string, error)
	CountUnread(ctx context.Context, userID string) (int64, error)

	ListRead(ctx context.Context, userID string) ([]models.Notification, error)
	InsertArchived(ctx context.Context, rows []models.ArchivedNotification) error
	DeleteNotifications(ctx context.Context, userID string, ids []string) (int64, error)
}

// Publisher delivers realtime events to a user's live subscriptions. Delivery
// is best effort and at most once.
type Publisher interface {
	Publish(ctx context.Context, userID, eventType string, payload any) error
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
