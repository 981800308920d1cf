package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charlesng35/notifier/internal/models"
)

// InAppChannel persists notifications for the in-app inbox. Publishing the
// stored row is left to the caller.
type InAppChannel struct {
	store Store
}

// NewInAppChannel constructs an InAppChannel over store.
func NewInAppChannel(store Store) (*InAppChannel, error) {
	if store == nil {
		return nil, errors.New("in-app channel: store is required")
	}
	return &InAppChannel{store: store}, nil
}

// save inserts an unread row stamped with createdAt and returns it.
func (c *InAppChannel) save(ctx context.Context, userID string, n notification, createdAt time.Time) (models.Notification, error) {
	row := models.Notification{
		UserID:           userID,
		NotificationType: n.Type,
		Title:            n.Title,
		Message:          n.Message,
		Details:          n.Details,
		Read:             false,
		CreatedAt:        createdAt.UTC(),
	}
	if err := c.store.InsertNotification(ensureContext(ctx), &row); err != nil {
		return models.Notification{}, fmt.Errorf("in-app channel: insert: %w", err)
	}
	return row, nil
}
