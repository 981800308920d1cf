package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/notifier/internal/models"
	apperrors "github.com/charlesng35/notifier/pkg/errors"
)

// Status filters inbox listings by read state.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
	StatusAll    Status = "all"
)

// ParseStatus validates a status filter; empty means unread.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StatusUnread:
		return StatusUnread, nil
	case StatusRead:
		return StatusRead, nil
	case StatusAll:
		return StatusAll, nil
	default:
		return "", apperrors.NewBadRequest("status must be one of: all, read, unread")
	}
}

func (s Status) readFilter() *bool {
	switch s {
	case StatusRead:
		read := true
		return &read
	case StatusAll:
		return nil
	default:
		read := false
		return &read
	}
}

// ArchiveResult reports the rows moved by ArchiveRead.
type ArchiveResult struct {
	Archived int      `json:"archived"`
	IDs      []string `json:"ids"`
}

// Lifecycle manages read state, archiving and unread counts of a user's inbox.
type Lifecycle struct {
	store        Store
	publisher    Publisher
	defaultLimit int
	maxLimit     int
	now          func() time.Time
	log          *zap.Logger
}

// NewLifecycle constructs a Lifecycle; publisher may be nil.
func NewLifecycle(store Store, publisher Publisher, opts ...Option) (*Lifecycle, error) {
	if store == nil {
		return nil, errors.New("notification lifecycle: store is required")
	}
	cfg := applyOptions(opts)
	return &Lifecycle{
		store:        store,
		publisher:    publisher,
		defaultLimit: cfg.defaultLimit,
		maxLimit:     cfg.maxLimit,
		now:          cfg.now,
		log:          cfg.log,
	}, nil
}

// List returns the newest notifications matching status. A failed query yields
// a degraded empty list.
func (l *Lifecycle) List(ctx context.Context, userID string, status Status, limit int) Lookup[[]models.Notification] {
	limit = l.clampLimit(limit)
	rows, err := l.store.ListNotifications(ensureContext(ctx), userID, status.readFilter(), limit)
	if rows == nil {
		rows = []models.Notification{}
	}
	return observeLookup(l.log, "list_notifications", lookupOf(rows, err, []models.Notification{}),
		zap.String("user_id", userID), zap.String("status", string(status)))
}

// MarkRead flags one of the user's notifications as read. It reports whether a
// row changed; already-read or foreign rows are left alone.
func (l *Lifecycle) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	ctx = ensureContext(ctx)
	affected, err := l.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return false, fmt.Errorf("notification lifecycle: mark read: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	l.publish(ctx, userID, EventNotificationRead, map[string]any{"id": notificationID})
	return true, nil
}

// MarkAllRead flags every unread notification as read and returns their ids.
func (l *Lifecycle) MarkAllRead(ctx context.Context, userID string) ([]string, error) {
	ctx = ensureContext(ctx)
	ids, err := l.store.MarkAllRead(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("notification lifecycle: mark all read: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	l.publish(ctx, userID, EventAllNotificationsRead, map[string]any{"ids": ids})
	return ids, nil
}

// ArchiveRead marks everything read, copies the read rows into the archive and
// then deletes them from the live table. The delete is skipped when the copy
// fails, so a failure can duplicate rows but never lose them.
func (l *Lifecycle) ArchiveRead(ctx context.Context, userID string) (ArchiveResult, error) {
	ctx = ensureContext(ctx)

	if _, err := l.MarkAllRead(ctx, userID); err != nil {
		return ArchiveResult{}, err
	}

	rows, err := l.store.ListRead(ctx, userID)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("notification lifecycle: load read notifications: %w", err)
	}
	if len(rows) == 0 {
		return ArchiveResult{IDs: []string{}}, nil
	}

	archivedAt := l.now().UTC()
	archived := make([]models.ArchivedNotification, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		archived = append(archived, row.Archive(archivedAt))
		ids = append(ids, row.ID)
	}

	if err := l.store.InsertArchived(ctx, archived); err != nil {
		l.log.Error("archive copy failed, live rows kept",
			zap.String("user_id", userID), zap.Int("rows", len(rows)), zap.Error(err))
		return ArchiveResult{}, fmt.Errorf("%w: %w", ErrArchiveCopy, err)
	}

	result := ArchiveResult{Archived: len(ids), IDs: ids}
	if _, err := l.store.DeleteNotifications(ctx, userID, ids); err != nil {
		l.log.Error("archive delete failed, rows duplicated until reconciliation",
			zap.String("user_id", userID), zap.Int("rows", len(ids)), zap.Error(err))
		return result, fmt.Errorf("%w: %w", ErrArchiveDelete, err)
	}

	l.publish(ctx, userID, EventNotificationsArchived, map[string]any{"ids": ids})
	return result, nil
}

// UnreadCount returns the number of unread notifications; a failed count is a degraded zero.
func (l *Lifecycle) UnreadCount(ctx context.Context, userID string) Lookup[int64] {
	count, err := l.store.CountUnread(ensureContext(ctx), userID)
	return observeLookup(l.log, "unread_count", lookupOf(count, err, 0), zap.String("user_id", userID))
}

func (l *Lifecycle) clampLimit(limit int) int {
	if limit <= 0 {
		return l.defaultLimit
	}
	if limit > l.maxLimit {
		return l.maxLimit
	}
	return limit
}

func (l *Lifecycle) publish(ctx context.Context, userID, eventType string, payload any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, userID, eventType, payload); err != nil {
		l.log.Warn("realtime publish failed",
			zap.String("user_id", userID), zap.String("event", eventType), zap.Error(err))
	}
}
