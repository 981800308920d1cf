// Package store implements the notification row store on gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/notifier/internal/models"
	apperrors "github.com/charlesng35/notifier/pkg/errors"
)

// GormStore reads and writes the notification tables.
type GormStore struct {
	db *gorm.DB
}

// New constructs a GormStore.
func New(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("notification store: db is required")
	}
	return &GormStore{db: db}, nil
}

// FindUser loads the user projection.
func (s *GormStore) FindUser(ctx context.Context, userID string) (models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.User{}, apperrors.NewBadRequest("user id is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Select("id", "email", "full_name").
		Where("id = ?", userID).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, apperrors.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("notification store: load user: %w", err)
	}
	return user, nil
}

// ListPreferences returns the preference rows of a user for one notification type.
func (s *GormStore) ListPreferences(ctx context.Context, userID, notificationType string) ([]models.NotificationPreference, error) {
	var prefs []models.NotificationPreference
	err := s.db.WithContext(ctx).
		Where(map[string]any{"user_id": userID, "notification_type": notificationType}).
		Find(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("notification store: list preferences: %w", err)
	}
	return prefs, nil
}

// ListDeviceTokens returns every push token registered by a user.
func (s *GormStore) ListDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("device_token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("notification store: list device tokens: %w", err)
	}
	return tokens, nil
}

// DeleteDeviceTokens removes the given tokens of a user in one statement.
func (s *GormStore) DeleteDeviceTokens(ctx context.Context, userID string, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND device_token IN ?", userID, tokens).
		Delete(&models.DeviceToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("notification store: delete device tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountSince counts notifications with the same user, type and title created after since.
func (s *GormStore) CountSince(ctx context.Context, userID, notificationType, title string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where(map[string]any{"user_id": userID, "notification_type": notificationType, "title": title}).
		Where("created_at > ?", since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("notification store: count recent: %w", err)
	}
	return count, nil
}

// InsertNotification persists a new live notification.
func (s *GormStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return apperrors.NewBadRequest("notification is required")
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("notification store: insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the newest notifications of a user, optionally
// filtered by read state.
func (s *GormStore) ListNotifications(ctx context.Context, userID string, read *bool, limit int) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).
		Where(map[string]any{"user_id": userID})
	if read != nil {
		query = query.Where(map[string]any{"read": *read})
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Notification
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification store: list notifications: %w", err)
	}
	return rows, nil
}

// MarkRead flags one unread notification of a user as read.
func (s *GormStore) MarkRead(ctx context.Context, userID, notificationID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where(map[string]any{"id": notificationID, "user_id": userID, "read": false}).
		Update("read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("notification store: mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkAllRead flags every unread notification of a user as read and returns their ids.
func (s *GormStore) MarkAllRead(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Notification{}).
			Where(map[string]any{"user_id": userID, "read": false}).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&models.Notification{}).
			Where(map[string]any{"user_id": userID, "read": false}).
			Where("id IN ?", ids).
			Update("read", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("notification store: mark all read: %w", err)
	}
	return ids, nil
}

// CountUnread counts the unread notifications of a user.
func (s *GormStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where(map[string]any{"user_id": userID, "read": false}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("notification store: count unread: %w", err)
	}
	return count, nil
}

// ListRead returns every read notification of a user, oldest first.
func (s *GormStore) ListRead(ctx context.Context, userID string) ([]models.Notification, error) {
	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Where(map[string]any{"user_id": userID, "read": true}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("notification store: list read: %w", err)
	}
	return rows, nil
}

// InsertArchived copies rows into the archive. Rows already archived under the
// same id are left untouched so a retried archive is harmless.
func (s *GormStore) InsertArchived(ctx context.Context, rows []models.ArchivedNotification) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		CreateInBatches(&rows, 100).Error
	if err != nil {
		return fmt.Errorf("notification store: insert archived: %w", err)
	}
	return nil
}

// DeleteNotifications removes live notifications of a user by id.
func (s *GormStore) DeleteNotifications(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("notification store: delete notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteArchivedDuplicates removes read live rows whose id already exists in
// the archive, left behind when an archive delete failed.
func (s *GormStore) DeleteArchivedDuplicates(ctx context.Context) (int64, error) {
	archived := s.db.Model(&models.ArchivedNotification{}).Select("id")
	res := s.db.WithContext(ctx).
		Where(map[string]any{"read": true}).
		Where("id IN (?)", archived).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("notification store: delete archived duplicates: %w", res.Error)
	}
	return res.RowsAffected, nil
}
