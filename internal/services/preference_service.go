package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/notifier/internal/models"
	"github.com/charlesng35/notifier/internal/notifications"
	apperrors "github.com/charlesng35/notifier/pkg/errors"
)

// KnownNotificationTypes are always listed in the preference matrix.
var KnownNotificationTypes = []string{
	notifications.TypeAutoSchedulingCompleted,
	notifications.TypeAutoSchedulingError,
	notifications.TypeWeatherConflict,
	notifications.TypeCalendarConflict,
}

// ChannelPreference is the effective state of one channel for one type.
type ChannelPreference struct {
	NotificationType string `json:"notification_type"`
	Channel          string `json:"channel"`
	Enabled          bool   `json:"enabled"`
	// Explicit is false when no row exists and the channel default applies.
	Explicit bool `json:"explicit"`
}

// PreferenceUpdate sets one channel of one notification type.
type PreferenceUpdate struct {
	NotificationType string `json:"notification_type" validate:"notblank,max=64"`
	Channel          string `json:"channel" validate:"required,oneof=push email in_app"`
	Enabled          *bool  `json:"enabled" validate:"required"`
}

// PreferenceService reads and writes per-channel notification preferences.
type PreferenceService struct {
	db *gorm.DB
}

// NewPreferenceService constructs a PreferenceService.
func NewPreferenceService(db *gorm.DB) (*PreferenceService, error) {
	if db == nil {
		return nil, fmt.Errorf("preference service: db is required")
	}
	return &PreferenceService{db: db}, nil
}

// List returns the effective preference matrix of a user: every known type
// plus any type the user has configured, crossed with every channel.
func (s *PreferenceService) List(ctx context.Context, userID string) ([]ChannelPreference, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var rows []models.NotificationPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("preference service: list preferences: %w", err)
	}

	byType := make(map[string][]models.NotificationPreference)
	for _, row := range rows {
		byType[row.NotificationType] = append(byType[row.NotificationType], row)
	}
	types := append([]string(nil), KnownNotificationTypes...)
	var extra []string
	for notificationType := range byType {
		if !containsString(KnownNotificationTypes, notificationType) {
			extra = append(extra, notificationType)
		}
	}
	sort.Strings(extra)
	types = append(types, extra...)

	matrix := make([]ChannelPreference, 0, len(types)*len(models.Channels))
	for _, notificationType := range types {
		prefs := byType[notificationType]
		for _, channel := range models.Channels {
			matrix = append(matrix, ChannelPreference{
				NotificationType: notificationType,
				Channel:          channel,
				Enabled:          notifications.ShouldSend(prefs, channel),
				Explicit:         hasChannel(prefs, channel),
			})
		}
	}
	return matrix, nil
}

// Update upserts the supplied preferences in one transaction and returns the
// resulting matrix.
func (s *PreferenceService) Update(ctx context.Context, userID string, updates []PreferenceUpdate) ([]ChannelPreference, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	if len(updates) == 0 {
		return nil, apperrors.NewBadRequest("at least one preference is required")
	}

	rows := make([]models.NotificationPreference, 0, len(updates))
	for _, update := range updates {
		notificationType := strings.TrimSpace(update.NotificationType)
		channel := strings.TrimSpace(update.Channel)
		if notificationType == "" {
			return nil, apperrors.NewBadRequest("notification type is required")
		}
		if !models.IsChannel(channel) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown channel %q", channel))
		}
		if update.Enabled == nil {
			return nil, apperrors.NewBadRequest("enabled is required")
		}
		rows = append(rows, models.NotificationPreference{
			UserID:           userID,
			NotificationType: notificationType,
			Channel:          channel,
			Enabled:          *update.Enabled,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "user_id"},
					{Name: "notification_type"},
					{Name: "channel"},
				},
				DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
			}).Create(&rows[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preference service: update preferences: %w", err)
	}
	return s.List(ctx, userID)
}

func hasChannel(prefs []models.NotificationPreference, channel string) bool {
	for _, pref := range prefs {
		if pref.Channel == channel {
			return true
		}
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
