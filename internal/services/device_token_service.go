package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/notifier/internal/models"
	apperrors "github.com/charlesng35/notifier/pkg/errors"
)

// RegisterDeviceInput registers a push token for the calling user.
type RegisterDeviceInput struct {
	DeviceToken string `json:"device_token" validate:"notblank,max=512"`
	Platform    string `json:"platform" validate:"omitempty,oneof=ios android web"`
}

// DeviceTokenService manages push registration tokens.
type DeviceTokenService struct {
	db *gorm.DB
}

// NewDeviceTokenService constructs a DeviceTokenService.
func NewDeviceTokenService(db *gorm.DB) (*DeviceTokenService, error) {
	if db == nil {
		return nil, fmt.Errorf("device token service: db is required")
	}
	return &DeviceTokenService{db: db}, nil
}

// Register stores the token for the user. Registering a known token only
// refreshes its platform.
func (s *DeviceTokenService) Register(ctx context.Context, userID string, in RegisterDeviceInput) (models.DeviceToken, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	token := strings.TrimSpace(in.DeviceToken)
	if userID == "" {
		return models.DeviceToken{}, apperrors.NewBadRequest("user id is required")
	}
	if token == "" {
		return models.DeviceToken{}, apperrors.NewBadRequest("device token is required")
	}
	platform := strings.ToLower(strings.TrimSpace(in.Platform))

	row := models.DeviceToken{UserID: userID, DeviceToken: token, Platform: platform}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return row, nil
	}
	if !isUniqueConstraintError(err) {
		return models.DeviceToken{}, fmt.Errorf("device token service: register: %w", err)
	}

	var existing models.DeviceToken
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND device_token = ?", userID, token).
		Take(&existing).Error
	if err != nil {
		return models.DeviceToken{}, fmt.Errorf("device token service: load existing: %w", err)
	}
	if platform != "" && existing.Platform != platform {
		if err := s.db.WithContext(ctx).Model(&existing).Update("platform", platform).Error; err != nil {
			return models.DeviceToken{}, fmt.Errorf("device token service: update platform: %w", err)
		}
	}
	return existing, nil
}

// Unregister removes a token of the user and reports whether it existed.
func (s *DeviceTokenService) Unregister(ctx context.Context, userID, token string) (bool, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return false, apperrors.NewBadRequest("device token is required")
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND device_token = ?", userID, token).
		Delete(&models.DeviceToken{})
	if res.Error != nil {
		return false, fmt.Errorf("device token service: unregister: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List returns the tokens registered by the user.
func (s *DeviceTokenService) List(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	var rows []models.DeviceToken
	err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("device token service: list: %w", err)
	}
	return rows, nil
}
