package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/notifier/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
//
// The users table is owned by the identity service; migrating it here only
// guarantees the projected columns exist for local and test databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.ArchivedNotification{},
		&models.NotificationPreference{},
		&models.DeviceToken{},
		&models.CacheEntry{},
	)
}
