package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification is a durable in-app notification owned by a single user.
type Notification struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	UserID           string         `gorm:"size:64;not null;index:idx_notifications_dedup,priority:1" json:"user_id"`
	NotificationType string         `gorm:"size:64;not null;index:idx_notifications_dedup,priority:2" json:"notification_type"`
	Title            string         `gorm:"size:255;not null;index:idx_notifications_dedup,priority:3" json:"title"`
	Message          string         `gorm:"type:text" json:"message"`
	Details          datatypes.JSON `json:"details,omitempty"`
	Read             bool           `gorm:"not null;default:false;index" json:"read"`
	CreatedAt        time.Time      `gorm:"index:idx_notifications_dedup,priority:4" json:"created_at"`
}

// TableName pins the live notification table.
func (Notification) TableName() string {
	return "user_notifications"
}

// BeforeCreate assigns an identifier when the caller did not supply one.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// ArchivedNotification is a notification moved out of the live table. Archived
// rows are implicitly read and keep the identifier of their source row.
type ArchivedNotification struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	UserID           string         `gorm:"size:64;not null;index" json:"user_id"`
	NotificationType string         `gorm:"size:64;not null" json:"notification_type"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Message          string         `gorm:"type:text" json:"message"`
	Details          datatypes.JSON `json:"details,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	ArchivedAt       time.Time      `gorm:"index" json:"archived_at"`
}

// TableName pins the archive table.
func (ArchivedNotification) TableName() string {
	return "archived_user_notifications"
}

// Archive converts a live notification into its archived form.
func (n Notification) Archive(at time.Time) ArchivedNotification {
	return ArchivedNotification{
		ID:               n.ID,
		UserID:           n.UserID,
		NotificationType: n.NotificationType,
		Title:            n.Title,
		Message:          n.Message,
		Details:          n.Details,
		CreatedAt:        n.CreatedAt,
		ArchivedAt:       at,
	}
}
