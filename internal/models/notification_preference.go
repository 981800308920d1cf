package models

// Delivery channels a notification can be routed through.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
	ChannelInApp = "in_app"
)

// Channels lists every supported delivery channel.
var Channels = []string{ChannelPush, ChannelEmail, ChannelInApp}

// NotificationPreference toggles one channel for one notification type of a user.
// A missing row means "use the channel default".
type NotificationPreference struct {
	BaseModel

	UserID           string `gorm:"size:64;not null;uniqueIndex:idx_notification_preference,priority:1" json:"user_id"`
	NotificationType string `gorm:"size:64;not null;uniqueIndex:idx_notification_preference,priority:2" json:"notification_type"`
	Channel          string `gorm:"size:16;not null;uniqueIndex:idx_notification_preference,priority:3" json:"channel"`
	Enabled          bool   `gorm:"not null" json:"enabled"`
}

// TableName pins the preference table.
func (NotificationPreference) TableName() string {
	return "user_notification_preferences"
}

// IsChannel reports whether name is a supported delivery channel.
func IsChannel(name string) bool {
	for _, channel := range Channels {
		if channel == name {
			return true
		}
	}
	return false
}
